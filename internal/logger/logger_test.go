package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{name: "default config", config: nil},
		{name: "json config", config: &Config{Level: "debug", Format: "json", Output: io.Discard}},
		{name: "console config", config: &Config{Level: "info", Format: "console", Output: io.Discard}},
		{name: "nil output falls back", config: &Config{Level: "warn"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, New(tt.config))
		})
	}
}

func TestLogger_JSONOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(&Config{Level: "info", Format: "json", Output: buf})

	log.Info("scope table created")

	entry := decode(t, buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "scope table created", entry["message"])
	assert.NotEmpty(t, entry["time"])
}

func TestLogger_Component(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(&Config{Level: "info", Format: "json", Output: buf})

	log.Component("scope").With().Str("object", "scope_info").Logger().Info("upserted")

	entry := decode(t, buf)
	assert.Equal(t, "scope", entry["component"])
	assert.Equal(t, "scope_info", entry["object"])
}

func TestLogger_ErrorWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(&Config{Level: "error", Format: "json", Output: buf})

	log.ErrorWith("operation failed", errors.New("ORA-00955: name is already used"), map[string]interface{}{
		"op":     "scope.create_table",
		"object": "scope_info",
	})

	entry := decode(t, buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "operation failed", entry["message"])
	assert.Equal(t, "ORA-00955: name is already used", entry["error"])
	assert.Equal(t, "scope.create_table", entry["op"])
	assert.Equal(t, "scope_info", entry["object"])
}

func TestLogger_WarnWith(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(&Config{Level: "warn", Format: "json", Output: buf})

	log.WarnWith("table has no columns", map[string]interface{}{"table": "empty_t"})

	entry := decode(t, buf)
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "empty_t", entry["table"])
}

func TestLogger_Context(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(&Config{Level: "info", Format: "json", Output: buf})

	ctx := log.WithContext(context.Background())
	FromContext(ctx).Info("from context")

	assert.Equal(t, "from context", decode(t, buf)["message"])
}

func TestFromContext_Empty(t *testing.T) {
	// No logger in context: must not panic and must not write anywhere.
	FromContext(context.Background()).ErrorWith("dropped", errors.New("x"), nil)
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Info("dropped")
	log.ErrorWith("dropped", errors.New("x"), nil)
	log.Component("scope").Info("dropped")
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		logFunc  func(*Logger)
		expected bool
	}{
		{"debug level logs debug", "debug", func(l *Logger) { l.DebugWith("catalog read", nil) }, true},
		{"info level skips debug", "info", func(l *Logger) { l.DebugWith("catalog read", nil) }, false},
		{"error level logs error", "error", func(l *Logger) { l.ErrorWith("failed", errors.New("x"), nil) }, true},
		{"error level skips warn", "error", func(l *Logger) { l.WarnWith("slow", nil) }, false},
		{"disabled skips error", "disabled", func(l *Logger) { l.ErrorWith("failed", errors.New("x"), nil) }, false},
		{"unknown level behaves as info", "verbose", func(l *Logger) { l.Info("opened") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			log := New(&Config{Level: tt.level, Format: "json", Output: buf})

			tt.logFunc(log)

			if tt.expected {
				assert.NotEmpty(t, buf.String(), "expected log output")
			} else {
				assert.Empty(t, buf.String(), "expected no log output")
			}
		})
	}
}

func BenchmarkLogger_WithFields(b *testing.B) {
	log := New(&Config{Level: "info", Format: "json", Output: io.Discard})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		log.With().
			Str("component", "scope").
			Logger().
			Info("benchmark message")
	}
}
