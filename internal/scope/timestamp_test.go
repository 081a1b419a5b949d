package scope

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/syncmeta/internal/errs"
)

func TestEncodeTimestamp(t *testing.T) {
	at := time.Date(2024, 1, 31, 12, 5, 9, 123456789, time.UTC)
	assert.Equal(t, int64(20240131120509123), EncodeTimestamp(at))

	back, err := ClockTime(20240131120509123)
	require.NoError(t, err)
	assert.Equal(t, at.Truncate(time.Millisecond), back)

	// Ordering of clock values follows ordering of times.
	assert.Less(t, EncodeTimestamp(at), EncodeTimestamp(at.Add(time.Millisecond)))
	assert.Less(t, EncodeTimestamp(time.Date(2023, 12, 31, 23, 59, 59, 999e6, time.UTC)), EncodeTimestamp(at))
}

func TestClockTime_Rejects(t *testing.T) {
	for _, ts := range []int64{0, -1, 20241399000000000, 20240231000000000, 20240131246000000} {
		_, err := ClockTime(ts)
		assert.True(t, errs.IsInvalidInput(err), "%d", ts)
	}
}

func TestDecodeTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		src     any
		want    int64
		wantErr bool
	}{
		{"null", nil, 0, false},
		{"int64", int64(20240131120509123), 20240131120509123, false},
		{"int32", int32(7), 7, false},
		{"uint64", uint64(20240131120509123), 20240131120509123, false},
		{"bytes", []byte("20240131120509123"), 20240131120509123, false},
		{"trailing zeros kept", "20240131120509120", 20240131120509120, false},
		{"decimal text", "20240131120509123.000", 20240131120509123, false},
		{"empty text", "", 0, false},
		{"float", float64(1234), 1234, false},
		{"float clock loses milliseconds", float64(20240131120509123), 0, true},
		{"float fraction", 12.5, 0, true},
		{"fraction", "12.5", 0, true},
		{"garbage", "soon", 0, true},
		{"bool", true, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeTimestamp(tt.src)
			if tt.wantErr {
				assert.True(t, errs.IsInvalidInput(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTimeValue_Scan(t *testing.T) {
	want := time.Date(2024, 1, 31, 11, 30, 15, 0, time.UTC)

	tests := []struct {
		name string
		src  any
	}{
		{"time utc", want},
		{"time other zone keeps wall clock", time.Date(2024, 1, 31, 11, 30, 15, 0, time.FixedZone("X", -7*3600))},
		{"sqlite text", "2024-01-31 11:30:15+00:00"},
		{"rfc3339", "2024-01-31T11:30:15Z"},
		{"mysql bytes", []byte("2024-01-31 11:30:15")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tv timeValue
			require.NoError(t, tv.Scan(tt.src))
			require.NotNil(t, tv.t)
			assert.True(t, tv.t.Equal(want), "got %s", tv.t)
		})
	}

	var tv timeValue
	require.NoError(t, tv.Scan(nil))
	assert.Nil(t, tv.t)
	assert.Error(t, tv.Scan("yesterday"))
	assert.Error(t, tv.Scan(42))
}
