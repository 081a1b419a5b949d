package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/koustreak/syncmeta/internal/errs"
	"github.com/koustreak/syncmeta/internal/filestore"
	"github.com/koustreak/syncmeta/internal/logger"
)

const (
	contentType = "application/json"
	keySuffix   = ".json"

	opSave   = "snapshot.save"
	opLoad   = "snapshot.load"
	opList   = "snapshot.list"
	opLatest = "snapshot.latest"
)

// Archive stores snapshots in one bucket of an object store.
//
// Keys are <prefix><driver>/<clock>.json. Clock values have a fixed width,
// so key order within a driver is capture order.
type Archive struct {
	store  filestore.Store
	bucket string
	prefix string
	log    *logger.Logger
}

// Option configures an Archive.
type Option func(*Archive)

// WithLogger sets the logger for archive diagnostics.
func WithLogger(l *logger.Logger) Option {
	return func(a *Archive) {
		if l != nil {
			a.log = l.Component("snapshot")
		}
	}
}

// NewArchive returns an Archive writing to bucket under prefix.
func NewArchive(store filestore.Store, bucket, prefix string, opts ...Option) *Archive {
	a := &Archive{store: store, bucket: bucket, prefix: prefix, log: logger.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Close releases the underlying store.
func (a *Archive) Close() error { return a.store.Close() }

// Key returns the object key snap is saved under.
func (a *Archive) Key(snap *Snapshot) string {
	return fmt.Sprintf("%s%s/%017d%s", a.prefix, snap.Driver, snap.Clock, keySuffix)
}

// Save writes snap to the archive, creating the bucket on first use.
func (a *Archive) Save(ctx context.Context, snap *Snapshot) (*filestore.ObjectInfo, error) {
	if snap.Driver == "" || snap.Clock <= 0 {
		return nil, errs.Opf(errs.ErrKindInvalidInput, opSave, a.bucket, "snapshot needs a driver and a clock")
	}
	key := a.Key(snap)

	body, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, errs.Op(errs.ErrKindInvalidInput, opSave, key, err)
	}

	if err := a.store.EnsureBucket(ctx, a.bucket); err != nil {
		return nil, a.fail(opSave, key, err)
	}
	info, err := a.store.PutObject(ctx, a.bucket, key, bytes.NewReader(body), int64(len(body)), contentType)
	if err != nil {
		return nil, a.fail(opSave, key, err)
	}

	a.log.InfoWith("snapshot saved", map[string]interface{}{
		"bucket": a.bucket,
		"key":    key,
		"tables": len(snap.Tables),
		"scopes": len(snap.Scopes),
	})
	return info, nil
}

// Load reads the snapshot stored at key.
func (a *Archive) Load(ctx context.Context, key string) (*Snapshot, error) {
	obj, err := a.store.GetObject(ctx, a.bucket, key)
	if err != nil {
		return nil, a.fail(opLoad, key, err)
	}
	defer obj.Close()

	var snap Snapshot
	if err := json.NewDecoder(obj).Decode(&snap); err != nil {
		return nil, a.fail(opLoad, key, errs.Wrap(errs.ErrKindInvalidInput, "malformed snapshot document", err))
	}
	if snap.Version != FormatVersion {
		return nil, a.fail(opLoad, key, errs.New(errs.ErrKindInvalidInput,
			fmt.Sprintf("unsupported snapshot version %d", snap.Version)))
	}
	return &snap, nil
}

// List returns the snapshot objects of driver, oldest first. An empty driver
// lists every driver.
func (a *Archive) List(ctx context.Context, driver string) ([]filestore.ObjectInfo, error) {
	prefix := a.prefix
	if driver != "" {
		prefix += driver + "/"
	}
	objs, err := a.store.ListObjects(ctx, a.bucket, filestore.ListOptions{Prefix: prefix})
	if err != nil {
		return nil, a.fail(opList, prefix, err)
	}

	out := objs[:0]
	for _, o := range objs {
		if strings.HasSuffix(o.Key, keySuffix) {
			out = append(out, o)
		}
	}
	return out, nil
}

// Latest loads the most recent snapshot of driver. It fails with an
// ErrKindNotFound error when the archive holds none.
func (a *Archive) Latest(ctx context.Context, driver string) (*Snapshot, error) {
	objs, err := a.List(ctx, driver)
	if err != nil {
		return nil, err
	}
	if len(objs) == 0 {
		return nil, errs.Opf(errs.ErrKindNotFound, opLatest, path.Join(a.bucket, a.prefix+driver), "no snapshots archived")
	}

	latest := objs[0]
	for _, o := range objs[1:] {
		if path.Base(o.Key) > path.Base(latest.Key) {
			latest = o
		}
	}
	return a.Load(ctx, latest.Key)
}

func (a *Archive) fail(op, key string, err error) error {
	e := errs.Op(errs.KindOf(err), op, key, err)
	a.log.ErrorWith("snapshot operation failed", e, map[string]interface{}{
		"op":     op,
		"bucket": a.bucket,
		"key":    key,
		"kind":   e.Kind.String(),
	})
	return e
}
