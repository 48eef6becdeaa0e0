package oracle

import (
	"bytes"

	"github.com/dgraph-io/badger/v3"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// ErrMismatch is returned by Compare when the reference store
// disagrees with what the core produced, either in value or in
// not-found symmetry.
var ErrMismatch = errors.New("rowstore/oracle: reference store mismatch")

// Reference mirrors every mutation the single-threaded driver applies
// to the core into an external badger/v3 instance, then lets the
// driver compare reads against it (spec.md §4.8's "reference-store
// oracle"). It carries no MVCC machinery of its own: a single-threaded
// driver run has no concurrent writers to version against, so every
// mirrored write simply lands at the next badger sequence number.
type Reference struct {
	db *badger.DB
}

// OpenReference opens (creating if absent) a badger instance at dir to
// serve as the comparison oracle.
func OpenReference(dir string) (*Reference, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // the driver logs through glog/zap instead
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "while opening reference store at %q", dir)
	}
	return &Reference{db: db}, nil
}

// Close releases the underlying badger instance.
func (r *Reference) Close() error {
	return r.db.Close()
}

// Mirror writes key=value into the reference store, the way the
// driver applies every insert/update it also sent to the core.
func (r *Reference) Mirror(key, value []byte) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// MirrorDelete removes key from the reference store, mirroring a core
// remove.
func (r *Reference) MirrorDelete(key []byte) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if errors.Cause(err) == badger.ErrKeyNotFound {
		return nil
	}
	return err
}

// Compare reads key from the reference store and checks it against
// want, including not-found symmetry: want == nil must mean the
// reference store also has no entry for key.
func (r *Reference) Compare(key, want []byte) error {
	var got []byte
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Cause(err) == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			got = append(got, val...)
			return nil
		})
	})
	if err != nil {
		return errors.Wrapf(err, "while reading reference store for key %q", key)
	}

	switch {
	case want == nil && got == nil:
		return nil
	case want == nil || got == nil:
		glog.Errorf("rowstore/oracle: not-found mismatch for key %q: core=%v reference=%v",
			key, want != nil, got != nil)
		return ErrMismatch
	case !bytes.Equal(want, got):
		glog.Errorf("rowstore/oracle: value mismatch for key %q", key)
		return ErrMismatch
	default:
		return nil
	}
}
