// Package journal persists chunked-submission progress so an upload
// interrupted after its header post can be resumed instead of
// re-sending every chunk.
package journal

import (
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

var ErrNotFound = errors.New("no journal record")

var keyPrefix = []byte("sub/")

// Record tracks one chunked submission keyed by transaction id.
type Record struct {
	ID           []byte `msgpack:"id"`
	Reward       uint64 `msgpack:"r"`
	HeaderPosted bool   `msgpack:"h"`
	Done         []bool `msgpack:"d"`
}

func (r *Record) Remaining() int {
	n := 0
	for _, d := range r.Done {
		if !d {
			n++
		}
	}

	return n
}

type Journal struct {
	db *pebble.DB

	// serializes read-modify-write of records; chunk workers mark
	// completions concurrently
	mu sync.Mutex
}

func Open(path string) (*Journal, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrap(err, "opening journal db")
	}

	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) Put(rec *Record) error {
	b, err := msgpack.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "encoding journal record")
	}

	if err := j.db.Set(key(rec.ID), b, pebble.Sync); err != nil {
		return errors.Wrap(err, "writing journal record")
	}

	return nil
}

func (j *Journal) Get(id []byte) (*Record, error) {
	b, closer, err := j.db.Get(key(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}

		return nil, errors.Wrap(err, "reading journal record")
	}
	defer closer.Close()

	rec := &Record{}
	if err := msgpack.Unmarshal(b, rec); err != nil {
		return nil, errors.Wrap(err, "decoding journal record")
	}

	return rec, nil
}

// MarkChunk flags chunk i as delivered.
func (j *Journal) MarkChunk(id []byte, i int) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	rec, err := j.Get(id)
	if err != nil {
		return err
	}

	if i < 0 || i >= len(rec.Done) {
		return errors.Errorf("chunk %d outside journal record", i)
	}

	rec.Done[i] = true

	return j.Put(rec)
}

func (j *Journal) Delete(id []byte) error {
	if err := j.db.Delete(key(id), pebble.Sync); err != nil {
		return errors.Wrap(err, "deleting journal record")
	}

	return nil
}

func key(id []byte) []byte {
	return append(append([]byte{}, keyPrefix...), id...)
}
