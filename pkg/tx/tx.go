// Package tx holds the transaction envelope consumed by the signer and
// the submission path, plus the chunk layout that binds payload bytes
// to the envelope's data root.
package tx

import (
	"crypto/sha256"

	"github.com/pkg/errors"
)

const (
	// Format2 is the only transaction format this client produces.
	Format2 = 2

	// MaxInlineData is the largest payload posted inside the envelope
	// itself; anything larger goes through the chunked path.
	MaxInlineData = 256 * 1024
)

var (
	ErrUnsignedTransaction = errors.New("transaction is not signed")
	ErrChunkOutOfRange     = errors.New("chunk index out of range")
)

type Tag struct {
	Name  Base64 `json:"name"`
	Value Base64 `json:"value"`
}

func NewTag(name, value string) Tag {
	return Tag{Name: Base64(name), Value: Base64(value)}
}

// Transaction is the signed or unsigned envelope. ID is empty exactly
// while unsigned; once set it is SHA-256 of the signature and never
// changes. Chunk order is the sole addressing scheme for upload.
type Transaction struct {
	Format    int    `json:"format"`
	ID        Base64 `json:"id"`
	LastTx    Base64 `json:"last_tx"`
	Owner     Base64 `json:"owner"`
	Tags      []Tag  `json:"tags"`
	Target    Base64 `json:"target"`
	Quantity  Amount `json:"quantity"`
	Data      Base64 `json:"data"`
	DataSize  Amount `json:"data_size"`
	DataRoot  Base64 `json:"data_root"`
	Reward    Amount `json:"reward"`
	Signature Base64 `json:"signature"`

	chunks []chunkRef
}

// New builds an envelope from raw payload bytes: chunk layout, merkle
// data root and per-chunk proofs. The result is unsigned.
func New(owner, target Base64, data []byte, quantity, reward Amount, lastTx Base64, tags []Tag, autoContentTag bool) (*Transaction, error) {
	if autoContentTag {
		tags = append(tags, NewTag("Content-Type", "application/octet-stream"))
	}

	t := &Transaction{
		Format:   Format2,
		LastTx:   lastTx,
		Owner:    owner,
		Tags:     tags,
		Target:   target,
		Quantity: quantity,
		Data:     Base64(data),
		DataSize: Amount(len(data)),
		Reward:   reward,
	}

	if len(data) > 0 {
		root, chunks, err := buildChunks(data)
		if err != nil {
			return nil, errors.Wrap(err, "building chunk layout")
		}

		t.DataRoot = root
		t.chunks = chunks
	}

	return t, nil
}

func (t *Transaction) IsSigned() bool {
	return len(t.ID) > 0
}

// SetSignature stores the signature and derives the immutable id from
// it. Refuses to re-sign.
func (t *Transaction) SetSignature(sig []byte) error {
	if t.IsSigned() {
		return errors.New("transaction already signed")
	}

	id := sha256.Sum256(sig)
	t.Signature = Base64(sig)
	t.ID = id[:]

	return nil
}

// WithoutData clones the envelope with the payload cleared. The header
// post of a chunked submission uses this form; the gateway learns the
// data root and size without the bytes.
func (t *Transaction) WithoutData() *Transaction {
	c := *t
	c.Data = nil
	c.chunks = nil

	return &c
}

func (t *Transaction) NumChunks() int {
	return len(t.chunks)
}

// GetChunk derives the upload form of chunk i.
func (t *Transaction) GetChunk(i int) (*Chunk, error) {
	if i < 0 || i >= len(t.chunks) {
		return nil, ErrChunkOutOfRange
	}

	ref := t.chunks[i]

	return &Chunk{
		DataRoot: t.DataRoot,
		DataSize: t.DataSize,
		DataPath: ref.path,
		Offset:   Amount(ref.offset),
		Chunk:    Base64(t.Data[ref.offset : ref.offset+ref.size]),
	}, nil
}

// Chunk is one addressable slice of the payload in gateway wire form.
// DataPath is the merkle path binding the slice to DataRoot.
type Chunk struct {
	DataRoot Base64 `json:"data_root"`
	DataSize Amount `json:"data_size"`
	DataPath Base64 `json:"data_path"`
	Offset   Amount `json:"offset"`
	Chunk    Base64 `json:"chunk"`
}

// StatusRecord is the gateway's confirmation report for an accepted
// transaction.
type StatusRecord struct {
	BlockHeight           uint64 `json:"block_height"`
	BlockIndepHash        Base64 `json:"block_indep_hash"`
	NumberOfConfirmations uint64 `json:"number_of_confirmations"`
}
