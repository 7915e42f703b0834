// Package uploader orchestrates transaction submission: inline posts
// for small payloads, header-first chunked uploads with a bounded
// worker pool for everything else.
package uploader

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/tcfw/permastore/internal/journal"
	"github.com/tcfw/permastore/internal/utils/logging"
	"github.com/tcfw/permastore/pkg/gateway"
	"github.com/tcfw/permastore/pkg/tx"
)

// DefaultConcurrency bounds in-flight chunk posts. Unbounded fan-out
// risks connection exhaustion and gateway rate limiting.
const DefaultConcurrency = 100

// ErrPartialUpload reports a submission whose header reached the
// gateway but whose chunks did not all land. The transaction exists on
// the network in an incomplete, resumable state; callers must see this
// distinctly from a failure before the header post.
var ErrPartialUpload = errors.New("header posted but chunk upload incomplete")

type ChunkState int

const (
	ChunkNotAttempted ChunkState = iota
	ChunkOK
	ChunkFailed
)

// ChunkResult is chunk i's final disposition. Exactly one result per
// chunk, index-addressed, regardless of completion order.
type ChunkResult struct {
	Index int
	State ChunkState
	Err   error
}

// Outcome aggregates one submission attempt. Chunks is empty on the
// inline path.
type Outcome struct {
	ID     tx.Base64
	Reward tx.Amount
	Chunks []ChunkResult
}

// FirstErr returns the lowest-indexed chunk failure, or nil.
func (o *Outcome) FirstErr() error {
	for _, r := range o.Chunks {
		if r.State == ChunkFailed {
			return r.Err
		}
	}

	return nil
}

func (o *Outcome) failedChunks() int {
	n := 0
	for _, r := range o.Chunks {
		if r.State != ChunkOK {
			n++
		}
	}

	return n
}

type Uploader struct {
	gw          *gateway.Client
	concurrency int
	jrnl        *journal.Journal
}

type Option func(*Uploader)

// WithConcurrency overrides the in-flight chunk bound.
func WithConcurrency(n int) Option {
	return func(u *Uploader) {
		if n > 0 {
			u.concurrency = n
		}
	}
}

// WithJournal enables resumable submissions.
func WithJournal(j *journal.Journal) Option {
	return func(u *Uploader) { u.jrnl = j }
}

func New(gw *gateway.Client, opts ...Option) *Uploader {
	u := &Uploader{
		gw:          gw,
		concurrency: DefaultConcurrency,
	}

	for _, o := range opts {
		o(u)
	}

	return u
}

// Submit posts a signed transaction. Payloads at or under the inline
// threshold go up in a single post; larger payloads post a data-free
// header first and then every chunk through the worker pool. The
// header must land before any chunk is sent.
func (u *Uploader) Submit(ctx context.Context, t *tx.Transaction) (*Outcome, error) {
	if !t.IsSigned() {
		return nil, gateway.ErrUnsignedTransaction
	}

	if len(t.Data) <= tx.MaxInlineData {
		id, reward, err := u.gw.SubmitTx(ctx, t)
		if err != nil {
			return nil, errors.Wrap(err, "posting transaction")
		}

		return &Outcome{ID: id, Reward: reward}, nil
	}

	return u.submitChunked(ctx, t, nil)
}

// Resume continues a previously interrupted chunked submission,
// skipping chunks the journal already recorded as delivered. Without a
// journal record it behaves as Submit.
func (u *Uploader) Resume(ctx context.Context, t *tx.Transaction) (*Outcome, error) {
	if !t.IsSigned() {
		return nil, gateway.ErrUnsignedTransaction
	}

	if u.jrnl == nil {
		return u.Submit(ctx, t)
	}

	rec, err := u.jrnl.Get(t.ID)
	if err != nil {
		if errors.Is(err, journal.ErrNotFound) {
			return u.Submit(ctx, t)
		}

		return nil, errors.Wrap(err, "loading journal record")
	}

	if len(rec.Done) != t.NumChunks() {
		return nil, errors.Errorf("journal record tracks %d chunks, transaction has %d", len(rec.Done), t.NumChunks())
	}

	logging.Entry().
		WithField("tx", t.ID.String()).
		WithField("remaining", rec.Remaining()).
		Debug("resuming chunked submission")

	return u.submitChunked(ctx, t, rec)
}

func (u *Uploader) submitChunked(ctx context.Context, t *tx.Transaction, rec *journal.Record) (*Outcome, error) {
	if rec == nil || !rec.HeaderPosted {
		// the gateway must know the transaction before it accepts
		// chunks; a failure here aborts with nothing attempted
		header := t.WithoutData()

		if _, _, err := u.gw.SubmitTx(ctx, header); err != nil {
			return nil, errors.Wrap(err, "posting transaction header")
		}
	}

	if u.jrnl != nil && rec == nil {
		rec = &journal.Record{
			ID:           t.ID,
			Reward:       uint64(t.Reward),
			HeaderPosted: true,
			Done:         make([]bool, t.NumChunks()),
		}

		if err := u.jrnl.Put(rec); err != nil {
			logging.WithError(err).Warn("journalling submission")
		}
	}

	outcome := &Outcome{
		ID:     t.ID,
		Reward: t.Reward,
		Chunks: u.uploadChunks(ctx, t, rec),
	}

	if failed := outcome.failedChunks(); failed > 0 {
		logging.Entry().
			WithField("tx", t.ID.String()).
			WithField("failed", failed).
			Warn("chunk upload incomplete")

		cause := outcome.FirstErr()
		if cause == nil {
			// nothing attempted, e.g. cancelled before the pool fed
			cause = ctx.Err()
		}
		if cause == nil {
			cause = errors.New("chunks not attempted")
		}

		return outcome, errors.Wrap(ErrPartialUpload, cause.Error())
	}

	if u.jrnl != nil {
		if err := u.jrnl.Delete(t.ID); err != nil {
			logging.WithError(err).Warn("clearing journal record")
		}
	}

	return outcome, nil
}

// uploadChunks drives the bounded pool. Each worker owns the result
// slot of whichever index it drains from the feed, so completion order
// never races the collection. Chunks the feed never hands out stay
// ChunkNotAttempted.
func (u *Uploader) uploadChunks(ctx context.Context, t *tx.Transaction, rec *journal.Record) []ChunkResult {
	n := t.NumChunks()

	results := make([]ChunkResult, n)
	for i := range results {
		results[i] = ChunkResult{Index: i, State: ChunkNotAttempted}
		if rec != nil && rec.Done[i] {
			results[i].State = ChunkOK
		}
	}

	workers := u.concurrency
	if workers > n {
		workers = n
	}

	feed := make(chan int)

	go func() {
		defer close(feed)

		for i := 0; i < n; i++ {
			if rec != nil && rec.Done[i] {
				continue
			}

			select {
			case <-ctx.Done():
				return
			case feed <- i:
			}
		}
	}()

	var wg sync.WaitGroup
	wg.Add(workers)

	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()

			for i := range feed {
				results[i] = u.postChunk(ctx, t, i)

				if results[i].State == ChunkOK && u.jrnl != nil && rec != nil {
					if err := u.jrnl.MarkChunk(t.ID, i); err != nil {
						logging.WithError(err).WithField("chunk", i).Warn("journalling chunk")
					}
				}
			}
		}()
	}

	wg.Wait()

	return results
}

func (u *Uploader) postChunk(ctx context.Context, t *tx.Transaction, i int) ChunkResult {
	ch, err := t.GetChunk(i)
	if err == nil {
		err = u.gw.SubmitChunk(ctx, ch)
	}

	if err != nil {
		logging.WithError(err).WithField("chunk", i).Debug("chunk post failed")
		return ChunkResult{Index: i, State: ChunkFailed, Err: err}
	}

	return ChunkResult{Index: i, State: ChunkOK}
}
