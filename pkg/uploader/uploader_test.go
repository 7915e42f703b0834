package uploader

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcfw/permastore/internal/journal"
	"github.com/tcfw/permastore/pkg/gateway"
	"github.com/tcfw/permastore/pkg/tx"
)

// stubGateway records tx and chunk posts and fails the chunk offsets
// it is told to.
type stubGateway struct {
	mu         sync.Mutex
	txPosts    []tx.Transaction
	chunkPosts []tx.Chunk
	failTx     bool
	failOffset map[uint64]bool
}

func (s *stubGateway) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/tx", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		var t tx.Transaction
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if s.failTx {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		s.txPosts = append(s.txPosts, t)
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/chunk", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		var c tx.Chunk
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if s.failOffset[uint64(c.Offset)] {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		s.chunkPosts = append(s.chunkPosts, c)
		w.WriteHeader(http.StatusOK)
	})

	return mux
}

func (s *stubGateway) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.txPosts), len(s.chunkPosts)
}

func newTestUploader(t *testing.T, stub *stubGateway, opts ...Option) *Uploader {
	t.Helper()

	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	gw, err := gateway.NewClient(srv.URL, gateway.WithRetries(2), gateway.WithRetryWait(time.Millisecond))
	require.NoError(t, err)

	return New(gw, opts...)
}

func signedTx(t *testing.T, dataLen int) *tx.Transaction {
	t.Helper()

	data := make([]byte, dataLen)
	rand.New(rand.NewSource(7)).Read(data)

	tr, err := tx.New(tx.Base64("owner"), nil, data, 0, 99, tx.Base64("anchor"), nil, false)
	require.NoError(t, err)
	require.NoError(t, tr.SetSignature([]byte("sig")))

	return tr
}

func TestSubmitInline(t *testing.T) {
	stub := &stubGateway{}
	u := newTestUploader(t, stub)

	tr := signedTx(t, tx.MaxInlineData)

	out, err := u.Submit(context.Background(), tr)
	require.NoError(t, err)

	assert.Equal(t, tr.ID, out.ID)
	assert.Equal(t, tx.Amount(99), out.Reward)
	assert.Empty(t, out.Chunks)

	txPosts, chunkPosts := stub.counts()
	assert.Equal(t, 1, txPosts)
	assert.Zero(t, chunkPosts)

	// the inline post carries the payload
	assert.NotEmpty(t, stub.txPosts[0].Data)
}

func TestSubmitChunked(t *testing.T) {
	stub := &stubGateway{}
	u := newTestUploader(t, stub, WithConcurrency(2))

	tr := signedTx(t, tx.MaxChunkSize*2+100)

	out, err := u.Submit(context.Background(), tr)
	require.NoError(t, err)

	require.Len(t, out.Chunks, 3)
	for i, r := range out.Chunks {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, ChunkOK, r.State)
	}

	txPosts, chunkPosts := stub.counts()
	assert.Equal(t, 1, txPosts)
	assert.Equal(t, 3, chunkPosts)

	// header-only: data cleared, root kept
	assert.Empty(t, stub.txPosts[0].Data)
	assert.Equal(t, tr.DataRoot, stub.txPosts[0].DataRoot)
}

func TestSubmitChunkFailure(t *testing.T) {
	stub := &stubGateway{failOffset: map[uint64]bool{tx.MaxChunkSize: true}}
	u := newTestUploader(t, stub, WithConcurrency(4))

	tr := signedTx(t, tx.MaxChunkSize*2+100)

	out, err := u.Submit(context.Background(), tr)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPartialUpload)

	require.NotNil(t, out)
	require.Len(t, out.Chunks, 3)

	assert.Equal(t, ChunkOK, out.Chunks[0].State)
	assert.Equal(t, ChunkFailed, out.Chunks[1].State)
	assert.ErrorIs(t, out.Chunks[1].Err, gateway.ErrStatusCodeNotOk)
	assert.Equal(t, ChunkOK, out.Chunks[2].State)

	assert.ErrorIs(t, out.FirstErr(), gateway.ErrStatusCodeNotOk)
}

func TestSubmitHeaderFailure(t *testing.T) {
	stub := &stubGateway{failTx: true}
	u := newTestUploader(t, stub)

	tr := signedTx(t, tx.MaxChunkSize*2)

	out, err := u.Submit(context.Background(), tr)
	require.Error(t, err)

	// failed before the header landed: not a partial upload
	assert.NotErrorIs(t, err, ErrPartialUpload)
	assert.ErrorIs(t, err, gateway.ErrStatusCodeNotOk)
	assert.Nil(t, out)

	_, chunkPosts := stub.counts()
	assert.Zero(t, chunkPosts)
}

func TestSubmitUnsigned(t *testing.T) {
	stub := &stubGateway{}
	u := newTestUploader(t, stub)

	tr, err := tx.New(tx.Base64("owner"), nil, []byte("data"), 0, 1, nil, nil, false)
	require.NoError(t, err)

	_, err = u.Submit(context.Background(), tr)
	assert.ErrorIs(t, err, gateway.ErrUnsignedTransaction)

	txPosts, chunkPosts := stub.counts()
	assert.Zero(t, txPosts)
	assert.Zero(t, chunkPosts)
}

func TestResumeSkipsDeliveredChunks(t *testing.T) {
	stub := &stubGateway{failOffset: map[uint64]bool{0: true}}

	jrnl, err := journal.Open(t.TempDir() + "/journal")
	require.NoError(t, err)
	t.Cleanup(func() { jrnl.Close() })

	u := newTestUploader(t, stub, WithJournal(jrnl), WithConcurrency(2))

	tr := signedTx(t, tx.MaxChunkSize*2+100)

	_, err = u.Submit(context.Background(), tr)
	require.ErrorIs(t, err, ErrPartialUpload)

	rec, err := jrnl.Get(tr.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Remaining())

	// gateway recovers
	stub.mu.Lock()
	stub.failOffset = nil
	headerPosts := len(stub.txPosts)
	delivered := len(stub.chunkPosts)
	stub.mu.Unlock()

	out, err := u.Resume(context.Background(), tr)
	require.NoError(t, err)

	for _, r := range out.Chunks {
		assert.Equal(t, ChunkOK, r.State)
	}

	// header not re-posted; only the missing chunk goes up
	txPosts, chunkPosts := stub.counts()
	assert.Equal(t, headerPosts, txPosts)
	assert.Equal(t, delivered+1, chunkPosts)

	// journal cleared on completion
	_, err = jrnl.Get(tr.ID)
	assert.ErrorIs(t, err, journal.ErrNotFound)
}

func TestSubmitCancelled(t *testing.T) {
	stub := &stubGateway{}
	u := newTestUploader(t, stub, WithConcurrency(1))

	tr := signedTx(t, tx.MaxChunkSize*3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := u.Submit(ctx, tr)
	require.Error(t, err)
	assert.Nil(t, out)
}
