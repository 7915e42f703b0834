package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcfw/permastore/pkg/crypto"
	"github.com/tcfw/permastore/pkg/gateway"
	"github.com/tcfw/permastore/pkg/tx"
)

// stubNetwork serves the endpoints a full create/sign/submit pass
// touches.
type stubNetwork struct {
	mu     sync.Mutex
	txs    []tx.Transaction
	chunks []tx.Chunk
	anchor tx.Base64
	price  tx.Amount
}

func (s *stubNetwork) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/tx_anchor", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(s.anchor.String()))
	})

	mux.HandleFunc("/price/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(s.price.String()))
	})

	mux.HandleFunc("/tx", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		var t tx.Transaction
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		s.txs = append(s.txs, t)
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

		s.chunks = append(s.chunks, c)
		w.WriteHeader(http.StatusOK)
	})

	return mux
}

func newTestClient(t *testing.T) (*Client, *stubNetwork) {
	t.Helper()

	stub := &stubNetwork{anchor: tx.Base64("recent anchor"), price: 1000}

	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	signer, err := crypto.NewSignerFromFile("../crypto/testdata/wallet.json")
	require.NoError(t, err)

	c, err := New(
		WithSigner(signer),
		WithGatewayURL(srv.URL),
		WithGatewayOptions(gateway.WithRetries(2), gateway.WithRetryWait(time.Millisecond)),
	)
	require.NoError(t, err)

	return c, stub
}

func TestCreateSignVerify(t *testing.T) {
	c, _ := newTestClient(t)

	tr, err := c.CreateTransaction(context.Background(), nil, nil, []byte("hello world"), 0, 0, true)
	require.NoError(t, err)

	// zero reward filled from the price quote
	assert.Equal(t, tx.Amount(1000), tr.Reward)
	assert.Equal(t, tx.Base64("recent anchor"), tr.LastTx)
	assert.False(t, tr.IsSigned())

	require.NoError(t, c.SignTransaction(tr))
	assert.True(t, tr.IsSigned())

	assert.NoError(t, c.VerifyTransaction(tr))

	// tampering invalidates
	tr.Reward++
	assert.ErrorIs(t, c.VerifyTransaction(tr), crypto.ErrInvalidSignature)
}

func TestVerifyUnsigned(t *testing.T) {
	c, _ := newTestClient(t)

	tr, err := tx.New(c.Signer().PublicKey(), nil, []byte("x"), 0, 1, nil, nil, false)
	require.NoError(t, err)

	assert.ErrorIs(t, c.VerifyTransaction(tr), tx.ErrUnsignedTransaction)
}

func TestUploadFileInline(t *testing.T) {
	c, stub := newTestClient(t)

	path := t.TempDir() + "/note.txt"
	require.NoError(t, os.WriteFile(path, []byte("a small note"), 0o644))

	out, err := c.UploadFile(context.Background(), path, nil, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, out.ID)

	stub.mu.Lock()
	defer stub.mu.Unlock()

	require.Len(t, stub.txs, 1)
	assert.Empty(t, stub.chunks)

	// extension-derived content tag
	var found bool
	for _, tag := range stub.txs[0].Tags {
		if string(tag.Name) == "Content-Type" {
			found = true
			assert.True(t, strings.HasPrefix(string(tag.Value), "text/plain"))
		}
	}
	assert.True(t, found)
}

func TestUploadFileChunked(t *testing.T) {
	c, stub := newTestClient(t)

	data := make([]byte, tx.MaxChunkSize*2+50)
	path := t.TempDir() + "/blob.bin"
	require.NoError(t, os.WriteFile(path, data, 0o644))

	out, err := c.UploadFile(context.Background(), path, nil, 500)
	require.NoError(t, err)
	require.Len(t, out.Chunks, 3)

	stub.mu.Lock()
	defer stub.mu.Unlock()

	require.Len(t, stub.txs, 1)
	assert.Empty(t, stub.txs[0].Data)
	assert.Len(t, stub.chunks, 3)

	// every chunk's proof validates against the posted root
	for _, ch := range stub.chunks {
		assert.NoError(t, tx.ValidatePath(stub.txs[0].DataRoot, ch.Chunk, ch.DataPath))
	}
}

func TestAddress(t *testing.T) {
	c, _ := newTestClient(t)

	assert.Equal(t, "CXRy28Mt5fh091lLlL_9u1ycTfccBaf7kVfPA9fD8QA", c.Address())
}
