package gateway

import (
	"github.com/pkg/errors"

	"github.com/tcfw/permastore/pkg/tx"
)

var (
	// ErrUnsignedTransaction is returned before any network call when a
	// post is attempted on an envelope with no id.
	ErrUnsignedTransaction = tx.ErrUnsignedTransaction

	// ErrStatusCodeNotOk is returned once a post's retry budget is
	// exhausted without a 200.
	ErrStatusCodeNotOk = errors.New("gateway did not accept the request")

	// ErrGetPrice wraps transport failures of the price endpoint.
	ErrGetPrice = errors.New("price lookup failed")

	// ErrTxInfo wraps a non-OK, non-pending status from a read
	// endpoint; the wrapped message carries the HTTP status text.
	ErrTxInfo = errors.New("transaction info request failed")
)
