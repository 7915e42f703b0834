// Package gateway is the HTTP façade over a single storage-network
// gateway. It owns per-call retry and status classification; nothing
// here persists state between calls.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	"github.com/pkg/errors"

	"github.com/tcfw/permastore/internal/utils/logging"
	"github.com/tcfw/permastore/pkg/tx"
)

const (
	DefaultBaseURL = "https://arweave.net/"

	// DefaultRetries and DefaultRetryWait bound every post's retry
	// loop: attempts * wait is the wall-clock ceiling.
	DefaultRetries   = 10
	DefaultRetryWait = 30 * time.Second
)

// State classifies a read endpoint's response.
type State int

const (
	StateOK State = iota
	StatePending
)

type Client struct {
	base    *url.URL
	http    *http.Client
	retries int
	wait    time.Duration
}

type Option func(*Client)

// WithHTTPClient shares an existing transport; the client never
// mutates it, so one instance can back any number of concurrent calls.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithRetries(n int) Option {
	return func(c *Client) { c.retries = n }
}

func WithRetryWait(d time.Duration) Option {
	return func(c *Client) { c.wait = d }
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing gateway url")
	}

	c := &Client{
		base:    u,
		http:    &http.Client{},
		retries: DefaultRetries,
		wait:    DefaultRetryWait,
	}

	for _, o := range opts {
		o(c)
	}

	return c, nil
}

func (c *Client) endpoint(parts ...string) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.Join(parts, "/")
	return u.String()
}

// Anchor fetches a recent anchor value for a new transaction. No local
// retry; callers retry at their own level if they care.
func (c *Client) Anchor(ctx context.Context) (tx.Base64, error) {
	body, err := c.getBody(ctx, c.endpoint("tx_anchor"))
	if err != nil {
		return nil, errors.Wrap(err, "fetching anchor")
	}

	anchor, err := tx.DecodeBase64(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, errors.Wrap(err, "decoding anchor")
	}

	return anchor, nil
}

// Price quotes the reward for storing dataLen bytes, optionally
// directed at a target address.
func (c *Client) Price(ctx context.Context, dataLen int, target tx.Base64) (tx.Amount, error) {
	var ep string
	if len(target) > 0 {
		ep = c.endpoint("price", fmt.Sprintf("%d", dataLen), target.String())
	} else {
		ep = c.endpoint("price", fmt.Sprintf("%d", dataLen))
	}

	body, err := c.getBody(ctx, ep)
	if err != nil {
		return 0, errors.Wrap(ErrGetPrice, err.Error())
	}

	var reward tx.Amount
	if err := reward.UnmarshalJSON(bytes.TrimSpace(body)); err != nil {
		return 0, errors.Wrap(ErrGetPrice, err.Error())
	}

	return reward, nil
}

// NetworkInfo is the gateway's self-report from /info.
type NetworkInfo struct {
	Network string `json:"network"`
	Version int    `json:"version"`
	Release int    `json:"release"`
	Height  uint64 `json:"height"`
	Current string `json:"current"`
	Blocks  uint64 `json:"blocks"`
	Peers   int    `json:"peers"`
}

func (c *Client) Info(ctx context.Context) (*NetworkInfo, error) {
	body, err := c.getBody(ctx, c.endpoint("info"))
	if err != nil {
		return nil, errors.Wrap(err, "fetching network info")
	}

	info := &NetworkInfo{}
	if err := json.Unmarshal(body, info); err != nil {
		return nil, errors.Wrap(err, "decoding network info")
	}

	return info, nil
}

// SubmitTx posts a signed envelope. Any non-200 response burns one
// attempt; the loop sleeps a fixed cadence between attempts and gives
// up with ErrStatusCodeNotOk once the budget is spent. An unsigned
// envelope fails before any network traffic.
func (c *Client) SubmitTx(ctx context.Context, t *tx.Transaction) (tx.Base64, tx.Amount, error) {
	if !t.IsSigned() {
		return nil, 0, ErrUnsignedTransaction
	}

	body, err := json.Marshal(t)
	if err != nil {
		return nil, 0, errors.Wrap(err, "encoding transaction")
	}

	if err := c.postWithRetries(ctx, c.endpoint("tx"), body, "tx", t.ID.String()); err != nil {
		return nil, 0, err
	}

	return t.ID, t.Reward, nil
}

// SubmitChunk posts one chunk under the same retry discipline as
// SubmitTx.
func (c *Client) SubmitChunk(ctx context.Context, ch *tx.Chunk) error {
	body, err := json.Marshal(ch)
	if err != nil {
		return errors.Wrap(err, "encoding chunk")
	}

	return c.postWithRetries(ctx, c.endpoint("chunk"), body, "chunk", ch.Offset.String())
}

func (c *Client) postWithRetries(ctx context.Context, ep string, body []byte, kind, ref string) error {
	bo := &backoff.Backoff{Min: c.wait, Max: c.wait}

	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(bo.Duration()):
			}
		}

		status, err := c.postJSON(ctx, ep, body)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			logging.WithError(err).
				WithField(kind, ref).
				WithField("attempt", attempt+1).
				Debug("post failed")
			continue
		}

		if status == http.StatusOK {
			return nil
		}

		logging.Entry().
			WithField(kind, ref).
			WithField("status", status).
			WithField("attempt", attempt+1).
			Debug("gateway rejected post")
	}

	return ErrStatusCodeNotOk
}

// Tx fetches a transaction envelope. A pending transaction reports
// StatePending with a nil envelope.
func (c *Client) Tx(ctx context.Context, id tx.Base64) (State, *tx.Transaction, error) {
	var t *tx.Transaction

	state, err := c.getTriState(ctx, c.endpoint("tx", id.String()), func(body []byte) error {
		t = &tx.Transaction{}
		return json.Unmarshal(body, t)
	})
	if err != nil {
		return state, nil, err
	}

	return state, t, nil
}

// TxData fetches the stored payload, decoding the base64url body.
func (c *Client) TxData(ctx context.Context, id tx.Base64) (State, []byte, error) {
	var data []byte

	state, err := c.getTriState(ctx, c.endpoint("tx", id.String(), "data"), func(body []byte) error {
		d, err := tx.DecodeBase64(strings.TrimSpace(string(body)))
		if err != nil {
			return err
		}
		data = d
		return nil
	})
	if err != nil {
		return state, nil, err
	}

	return state, data, nil
}

// TxStatus fetches the confirmation record.
func (c *Client) TxStatus(ctx context.Context, id tx.Base64) (State, *tx.StatusRecord, error) {
	var rec *tx.StatusRecord

	state, err := c.getTriState(ctx, c.endpoint("tx", id.String(), "status"), func(body []byte) error {
		rec = &tx.StatusRecord{}
		return json.Unmarshal(body, rec)
	})
	if err != nil {
		return state, nil, err
	}

	return state, rec, nil
}

// getTriState applies the shared OK / pending / error partition used
// by every read endpoint.
func (c *Client) getTriState(ctx context.Context, ep string, decode func([]byte) error) (State, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep, nil)
	if err != nil {
		return StateOK, errors.Wrap(err, "building request")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return StateOK, errors.Wrap(err, "sending request")
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(res.Body)
		if err != nil {
			return StateOK, errors.Wrap(err, "reading response")
		}

		if err := decode(body); err != nil {
			return StateOK, errors.Wrap(ErrTxInfo, err.Error())
		}

		return StateOK, nil
	case http.StatusAccepted:
		return StatePending, nil
	default:
		return StateOK, errors.Wrap(ErrTxInfo, res.Status)
	}
}

func (c *Client) getBody(ctx context.Context, ep string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "sending request")
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected status %s", res.Status)
	}

	return io.ReadAll(res.Body)
}

func (c *Client) postJSON(ctx context.Context, ep string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep, bytes.NewReader(body))
	if err != nil {
		return 0, errors.Wrap(err, "building request")
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "sending request")
	}
	defer res.Body.Close()

	io.Copy(io.Discard, res.Body)

	return res.StatusCode, nil
}
