// Package client ties the signer, gateway and uploader together behind
// the surface callers use: create, sign, verify, submit.
package client

import (
	"context"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/tcfw/permastore/internal/journal"
	"github.com/tcfw/permastore/pkg/crypto"
	"github.com/tcfw/permastore/pkg/gateway"
	"github.com/tcfw/permastore/pkg/tx"
	"github.com/tcfw/permastore/pkg/uploader"
)

type Client struct {
	signer *crypto.Signer
	gw     *gateway.Client
	up     *uploader.Uploader
}

type config struct {
	signer      *crypto.Signer
	walletPath  string
	baseURL     string
	httpClient  *http.Client
	gwOpts      []gateway.Option
	upOpts      []uploader.Option
	journalPath string
}

type Option func(*config)

func WithSigner(s *crypto.Signer) Option {
	return func(c *config) { c.signer = s }
}

func WithWalletFile(path string) Option {
	return func(c *config) { c.walletPath = path }
}

func WithGatewayURL(u string) Option {
	return func(c *config) { c.baseURL = u }
}

// WithHTTPClient shares one transport across every gateway call,
// including concurrent chunk posts.
func WithHTTPClient(h *http.Client) Option {
	return func(c *config) { c.httpClient = h }
}

func WithGatewayOptions(opts ...gateway.Option) Option {
	return func(c *config) { c.gwOpts = append(c.gwOpts, opts...) }
}

func WithUploaderOptions(opts ...uploader.Option) Option {
	return func(c *config) { c.upOpts = append(c.upOpts, opts...) }
}

// WithJournal enables resumable chunked submissions, persisted at
// path.
func WithJournal(path string) Option {
	return func(c *config) { c.journalPath = path }
}

// New builds a client. Exactly one key source applies: an explicit
// signer, a wallet file, or (neither given) a freshly generated key.
func New(opts ...Option) (*Client, error) {
	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	signer := cfg.signer
	if signer == nil && cfg.walletPath != "" {
		s, err := crypto.NewSignerFromFile(cfg.walletPath)
		if err != nil {
			return nil, errors.Wrap(err, "loading wallet")
		}
		signer = s
	}
	if signer == nil {
		s, err := crypto.GenerateSigner(nil)
		if err != nil {
			return nil, errors.Wrap(err, "generating wallet")
		}
		signer = s
	}

	gwOpts := cfg.gwOpts
	if cfg.httpClient != nil {
		gwOpts = append(gwOpts, gateway.WithHTTPClient(cfg.httpClient))
	}

	gw, err := gateway.NewClient(cfg.baseURL, gwOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "building gateway client")
	}

	upOpts := cfg.upOpts
	if cfg.journalPath != "" {
		jrnl, err := journal.Open(cfg.journalPath)
		if err != nil {
			return nil, errors.Wrap(err, "opening journal")
		}
		upOpts = append(upOpts, uploader.WithJournal(jrnl))
	}

	return &Client{
		signer: signer,
		gw:     gw,
		up:     uploader.New(gw, upOpts...),
	}, nil
}

func (c *Client) Signer() *crypto.Signer {
	return c.signer
}

// Address is the wallet address in wire encoding.
func (c *Client) Address() string {
	return tx.Base64(c.signer.Address()).String()
}

// CreateTransaction fetches a fresh anchor and builds an unsigned
// envelope. A zero reward is filled from a gateway price quote.
func (c *Client) CreateTransaction(ctx context.Context, target tx.Base64, tags []tx.Tag, data []byte, quantity, reward tx.Amount, autoContentTag bool) (*tx.Transaction, error) {
	anchor, err := c.gw.Anchor(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fetching anchor")
	}

	if reward == 0 {
		reward, err = c.gw.Price(ctx, len(data), target)
		if err != nil {
			return nil, errors.Wrap(err, "quoting reward")
		}
	}

	t, err := tx.New(c.signer.PublicKey(), target, data, quantity, reward, anchor, tags, autoContentTag)
	if err != nil {
		return nil, errors.Wrap(err, "building transaction")
	}

	return t, nil
}

// SignTransaction signs the envelope's digest and fixes its id.
func (c *Client) SignTransaction(t *tx.Transaction) error {
	sig, err := c.signer.Sign(t.SignatureData())
	if err != nil {
		return err
	}

	return t.SetSignature(sig)
}

// VerifyTransaction checks the envelope's signature against its owner
// key.
func (c *Client) VerifyTransaction(t *tx.Transaction) error {
	if !t.IsSigned() {
		return tx.ErrUnsignedTransaction
	}

	return crypto.Verify(t.Owner, t.SignatureData(), t.Signature)
}

// Submit posts a signed envelope, inline or chunked as its size
// demands.
func (c *Client) Submit(ctx context.Context, t *tx.Transaction) (*uploader.Outcome, error) {
	return c.up.Submit(ctx, t)
}

// Resume continues an interrupted chunked submission.
func (c *Client) Resume(ctx context.Context, t *tx.Transaction) (*uploader.Outcome, error) {
	return c.up.Resume(ctx, t)
}

// UploadFile reads a file, tags its content type from the extension
// when recognised, then creates, signs and submits in one pass.
func (c *Client) UploadFile(ctx context.Context, path string, tags []tx.Tag, reward tx.Amount) (*uploader.Outcome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading file")
	}

	autoContentTag := true
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		autoContentTag = false
		tags = append(tags, tx.NewTag("Content-Type", ct))
	}

	t, err := c.CreateTransaction(ctx, nil, tags, data, 0, reward, autoContentTag)
	if err != nil {
		return nil, err
	}

	if err := c.SignTransaction(t); err != nil {
		return nil, errors.Wrap(err, "signing transaction")
	}

	return c.Submit(ctx, t)
}

// Price quotes the reward for storing dataLen bytes.
func (c *Client) Price(ctx context.Context, dataLen int, target tx.Base64) (tx.Amount, error) {
	return c.gw.Price(ctx, dataLen, target)
}

func (c *Client) Tx(ctx context.Context, id tx.Base64) (gateway.State, *tx.Transaction, error) {
	return c.gw.Tx(ctx, id)
}

func (c *Client) TxData(ctx context.Context, id tx.Base64) (gateway.State, []byte, error) {
	return c.gw.TxData(ctx, id)
}

func (c *Client) TxStatus(ctx context.Context, id tx.Base64) (gateway.State, *tx.StatusRecord, error) {
	return c.gw.TxStatus(ctx, id)
}

func (c *Client) Info(ctx context.Context) (*gateway.NetworkInfo, error) {
	return c.gw.Info(ctx)
}
