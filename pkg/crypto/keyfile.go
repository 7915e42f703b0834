package crypto

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"os"

	"github.com/pkg/errors"
)

// jwk is the wallet key-file shape: an RSA private key's components,
// each an unpadded base64url string.
type jwk struct {
	Kty string `json:"kty"`
	N   string `json:"n"`
	E   string `json:"e"`
	D   string `json:"d,omitempty"`
	P   string `json:"p,omitempty"`
	Q   string `json:"q,omitempty"`
	Dp  string `json:"dp,omitempty"`
	Dq  string `json:"dq,omitempty"`
	Qi  string `json:"qi,omitempty"`
}

// NewSignerFromFile loads a wallet key file.
func NewSignerFromFile(path string) (*Signer, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading key file")
	}

	return NewSignerFromJWK(b)
}

// NewSignerFromJWK parses a JWK-encoded RSA private key.
func NewSignerFromJWK(b []byte) (*Signer, error) {
	k := &jwk{}
	if err := json.Unmarshal(b, k); err != nil {
		return nil, errors.Wrap(err, "decoding key file")
	}

	if k.Kty != "RSA" {
		return nil, errors.Errorf("unsupported key type %q", k.Kty)
	}

	n, err := b64Int(k.N)
	if err != nil {
		return nil, errors.Wrap(err, "decoding modulus")
	}

	e, err := b64Int(k.E)
	if err != nil {
		return nil, errors.Wrap(err, "decoding exponent")
	}

	d, err := b64Int(k.D)
	if err != nil {
		return nil, errors.Wrap(err, "decoding private exponent")
	}

	p, err := b64Int(k.P)
	if err != nil {
		return nil, errors.Wrap(err, "decoding prime p")
	}

	q, err := b64Int(k.Q)
	if err != nil {
		return nil, errors.Wrap(err, "decoding prime q")
	}

	priv := &rsa.PrivateKey{
		PublicKey: rsa.PublicKey{N: n, E: int(e.Int64())},
		D:         d,
		Primes:    []*big.Int{p, q},
	}
	priv.Precompute()

	if err := priv.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating key")
	}

	return NewSigner(priv), nil
}

// WriteKeyFile serializes the keypair back to the wallet file format.
// Used by keygen only; nothing else exports private material.
func (s *Signer) WriteKeyFile(path string) error {
	priv := s.priv

	k := &jwk{
		Kty: "RSA",
		N:   b64Enc(priv.N),
		E:   b64Enc(big.NewInt(int64(priv.E))),
		D:   b64Enc(priv.D),
		P:   b64Enc(priv.Primes[0]),
		Q:   b64Enc(priv.Primes[1]),
		Dp:  b64Enc(priv.Precomputed.Dp),
		Dq:  b64Enc(priv.Precomputed.Dq),
		Qi:  b64Enc(priv.Precomputed.Qinv),
	}

	b, err := json.MarshalIndent(k, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding key file")
	}

	if err := os.WriteFile(path, b, 0o600); err != nil {
		return errors.Wrap(err, "writing key file")
	}

	return nil
}

func b64Int(s string) (*big.Int, error) {
	if s == "" {
		return nil, errors.New("missing component")
	}

	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}

	return new(big.Int).SetBytes(b), nil
}

func b64Enc(i *big.Int) string {
	return base64.RawURLEncoding.EncodeToString(i.Bytes())
}
