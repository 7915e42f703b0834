package crypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"io"
	"math/big"

	"github.com/pkg/errors"
)

const (
	// KeyBits is the only key size the network accepts.
	KeyBits = 2048

	// PublicExponent is fixed network-wide.
	PublicExponent = 65537
)

var (
	ErrSigning          = errors.New("signing failed")
	ErrInvalidSignature = errors.New("invalid signature")
)

var pssOpts = &rsa.PSSOptions{
	SaltLength: rsa.PSSSaltLengthEqualsHash,
	Hash:       crypto.SHA256,
}

// Signer holds the wallet keypair. Private material never leaves the
// struct; identity values are derived on demand.
type Signer struct {
	priv *rsa.PrivateKey
	rand io.Reader
}

func NewSigner(priv *rsa.PrivateKey) *Signer {
	return &Signer{priv: priv, rand: rand.Reader}
}

func GenerateSigner(r io.Reader) (*Signer, error) {
	if r == nil {
		r = rand.Reader
	}

	priv, err := rsa.GenerateKey(r, KeyBits)
	if err != nil {
		return nil, errors.Wrap(err, "generating rsa key")
	}

	return &Signer{priv: priv, rand: rand.Reader}, nil
}

// WithRand overrides the salt source. Tests use this for fixed-salt
// vectors; production keeps crypto/rand.
func (s *Signer) WithRand(r io.Reader) *Signer {
	s.rand = r
	return s
}

// PublicKey returns the big-endian modulus of the keypair.
func (s *Signer) PublicKey() []byte {
	return s.priv.PublicKey.N.Bytes()
}

// Address derives the wallet address as SHA-256 of the modulus.
func (s *Signer) Address() []byte {
	h := sha256.Sum256(s.PublicKey())
	return h[:]
}

// Sign digests msg with SHA-256 and signs the digest with RSA-PSS
// (salted, MGF1-SHA256). Signatures are non-deterministic; assert via
// Verify, never byte equality.
func (s *Signer) Sign(msg []byte) ([]byte, error) {
	digest := sha256.Sum256(msg)

	sig, err := rsa.SignPSS(s.rand, s.priv, crypto.SHA256, digest[:], pssOpts)
	if err != nil {
		return nil, errors.Wrap(ErrSigning, err.Error())
	}

	return sig, nil
}

// Verify checks sig over msg against a raw big-endian modulus. Any
// malformed input reports ErrInvalidSignature; callers cannot
// distinguish a bad signature from a bad key.
func Verify(pub, msg, sig []byte) error {
	if len(pub) == 0 || len(sig) == 0 {
		return ErrInvalidSignature
	}

	pk := &rsa.PublicKey{
		N: new(big.Int).SetBytes(pub),
		E: PublicExponent,
	}

	digest := sha256.Sum256(msg)

	if err := rsa.VerifyPSS(pk, crypto.SHA256, digest[:], sig, pssOpts); err != nil {
		return ErrInvalidSignature
	}

	return nil
}
