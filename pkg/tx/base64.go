package tx

import (
	"encoding/base64"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
)

// Base64 is a byte field that crosses the wire as an unpadded base64url
// string, the gateway's encoding for ids, owners, roots and tag parts.
type Base64 []byte

func (b Base64) String() string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func DecodeBase64(s string) (Base64, error) {
	d, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(err, "decoding base64url")
	}

	return Base64(d), nil
}

func (b Base64) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

func (b *Base64) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	d, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return errors.Wrap(err, "decoding base64url field")
	}

	*b = d

	return nil
}

// Amount is a quantity denominated in the network's smallest unit. The
// gateway encodes amounts as decimal strings.
type Amount uint64

func (a Amount) String() string {
	return strconv.FormatUint(uint64(a), 10)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// some endpoints return bare numbers
		var u uint64
		if err2 := json.Unmarshal(data, &u); err2 != nil {
			return errors.Wrap(err, "decoding amount")
		}
		*a = Amount(u)
		return nil
	}

	u, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return errors.Wrap(err, "decoding amount")
	}

	*a = Amount(u)

	return nil
}
