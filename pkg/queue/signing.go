package queue

import (
	"bytes"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Signer serializes values to signed packages and verifies them on the way back.
// A package is base64url(JSON) "." base64url(BLAKE2b-256 keyed MAC).
type Signer struct {
	key []byte
}

// NewSigner derives the MAC key from secret.
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	key := []byte(secret)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	return &Signer{key: key}, nil
}

// Dumps marshals v to JSON and signs it.
func (s *Signer) Dumps(v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal package of type %T: %w", v, err)
	}
	mac, err := s.sign(body)
	if err != nil {
		return nil, err
	}

	enc := base64.RawURLEncoding
	out := make([]byte, enc.EncodedLen(len(body))+1+enc.EncodedLen(len(mac)))
	enc.Encode(out, body)
	n := enc.EncodedLen(len(body))
	out[n] = '.'
	enc.Encode(out[n+1:], mac)
	return out, nil
}

// Loads verifies data and unmarshals the body into v.
func (s *Signer) Loads(data []byte, v any) error {
	i := bytes.LastIndexByte(data, '.')
	if i <= 0 || i == len(data)-1 {
		return ErrMalformedPackage
	}

	enc := base64.RawURLEncoding
	body := make([]byte, enc.DecodedLen(i))
	n, err := enc.Decode(body, data[:i])
	if err != nil {
		return errors.Join(ErrMalformedPackage, err)
	}
	body = body[:n]

	got := make([]byte, enc.DecodedLen(len(data)-i-1))
	m, err := enc.Decode(got, data[i+1:])
	if err != nil {
		return errors.Join(ErrMalformedPackage, err)
	}

	want, err := s.sign(body)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(got[:m], want) != 1 {
		return ErrBadSignature
	}

	if err := json.Unmarshal(body, v); err != nil {
		return errors.Join(ErrMalformedPackage, err)
	}
	return nil
}

func (s *Signer) sign(body []byte) ([]byte, error) {
	h, err := blake2b.New256(s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create package hash: %w", err)
	}
	h.Write(body)
	return h.Sum(nil), nil
}
