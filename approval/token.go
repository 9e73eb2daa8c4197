// Package approval signs finished posts into approval links and executes them
// once a human clicks.
package approval

import (
	"bytes"
	"compress/gzip"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// maxPayloadBytes caps decompression of untrusted tokens.
const maxPayloadBytes = 1 << 20

// ErrSignatureMismatch means the link was tampered with or forged.
var ErrSignatureMismatch = errors.New("approval link signature is invalid")

// Payload is the minimal data needed to publish later.
type Payload struct {
	Topic string `json:"topic"`
	Text  string `json:"text"`
	Image string `json:"image"`
}

// Validate checks the fields publishing needs.
func (p Payload) Validate() error {
	switch {
	case strings.TrimSpace(p.Text) == "":
		return &PayloadMalformedError{Field: "text"}
	case strings.TrimSpace(p.Image) == "":
		return &PayloadMalformedError{Field: "image"}
	}
	return nil
}

// PayloadMalformedError means the signature verified but the body is unusable,
// which points at a version or client bug rather than tampering.
type PayloadMalformedError struct {
	Field string
	Err   error
}

func (e *PayloadMalformedError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("approval payload is missing %q", e.Field)
	}
	return fmt.Sprintf("approval payload is malformed: %v", e.Err)
}

func (e *PayloadMalformedError) Unwrap() error {
	return e.Err
}

// Encode serialises p as base64url(gzip(json)) without padding.
func Encode(p Payload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode reverses Encode. Every failure is a *PayloadMalformedError.
func Decode(token string) (Payload, error) {
	compressed, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(token, "="))
	if err != nil {
		return Payload{}, &PayloadMalformedError{Err: fmt.Errorf("base64: %w", err)}
	}
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return Payload{}, &PayloadMalformedError{Err: fmt.Errorf("gzip: %w", err)}
	}
	defer zr.Close()
	raw, err := io.ReadAll(io.LimitReader(zr, maxPayloadBytes+1))
	if err != nil {
		return Payload{}, &PayloadMalformedError{Err: fmt.Errorf("gzip: %w", err)}
	}
	if len(raw) > maxPayloadBytes {
		return Payload{}, &PayloadMalformedError{Err: errors.New("payload too large")}
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, &PayloadMalformedError{Err: fmt.Errorf("json: %w", err)}
	}
	return p, nil
}

// Signer holds the shared secret. Possession of a token and its signature is
// the whole authorisation model.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("approval secret is required")
	}
	return &Signer{secret: []byte(secret)}, nil
}

// Sign returns the lowercase hex HMAC-SHA256 of token.
func (s *Signer) Sign(token string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares the hex signature byte for byte in constant time.
func (s *Signer) Verify(token, sig string) error {
	if token == "" || sig == "" {
		return ErrSignatureMismatch
	}
	if !hmac.Equal([]byte(s.Sign(token)), []byte(sig)) {
		return ErrSignatureMismatch
	}
	return nil
}

// Seal encodes and signs p.
func (s *Signer) Seal(p Payload) (token, sig string, err error) {
	if err := p.Validate(); err != nil {
		return "", "", err
	}
	token, err = Encode(p)
	if err != nil {
		return "", "", err
	}
	return token, s.Sign(token), nil
}

// Open verifies before decoding; an untrusted body is never parsed.
func (s *Signer) Open(token, sig string) (Payload, error) {
	if err := s.Verify(token, sig); err != nil {
		return Payload{}, err
	}
	p, err := Decode(token)
	if err != nil {
		return Payload{}, err
	}
	if err := p.Validate(); err != nil {
		return Payload{}, err
	}
	return p, nil
}
