package approval

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	ApprovePath = "/approve"
	dataParam   = "data"
	sigParam    = "sig"
)

// BuildURL returns <base>/approve?data=<token>&sig=<sig>.
func BuildURL(base, token, sig string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("approval base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("approval base url %q must be absolute", base)
	}
	u.Path += ApprovePath
	q := url.Values{}
	q.Set(dataParam, token)
	q.Set(sigParam, sig)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// FromQuery extracts token and signature from request query values.
func FromQuery(q url.Values) (token, sig string) {
	return q.Get(dataParam), q.Get(sigParam)
}

// ParseURL extracts token and signature from a full approval link.
func ParseURL(raw string) (token, sig string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", err
	}
	token, sig = FromQuery(u.Query())
	if token == "" || sig == "" {
		return "", "", errors.New("approval link needs data and sig parameters")
	}
	return token, sig, nil
}
