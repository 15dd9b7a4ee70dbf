// Package urlx normalizes website URLs into the bare registrable host used
// as the final_url key of history documents.
package urlx

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
)

var (
	ErrEmptyURL   = errors.New("urlx: url is empty")
	ErrInvalidURL = errors.New("urlx: url is not a valid website url")
)

// Hostname labels: letters, digits and inner hyphens.
var labelRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// Normalize canonicalizes a raw website URL into its bare host:
// lower-cased, scheme/port/path/query stripped, leading "www." removed.
// The host must end in an ICANN-listed public suffix, so bare words
// ("asddsadsdsd") and unknown TLDs are rejected.
func Normalize(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", ErrEmptyURL
	}

	// Tolerate scheme-less input ("foo.bar/about").
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}

	host := strings.TrimSuffix(u.Hostname(), ".")
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}

	// IP addresses are not business websites.
	if net.ParseIP(host) != nil {
		return "", fmt.Errorf("%w: %q is an ip address", ErrInvalidURL, raw)
	}

	suffix, icann := publicsuffix.PublicSuffix(host)
	if !icann {
		return "", fmt.Errorf("%w: %q has no recognized tld", ErrInvalidURL, raw)
	}
	if host == suffix {
		return "", fmt.Errorf("%w: %q is a bare tld", ErrInvalidURL, raw)
	}

	for _, label := range strings.Split(host, ".") {
		if !labelRe.MatchString(label) {
			return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
		}
	}

	return host, nil
}
