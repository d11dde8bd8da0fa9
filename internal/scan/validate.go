// Package scan turns decoded QR payloads into scan results: it validates
// the payload as a fetchable URL, applies the PDF filter and derives the
// file name offered for download.
package scan

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

// TrimURL strips leading and trailing spaces and C0 control characters,
// which URL parsers in browsers ignore.
func TrimURL(s string) string {
	return strings.TrimFunc(s, func(r rune) bool { return r <= ' ' })
}

// IsValidURL reports whether s parses as an absolute http or https URL.
// Surrounding whitespace is ignored. It never touches the network.
func IsValidURL(s string) bool {
	u, err := url.Parse(TrimURL(s))
	if err != nil {
		return false
	}
	if !u.IsAbs() || u.Host == "" {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return true
	}
	return false
}

// HasPDFSuffix reports whether the raw text ends in ".pdf", ignoring case.
// The test is literal: a query string or fragment after the suffix makes
// it fail.
func HasPDFSuffix(raw string) bool {
	return strings.HasSuffix(strings.ToLower(raw), ".pdf")
}

// DisplayFilename returns the percent-decoded last "/"-delimited segment of
// raw. A malformed escape, or one that decodes to invalid UTF-8, yields the
// segment unchanged.
func DisplayFilename(raw string) string {
	segment := raw
	if i := strings.LastIndex(raw, "/"); i >= 0 {
		segment = raw[i+1:]
	}
	decoded, err := url.PathUnescape(segment)
	if err != nil || !utf8.ValidString(decoded) {
		return segment
	}
	return decoded
}
