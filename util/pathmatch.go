package util

import (
	"net/url"
	"strings"
)

// Separator is the path separator used by container paths and remote addresses.
const Separator = "/"

// WithTrailingSlash returns p with exactly one trailing separator added if it
// has none. Existing trailing separators are left alone.
func WithTrailingSlash(p string) string {
	if strings.HasSuffix(p, Separator) {
		return p
	}
	return p + Separator
}

// Unescape percent-decodes s the way browsers decode URI components: '+' is
// not treated as a space, and a malformed escape is reported as an error.
func Unescape(s string) (string, error) {
	return url.PathUnescape(s)
}

// Normalize ensures a trailing separator and percent-decodes the result.
// If the text cannot be decoded it is returned with only the separator fix.
func Normalize(p string) string {
	p = WithTrailingSlash(p)
	decoded, err := Unescape(p)
	if err != nil {
		return p
	}
	return decoded
}

// Equal reports whether two path-like strings name the same location.
//
// The normalized forms are compared first. If they differ, both are decoded
// once more and compared again, which absorbs double-encoded input such as
// "%2520". A decoding failure in that second pass is a non-match.
func Equal(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return true
	}
	da, err := Unescape(na)
	if err != nil {
		return false
	}
	db, err := Unescape(nb)
	if err != nil {
		return false
	}
	return da == db
}

// EqualAddress compares two remote addresses after trailing-slash
// normalization only, falling back to a decoded comparison. Unlike Equal it
// does not decode before the first comparison, so an exact textual match is
// always tried first.
func EqualAddress(a, b string) bool {
	na, nb := WithTrailingSlash(a), WithTrailingSlash(b)
	if na == nb {
		return true
	}
	da, err := Unescape(na)
	if err != nil {
		return false
	}
	db, err := Unescape(nb)
	if err != nil {
		return false
	}
	return da == db
}
