// Package querystring decodes URL query strings into ordered, merged
// parameter sets.
package querystring

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	// ErrInvalidPercent is wrapped by a DecodeError when a '%' is not followed by two hex digits.
	ErrInvalidPercent = errors.New("invalid percent-escape")
	// ErrInvalidUTF8 is wrapped by a DecodeError when escapes decode to invalid UTF-8.
	ErrInvalidUTF8 = errors.New("escape sequence is not valid UTF-8")
)

// DecodeError reports a key or value that could not be percent-decoded.
type DecodeError struct {
	Input string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("querystring: cannot decode %q: %v", e.Input, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Extract returns the part of rawURL following its first '?', or "" when
// there is none.
func Extract(rawURL string) string {
	i := strings.IndexByte(rawURL, '?')
	if i < 0 {
		return ""
	}
	return rawURL[i+1:]
}

// Parse decodes a raw query string using DefaultOptions:
// - Pairs split on '&'; '+' means space; only the first '=' separates key and value
// - A key without '=' is a flag and maps to nil
// - Repeated keys merge into a []any in order of appearance
// - Keys of the result iterate in sorted order
func Parse(raw string) (*Params, error) {
	return ParseWithOptions(raw, DefaultOptions)
}

// ParseWithOptions is like Parse but allows configuration via Options.
func ParseWithOptions(raw string, opts Options) (*Params, error) {
	if len(opts.Separators) == 0 {
		opts.Separators = DefaultOptions.Separators
	}
	acc := make(map[string]any)

	raw = trimQuery(raw)
	if raw == "" {
		return newParams(acc), nil
	}

	merge := formatterFor(opts.ArrayFormat)
	for _, frag := range splitBySeparators(raw, opts.Separators) {
		if frag == "" {
			// consecutive or trailing separators
			continue
		}
		k, v, hasEq := splitPair(strings.ReplaceAll(frag, "+", " "))

		key, err := decode(k, opts.Lenient)
		if err != nil {
			return nil, &DecodeError{Input: k, Err: err}
		}
		var val any
		if hasEq {
			dv, err := decode(v, opts.Lenient)
			if err != nil {
				return nil, &DecodeError{Input: v, Err: err}
			}
			val = dv
		}
		merge(acc, key, val)
	}

	return newParams(acc), nil
}

// trimQuery drops surrounding whitespace and a single leading '?', '#' or '&'.
func trimQuery(s string) string {
	s = strings.TrimSpace(s)
	if s != "" && strings.IndexByte("?#&", s[0]) >= 0 {
		s = s[1:]
	}
	return s
}

// splitPair splits a raw pair into key and value, only on the first '='.
// Returns key, value, and a boolean indicating if '=' existed.
func splitPair(s string) (string, string, bool) {
	if i := strings.IndexByte(s, '='); i >= 0 {
		return s[:i], s[i+1:], true
	}
	return s, "", false
}

// splitBySeparators splits s by any rune in seps. Empty segments may be
// returned; the caller skips them.
func splitBySeparators(s string, seps []rune) []string {
	if len(seps) == 1 {
		return strings.Split(s, string(seps[0]))
	}
	return strings.FieldsFunc(s, func(r rune) bool {
		for _, sep := range seps {
			if r == sep {
				return true
			}
		}
		return false
	})
}

// decode reverses %XX escapes. '+' has already been turned into a space by
// the caller, so it is not treated specially here.
func decode(s string, lenient bool) (string, error) {
	d, err := url.PathUnescape(s)
	if err != nil {
		if lenient {
			return lenientDecode(s), nil
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidPercent, err)
	}
	if !utf8.ValidString(d) {
		if lenient {
			return d, nil
		}
		return "", ErrInvalidUTF8
	}
	return d, nil
}

// lenientDecode decodes valid %XX hex escapes and keeps invalid '%' sequences literally.
func lenientDecode(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			v, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
			if err == nil {
				out = append(out, byte(v))
				i += 2
				continue
			}
		}
		out = append(out, c)
	}
	return string(out)
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
