package querystring

import (
	"bytes"
	"encoding/json"
	"net/url"
	"sort"
	"strings"
)

// Params is an immutable, key-ordered set of decoded query parameters.
// A value is nil (flag), a string (single occurrence) or a []any of strings
// and nils (repeated key). Keys iterate in sorted byte order.
type Params struct {
	keys   []string
	values map[string]any
}

// newParams takes ownership of acc and rebuilds it in sorted key order,
// turning index mappings into sequences.
func newParams(acc map[string]any) *Params {
	keys := make([]string, 0, len(acc))
	for k := range acc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make(map[string]any, len(acc))
	for _, k := range keys {
		v := acc[k]
		if m, ok := v.(indexed); ok {
			v = sortIndexed(m)
		}
		values[k] = v
	}
	return &Params{keys: keys, values: values}
}

// Len returns the number of distinct keys.
func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Keys returns the keys in sorted order.
func (p *Params) Keys() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.keys...)
}

// Has reports whether key occurred in the query, with or without a value.
func (p *Params) Has(key string) bool {
	if p == nil {
		return false
	}
	_, ok := p.values[key]
	return ok
}

// Get returns a copy of the value stored under key.
func (p *Params) Get(key string) (any, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p.values[key]
	if !ok {
		return nil, false
	}
	return cloneValue(v), true
}

// Lookup returns the value of key when it occurred exactly once with a
// value. Flags and repeated keys report false.
func (p *Params) Lookup(key string) (string, bool) {
	if p == nil {
		return "", false
	}
	s, ok := p.values[key].(string)
	return s, ok
}

// Each calls fn for every key in sorted order until fn returns false.
func (p *Params) Each(fn func(key string, value any) bool) {
	if p == nil {
		return
	}
	for _, k := range p.keys {
		if !fn(k, cloneValue(p.values[k])) {
			return
		}
	}
}

// Values returns a deep copy of the parameters as a plain map.
func (p *Params) Values() map[string]any {
	out := make(map[string]any, p.Len())
	p.Each(func(k string, v any) bool {
		out[k] = v
		return true
	})
	return out
}

// Encode serializes the parameters back into a query string, keys in
// sorted order. Flags are written as a bare key and sequences as repeated
// keys, so that Parse(p.Encode()) yields p again.
func (p *Params) Encode() string {
	var b strings.Builder
	write := func(k string, v any) {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		if s, ok := v.(string); ok {
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(s))
		}
	}
	if p == nil {
		return ""
	}
	for _, k := range p.keys {
		switch v := p.values[k].(type) {
		case []any:
			for _, e := range v {
				write(k, e)
			}
		default:
			write(k, v)
		}
	}
	return b.String()
}

// String implements fmt.Stringer.
func (p *Params) String() string {
	return p.Encode()
}

// MarshalJSON encodes the parameters as a JSON object with keys in sorted order.
func (p *Params) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range p.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(p.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Stringify is shorthand for p.Encode.
func Stringify(p *Params) string {
	return p.Encode()
}

// cloneValue copies sequences so callers cannot mutate stored values.
// Elements are strings or nil, so a shallow copy is enough.
func cloneValue(v any) any {
	if s, ok := v.([]any); ok {
		return append([]any(nil), s...)
	}
	return v
}
