package querystring

import (
	"sort"
	"strconv"
	"strings"
)

// indexed holds the values of index-notation keys (a[0], a[1], ...) until
// they are rebuilt into a sequence by sortIndexed.
type indexed map[string]any

// formatter merges one decoded pair into the accumulator.
type formatter func(acc map[string]any, key string, value any)

func formatterFor(f ArrayFormat) formatter {
	switch f {
	case ArrayFormatBracket:
		return mergeBracket
	case ArrayFormatIndex:
		return mergeIndex
	default:
		return mergeRepeated
	}
}

// mergeRepeated stores the first occurrence of a key as is and turns later
// occurrences into a sequence.
func mergeRepeated(acc map[string]any, key string, value any) {
	existing, ok := acc[key]
	if !ok {
		acc[key] = value
		return
	}
	acc[key] = concat(existing, value)
}

// mergeBracket appends values of "key[]" to the sequence under "key".
// Keys without the suffix are last-wins.
func mergeBracket(acc map[string]any, key string, value any) {
	base, ok := strings.CutSuffix(key, "[]")
	if !ok {
		acc[key] = value
		return
	}
	existing, ok := acc[base]
	if !ok {
		acc[base] = []any{value}
		return
	}
	acc[base] = concat(existing, value)
}

// mergeIndex records values of "key[n]" under index n of "key".
// Keys without the suffix are last-wins.
func mergeIndex(acc map[string]any, key string, value any) {
	base, idx, ok := splitIndexSuffix(key)
	if !ok {
		acc[key] = value
		return
	}
	m, isIndexed := acc[base].(indexed)
	if !isIndexed {
		m = make(indexed)
		acc[base] = m
	}
	m[idx] = value
}

// concat joins existing and value into a fresh sequence, flattening either
// side when it already is one.
func concat(existing, value any) []any {
	var out []any
	if s, ok := existing.([]any); ok {
		out = append(out, s...)
	} else {
		out = append(out, existing)
	}
	if s, ok := value.([]any); ok {
		out = append(out, s...)
	} else {
		out = append(out, value)
	}
	return out
}

// splitIndexSuffix splits "a[12]" into "a" and "12". The index may be empty
// ("a[]"), but must otherwise consist of digits only.
func splitIndexSuffix(key string) (string, string, bool) {
	if !strings.HasSuffix(key, "]") {
		return "", "", false
	}
	i := strings.LastIndexByte(key, '[')
	if i < 0 {
		return "", "", false
	}
	idx := key[i+1 : len(key)-1]
	if !isDigits(idx) {
		return "", "", false
	}
	return key[:i], idx, true
}

// isDigits reports whether s consists of ASCII digits only. The empty string qualifies.
func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// sortIndexed rebuilds an index mapping as a sequence ordered by the
// numeric value of its keys. Keys with equal numeric value ("1", "01")
// keep their lexicographic order.
func sortIndexed(m indexed) []any {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	sort.SliceStable(keys, func(i, j int) bool {
		return indexValue(keys[i]) < indexValue(keys[j])
	})
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = m[k]
	}
	return out
}

// indexValue is the numeric value of an index key. The empty index is 0 and
// indices too large for a float64 saturate at +Inf.
func indexValue(k string) float64 {
	if k == "" {
		return 0
	}
	f, _ := strconv.ParseFloat(k, 64)
	return f
}
