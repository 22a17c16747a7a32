package querystring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Separators and pairs
func TestAudit_Separators_EmptySegmentsAndTrailing(t *testing.T) {
	cases := []struct {
		in   string
		out  map[string]any
		name string
	}{
		{"a=1&&b=2", map[string]any{"a": "1", "b": "2"}, "double_ampersand"},
		{"a=1&b=2&", map[string]any{"a": "1", "b": "2"}, "trailing_ampersand"},
		{"&&a=1", map[string]any{"a": "1"}, "leading_ampersands"},
		{"a=1;b=2", map[string]any{"a": "1;b=2"}, "semicolon_is_not_a_separator"},
	}
	for _, c := range cases {
		got, err := Parse(c.in)
		require.NoError(t, err, c.name)
		assert.Equal(t, c.out, got.Values(), c.name)
	}
}

func TestAudit_OnlyOneLeadingCharacterTrimmed(t *testing.T) {
	got, err := Parse("??a=1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"?a": "1"}, got.Values())

	got, err = Parse("?#a=1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"#a": "1"}, got.Values())
}

func TestAudit_KeysAreNotTrimmed(t *testing.T) {
	got, err := Parse("a+=1&+b=2")
	require.NoError(t, err)
	assert.Equal(t, []string{" b", "a "}, got.Keys())
}

func TestAudit_EncodedSeparatorsStayInValue(t *testing.T) {
	got, err := Parse("a=x%26y%3Dz&b=%3F")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": "x&y=z", "b": "?"}, got.Values())
}

func TestAudit_EncodedKeysMergeWithPlainKeys(t *testing.T) {
	got, err := Parse("a=1&%61=2")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": []any{"1", "2"}}, got.Values())
}

func TestAudit_NoArrayNotationByDefault(t *testing.T) {
	got, err := Parse("a[]=1&a[]=2&b[1]=x")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a[]": []any{"1", "2"}, "b[1]": "x"}, got.Values())
}

func TestAudit_IndexFormatNonNumericSuffix(t *testing.T) {
	opts := DefaultOptions
	opts.ArrayFormat = ArrayFormatIndex
	got, err := ParseWithOptions("a[x]=1&a[0]=2&a[0]=3", opts)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a[x]": "1", "a": []any{"3"}}, got.Values())
}

func TestAudit_IndexFormatFlagElements(t *testing.T) {
	opts := DefaultOptions
	opts.ArrayFormat = ArrayFormatIndex
	got, err := ParseWithOptions("a[1]=x&a[0]", opts)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": []any{nil, "x"}}, got.Values())
}

func TestAudit_BracketFormatMergesWithPlainKey(t *testing.T) {
	opts := DefaultOptions
	opts.ArrayFormat = ArrayFormatBracket
	got, err := ParseWithOptions("a=0&a[]=1", opts)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": []any{"0", "1"}}, got.Values())
}

func TestAudit_DecodeErrorNamesInput(t *testing.T) {
	_, err := Parse("ok=1&bad=%E0%A4%A")
	require.Error(t, err)
	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, "%E0%A4%A", decErr.Input)
}

func TestAudit_ArrayFormatString(t *testing.T) {
	assert.Equal(t, "none", ArrayFormatNone.String())
	assert.Equal(t, "bracket", ArrayFormatBracket.String())
	assert.Equal(t, "index", ArrayFormatIndex.String())
}
