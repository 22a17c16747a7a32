package querystring

// ArrayFormat selects how keys carrying array notation are merged.
type ArrayFormat int

const (
	// ArrayFormatNone treats every key literally. Repeated keys are merged
	// into a sequence in order of appearance.
	ArrayFormatNone ArrayFormat = iota
	// ArrayFormatBracket appends values of keys ending in "[]" to a sequence
	// stored under the key without the brackets: a[]=1&a[]=2 -> a: [1 2].
	ArrayFormatBracket
	// ArrayFormatIndex collects values of keys ending in "[n]" and rebuilds
	// them as a sequence ordered by n: a[1]=x&a[0]=y -> a: [y x].
	ArrayFormatIndex
)

func (f ArrayFormat) String() string {
	switch f {
	case ArrayFormatBracket:
		return "bracket"
	case ArrayFormatIndex:
		return "index"
	default:
		return "none"
	}
}

// Options defines configurable behavior for parsing.
//
// Separators: characters used to split pairs. Defaults to '&'.
// ArrayFormat: array notation understood in keys. Defaults to ArrayFormatNone.
// Lenient: if false, malformed percent-escapes fail the whole parse with a *DecodeError.
//          if true, invalid escape sequences are kept literally.
//
// Note: Parse uses DefaultOptions.
type Options struct {
	Separators  []rune
	ArrayFormat ArrayFormat
	Lenient     bool
}

// DefaultOptions used by Parse.
var DefaultOptions = Options{
	Separators:  []rune{'&'},
	ArrayFormat: ArrayFormatNone,
	Lenient:     false,
}
