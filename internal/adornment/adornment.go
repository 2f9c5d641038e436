// Package adornment assigns reST title adornments to heading depths.
//
// A specification is a string of two-character pairs. The first character of
// a pair is 'o' (overline and underline) or 'u' (underline only); the second
// is the punctuation character used for the line. The first pair styles the
// document title, the second the subtitle, and the remaining pairs style
// section titles starting with the top level section.
package adornment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Characters are the punctuation characters accepted for adornments: the
// printable ASCII punctuation except backslash.
const Characters = "!\"#$%&'()*+,-./:;<=>?@[]^_`{|}~"

// DefaultSpec is used when no specification is configured.
const DefaultSpec = `o#o*u=u-u~u"u'u^u+u:`

const (
	// DocumentDepth is the depth of the document title.
	DocumentDepth = 0
	// SubtitleDepth is the depth of the document subtitle.
	SubtitleDepth = 1
	// SectionDepth is the depth of a top level section title.
	SectionDepth = 2
)

var (
	ErrInvalidSpec    = errors.New("invalid adornment specification")
	ErrDepthExhausted = errors.New("adornment depth exhausted")
)

// ConfigError describes why a specification string was rejected.
type ConfigError struct {
	Spec   string
	Pos    int
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid adornment %q at position %d: %s", e.Spec, e.Pos, e.Reason)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidSpec
}

// DepthError reports a title nested deeper than the specification provides for.
type DepthError struct {
	Depth     int
	Available int
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("title depth %d needs adornment pair %d but only %d configured", e.Depth, e.Depth+1, e.Available)
}

func (e *DepthError) Is(target error) bool {
	return target == ErrDepthExhausted
}

// Placement says where adornment lines go relative to the title text.
type Placement byte

const (
	Underline Placement = 'u'
	Overline  Placement = 'o' // overline and underline
)

// Pair is one adornment style.
type Pair struct {
	Placement Placement
	Char      byte
}

func (p Pair) String() string {
	return string([]byte{byte(p.Placement), p.Char})
}

// Render returns the title lines: optional overline, the title, underline.
// Line length is the display width of title.
func (p Pair) Render(title string) []string {
	width := runewidth.StringWidth(title)
	if width < 1 {
		width = 1
	}
	line := strings.Repeat(string(p.Char), width)
	if p.Placement == Overline {
		return []string{line, title, line}
	}
	return []string{title, line}
}

// Spec is a parsed, immutable adornment specification.
type Spec struct {
	pairs []Pair
}

// Parse validates s and returns its pairs in order.
func Parse(s string) (Spec, error) {
	if s == "" {
		return Spec{}, &ConfigError{Spec: s, Pos: 0, Reason: "empty specification"}
	}

	pairs := make([]Pair, 0, len(s)/2)
	for i := 0; i+1 < len(s); i += 2 {
		placement := Placement(s[i])
		if placement != Underline && placement != Overline {
			return Spec{}, &ConfigError{Spec: s, Pos: i, Reason: fmt.Sprintf("placement %q is not 'o' or 'u'", s[i])}
		}
		if !strings.ContainsRune(Characters, rune(s[i+1])) {
			return Spec{}, &ConfigError{Spec: s, Pos: i + 1, Reason: fmt.Sprintf("%q is not an adornment character", s[i+1])}
		}
		pairs = append(pairs, Pair{Placement: placement, Char: s[i+1]})
	}
	if last := len(s) - 1; len(s)%2 != 0 {
		if p := Placement(s[last]); p != Underline && p != Overline {
			return Spec{}, &ConfigError{Spec: s, Pos: last, Reason: fmt.Sprintf("placement %q is not 'o' or 'u'", s[last])}
		}
		return Spec{}, &ConfigError{Spec: s, Pos: len(s), Reason: "incomplete pair"}
	}
	return Spec{pairs: pairs}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Spec {
	spec, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return spec
}

// Default returns the built-in specification.
func Default() Spec {
	return MustParse(DefaultSpec)
}

// Len returns the number of configured pairs.
func (s Spec) Len() int {
	return len(s.pairs)
}

// IsZero reports whether s was never parsed.
func (s Spec) IsZero() bool {
	return len(s.pairs) == 0
}

// For returns the pair for a heading depth. Depth 0 is the document title,
// depth 1 the subtitle, depth 2 a top level section title and so on.
// Depths beyond the configured pairs fail with a *DepthError.
func (s Spec) For(depth int) (Pair, error) {
	if depth < 0 {
		return Pair{}, fmt.Errorf("negative title depth %d", depth)
	}
	if depth >= len(s.pairs) {
		return Pair{}, &DepthError{Depth: depth, Available: len(s.pairs)}
	}
	return s.pairs[depth], nil
}

func (s Spec) String() string {
	var buf strings.Builder
	for _, p := range s.pairs {
		buf.WriteString(p.String())
	}
	return buf.String()
}
