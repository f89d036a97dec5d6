package rewrite

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Template is a parsed target template: literal text interleaved with
// capture group references. References are resolved against the rule's
// pattern at compile time, so expansion can never fail at request time.
//
// Supported placeholders: $1 .. $99 for numbered groups, ${name} for named
// groups (${1} also works), and $$ for a literal dollar sign.
type Template struct {
	raw      string
	segments []segment
}

// segment is either a literal (group < 0) or a capture group reference.
type segment struct {
	literal string
	group   int
}

// NewTemplate parses a target template and validates every capture
// reference against the given pattern.
func NewTemplate(raw string, pattern *regexp.Regexp) (*Template, error) {
	t := &Template{raw: raw}

	names := make(map[string]int)
	for i, name := range pattern.SubexpNames() {
		if name != "" {
			names[name] = i
		}
	}

	var literal strings.Builder
	flush := func() {
		if literal.Len() > 0 {
			t.segments = append(t.segments, segment{literal: literal.String(), group: -1})
			literal.Reset()
		}
	}

	for i := 0; i < len(raw); {
		if raw[i] != '$' {
			literal.WriteByte(raw[i])
			i++
			continue
		}
		if i+1 >= len(raw) {
			return nil, fmt.Errorf("dangling $ at end of template %q", raw)
		}

		switch c := raw[i+1]; {
		case c == '$':
			literal.WriteByte('$')
			i += 2

		case c == '{':
			end := strings.IndexByte(raw[i+2:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unterminated ${ in template %q", raw)
			}
			ref := raw[i+2 : i+2+end]
			group, err := resolveGroup(ref, pattern, names)
			if err != nil {
				return nil, err
			}
			flush()
			t.segments = append(t.segments, segment{group: group})
			i += 2 + end + 1

		case c >= '0' && c <= '9':
			j := i + 1
			for j < len(raw) && raw[j] >= '0' && raw[j] <= '9' {
				j++
			}
			group, err := resolveGroup(raw[i+1:j], pattern, names)
			if err != nil {
				return nil, err
			}
			flush()
			t.segments = append(t.segments, segment{group: group})
			i = j

		default:
			return nil, fmt.Errorf("invalid placeholder $%c in template %q", c, raw)
		}
	}
	flush()

	return t, nil
}

// resolveGroup maps a numeric or named reference to a capture group index.
func resolveGroup(ref string, pattern *regexp.Regexp, names map[string]int) (int, error) {
	if ref == "" {
		return 0, fmt.Errorf("empty capture reference in template")
	}

	if n, err := strconv.Atoi(ref); err == nil {
		if n < 0 || n > pattern.NumSubexp() {
			return 0, fmt.Errorf("capture reference $%d exceeds group count %d of pattern %q",
				n, pattern.NumSubexp(), pattern.String())
		}
		return n, nil
	}

	n, ok := names[ref]
	if !ok {
		return 0, fmt.Errorf("unknown capture group %q in template (pattern %q)", ref, pattern.String())
	}
	return n, nil
}

// Expand substitutes the captures of the most recent match into the
// template. Groups that did not participate in the match expand to "".
func (t *Template) Expand(captures []string) string {
	var b strings.Builder
	for _, seg := range t.segments {
		if seg.group < 0 {
			b.WriteString(seg.literal)
			continue
		}
		if seg.group < len(captures) {
			b.WriteString(captures[seg.group])
		}
	}
	return b.String()
}

// String returns the raw template text.
func (t *Template) String() string {
	return t.raw
}
