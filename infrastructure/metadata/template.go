package metadata

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Errors returned while compiling or rendering name templates.
var (
	ErrTemplateSyntax  = errors.New("template syntax error")
	ErrTemplateField   = errors.New("template field missing")
	ErrDuplicateField  = errors.New("duplicate template field")
	ErrUnsupportedSpec = errors.New("unsupported template format spec")
)

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// fieldKind selects the text a template field may capture.
type fieldKind int

const (
	fieldText fieldKind = iota
	fieldInt
)

// templatePart is either a literal run or a named field.
type templatePart struct {
	literal string
	field   string
	kind    fieldKind
}

// Template is a compiled name template such as
// "{metric}_between_{ref_id:d}-{ref_ds}". Text fields capture the shortest
// non-empty run that lets the whole string match; ":d" fields capture a
// signed integer. A Template is immutable and safe for concurrent use.
type Template struct {
	source string
	parts  []templatePart
	fields map[string]fieldKind
	re     *regexp.Regexp
}

// Fields holds the captures of a successful Template.Match.
type Fields map[string]string

// Text returns the raw capture for name.
func (f Fields) Text(name string) (string, bool) {
	v, ok := f[name]
	return v, ok
}

// Int returns the capture for name converted to an int.
func (f Fields) Int(name string) (int, bool) {
	v, ok := f[name]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// CompileTemplate parses src into a Template.
func CompileTemplate(src string) (*Template, error) {
	t := &Template{source: src, fields: make(map[string]fieldKind)}

	var (
		pattern strings.Builder
		rest    = src
	)
	pattern.WriteString("^")
	for rest != "" {
		open := strings.IndexByte(rest, '{')
		closing := strings.IndexByte(rest, '}')
		if open < 0 {
			if closing >= 0 {
				return nil, fmt.Errorf("%w: unmatched '}' in %q", ErrTemplateSyntax, src)
			}
			t.appendLiteral(&pattern, rest)
			break
		}
		if closing >= 0 && closing < open {
			return nil, fmt.Errorf("%w: unmatched '}' in %q", ErrTemplateSyntax, src)
		}
		if open > 0 {
			t.appendLiteral(&pattern, rest[:open])
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return nil, fmt.Errorf("%w: unterminated field in %q", ErrTemplateSyntax, src)
		}
		if err := t.appendField(&pattern, rest[open+1:open+end]); err != nil {
			return nil, fmt.Errorf("%q: %w", src, err)
		}
		rest = rest[open+end+1:]
	}
	pattern.WriteString("$")

	re, err := regexp.Compile(pattern.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateSyntax, err)
	}
	t.re = re
	return t, nil
}

// MustCompileTemplate is like CompileTemplate but panics on error.
func MustCompileTemplate(src string) *Template {
	t, err := CompileTemplate(src)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Template) appendLiteral(b *strings.Builder, lit string) {
	t.parts = append(t.parts, templatePart{literal: lit})
	b.WriteString(regexp.QuoteMeta(lit))
}

func (t *Template) appendField(b *strings.Builder, spec string) error {
	name, format, _ := strings.Cut(spec, ":")
	if strings.ContainsAny(name, "{") {
		return fmt.Errorf("%w: nested '{'", ErrTemplateSyntax)
	}
	if !fieldNamePattern.MatchString(name) {
		return fmt.Errorf("%w: invalid field name %q", ErrTemplateSyntax, name)
	}
	if _, dup := t.fields[name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateField, name)
	}

	var kind fieldKind
	switch format {
	case "":
		kind = fieldText
		fmt.Fprintf(b, `(?P<%s>.+?)`, name)
	case "d":
		kind = fieldInt
		fmt.Fprintf(b, `(?P<%s>[-+]?\d+)`, name)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedSpec, format)
	}
	t.fields[name] = kind
	t.parts = append(t.parts, templatePart{field: name, kind: kind})
	return nil
}

// String returns the template source.
func (t *Template) String() string { return t.source }

// HasField reports whether the template declares a field called name.
func (t *Template) HasField(name string) bool {
	_, ok := t.fields[name]
	return ok
}

// IsIntField reports whether name is declared with the ":d" spec.
func (t *Template) IsIntField(name string) bool {
	k, ok := t.fields[name]
	return ok && k == fieldInt
}

// FieldNames returns the declared field names in template order.
func (t *Template) FieldNames() []string {
	names := make([]string, 0, len(t.fields))
	for _, p := range t.parts {
		if p.field != "" {
			names = append(names, p.field)
		}
	}
	return names
}

// Match matches s against the whole template.
func (t *Template) Match(s string) (Fields, bool) {
	m := t.re.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	out := make(Fields, len(t.fields))
	for i, name := range t.re.SubexpNames() {
		if name != "" {
			out[name] = m[i]
		}
	}
	return out, true
}

// Format renders the template with values. Every declared field must be
// present; integer fields require an integer value.
func (t *Template) Format(values map[string]any) (string, error) {
	var b strings.Builder
	for _, p := range t.parts {
		if p.field == "" {
			b.WriteString(p.literal)
			continue
		}
		v, ok := values[p.field]
		if !ok {
			return "", fmt.Errorf("%w: %s in %q", ErrTemplateField, p.field, t.source)
		}
		if p.kind == fieldInt {
			n, ok := v.(int)
			if !ok {
				return "", fmt.Errorf("%w: field %s needs an int, got %T", ErrTemplateField, p.field, v)
			}
			b.WriteString(strconv.Itoa(n))
			continue
		}
		fmt.Fprint(&b, v)
	}
	return b.String(), nil
}
