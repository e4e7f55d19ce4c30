// Package resultdoc reads JSON dumps of qa4sm result files. A dump holds the
// global attributes, the variable names and optionally per-variable values;
// their locations are configurable gjson paths.
package resultdoc

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/ahrav/go-qa4sm/internal/domain"
	"github.com/ahrav/go-qa4sm/internal/ports"
)

// Paths locates the parts of a dump.
type Paths struct {
	Attributes string
	Variables  string
	// Values may be empty when the dump carries no values.
	Values string
}

// Document is a parsed JSON dump. It is read-only and safe for concurrent
// use.
type Document struct {
	source string
	raw    []byte
	paths  Paths
}

// Open reads the dump at path. A path of "-" reads from stdin.
func Open(path string, paths Paths) (*Document, error) {
	if path == "-" {
		return Read("stdin", os.Stdin, paths)
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, ports.NewSourceError(path, "", fmt.Errorf("%w: %v", ports.ErrSourceUnavailable, err))
	}
	return Parse(path, data, paths)
}

// Read parses a dump from r. source names it in errors.
func Read(source string, r io.Reader, paths Paths) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, ports.NewSourceError(source, "", fmt.Errorf("%w: %v", ports.ErrSourceUnavailable, err))
	}
	return Parse(source, data, paths)
}

// Parse validates data as JSON and wraps it.
func Parse(source string, data []byte, paths Paths) (*Document, error) {
	if !gjson.ValidBytes(data) {
		return nil, ports.NewSourceError(source, "", ports.ErrInvalidDocument)
	}
	return &Document{source: source, raw: data, paths: paths}, nil
}

// Source returns the name the document was read from.
func (d *Document) Source() string { return d.source }

// Attributes returns the object at the attributes path as an AttributeMap.
// Integral numbers become int64, other numbers float64 and everything else
// its string form.
func (d *Document) Attributes() (domain.AttributeMap, error) {
	res := gjson.GetBytes(d.raw, d.paths.Attributes)
	if !res.IsObject() {
		return domain.AttributeMap{}, d.invalid("attributes at %q are not an object", d.paths.Attributes)
	}

	attrs := make(map[string]any)
	res.ForEach(func(key, value gjson.Result) bool {
		attrs[key.String()] = scalar(value)
		return true
	})
	return domain.NewAttributeMap(attrs), nil
}

func scalar(v gjson.Result) any {
	if v.Type != gjson.Number {
		return v.String()
	}
	if v.Num == math.Trunc(v.Num) && math.Abs(v.Num) < 1<<53 {
		return v.Int()
	}
	return v.Num
}

// Variables returns the variable names. The path may hold an array of
// strings or an object, whose keys are taken in document order.
func (d *Document) Variables() ([]string, error) {
	res := gjson.GetBytes(d.raw, d.paths.Variables)
	var names []string
	switch {
	case res.IsArray():
		for _, item := range res.Array() {
			if item.Type != gjson.String {
				return nil, d.invalid("variable %s is not a string", item.Raw)
			}
			names = append(names, item.String())
		}
	case res.IsObject():
		res.ForEach(func(key, _ gjson.Result) bool {
			names = append(names, key.String())
			return true
		})
	default:
		return nil, d.invalid("variables at %q are neither array nor object", d.paths.Variables)
	}
	return names, nil
}

// ValuesSource returns a ports.ValuesSource backed by the values object, or
// nil when the document has no values path.
func (d *Document) ValuesSource() ports.ValuesSource {
	if d.paths.Values == "" {
		return nil
	}
	return &valuesSource{doc: d, values: gjson.GetBytes(d.raw, d.paths.Values)}
}

func (d *Document) invalid(format string, args ...any) error {
	return ports.NewSourceError(d.source, "", fmt.Errorf("%w: %s", ports.ErrInvalidDocument, fmt.Sprintf(format, args...)))
}

// Series is the values handle attached to metric variables.
type Series []float64

// Empty reports whether the series holds no values.
func (s Series) Empty() bool { return len(s) == 0 }

var _ ports.ValuesSource = (*valuesSource)(nil)

type valuesSource struct {
	doc    *Document
	values gjson.Result
}

// Values implements ports.ValuesSource. Missing variables yield (nil, nil);
// null entries inside an array become NaN.
func (s *valuesSource) Values(ctx context.Context, name string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.values.Exists() {
		return nil, nil
	}

	res := s.values.Get(escapePath(name))
	if !res.Exists() {
		return nil, nil
	}
	if !res.IsArray() {
		return nil, ports.NewSourceError(s.doc.source, name,
			fmt.Errorf("%w: values are not an array", ports.ErrInvalidDocument))
	}

	items := res.Array()
	out := make(Series, len(items))
	for i, item := range items {
		switch item.Type {
		case gjson.Number:
			out[i] = item.Num
		case gjson.Null:
			out[i] = math.NaN()
		default:
			return nil, ports.NewSourceError(s.doc.source, name,
				fmt.Errorf("%w: value %s is not a number", ports.ErrInvalidDocument, item.Raw))
		}
	}
	return out, nil
}

// pathSpecials are the characters with a meaning in gjson paths.
const pathSpecials = `\.*?|#@!=<>%`

// escapePath turns a literal key into a single gjson path component.
func escapePath(key string) string {
	if !strings.ContainsAny(key, pathSpecials) {
		return key
	}
	var b strings.Builder
	for _, r := range key {
		if strings.ContainsRune(pathSpecials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
