// Package course loads course reference data from YAML, HTML scorecards,
// PDF scorecards or the embedded demo sample.
package course

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/okian/jacktrack/internal/domain/model"
)

// Supported formats.
const (
	FormatYAML = "yaml"
	FormatHTML = "html"
	FormatPDF  = "pdf"
)

// Sentinel errors.
var (
	ErrInvalidCourse     = errors.New("invalid course")
	ErrUnsupportedFormat = errors.New("unsupported course format")
)

// Provider loads a course.
type Provider interface {
	Load(ctx context.Context) (model.Course, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (model.Course, error)

// Load calls f(ctx).
func (f ProviderFunc) Load(ctx context.Context) (model.Course, error) { return f(ctx) }

// NewProvider returns the provider for format reading path. An empty
// format is taken from the file extension.
func NewProvider(format, path string) (Provider, error) {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	switch format {
	case FormatYAML, "yml", "":
		return YAMLFile(path), nil
	case FormatHTML, "htm":
		return HTMLFile(path), nil
	case FormatPDF:
		return PDFFile(path), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Load runs p and validates the result. Holes are returned sorted by number.
func Load(ctx context.Context, p Provider) (model.Course, error) {
	c, err := p.Load(ctx)
	if err != nil {
		return model.Course{}, err
	}
	sort.SliceStable(c.Holes, func(i, j int) bool { return c.Holes[i].Number < c.Holes[j].Number })
	if err := Validate(c); err != nil {
		return model.Course{}, err
	}
	return c, nil
}

// Validate checks that the course has holes with unique numbers >= 1,
// par >= 3, yardage >= 0 and in-range pin and tee coordinates.
func Validate(c model.Course) error {
	if len(c.Holes) == 0 {
		return fmt.Errorf("%w: no holes", ErrInvalidCourse)
	}
	seen := make(map[int]struct{}, len(c.Holes))
	for _, h := range c.Holes {
		if h.Number < 1 {
			return fmt.Errorf("%w: hole number %d", ErrInvalidCourse, h.Number)
		}
		if _, dup := seen[h.Number]; dup {
			return fmt.Errorf("%w: duplicate hole %d", ErrInvalidCourse, h.Number)
		}
		seen[h.Number] = struct{}{}
		if h.Par < 3 {
			return fmt.Errorf("%w: hole %d par %d", ErrInvalidCourse, h.Number, h.Par)
		}
		if h.Yardage < 0 {
			return fmt.Errorf("%w: hole %d yardage %d", ErrInvalidCourse, h.Number, h.Yardage)
		}
		if h.Pin != nil && !h.Pin.Valid() {
			return fmt.Errorf("%w: hole %d pin out of range", ErrInvalidCourse, h.Number)
		}
		if h.Tee != nil && !h.Tee.Valid() {
			return fmt.Errorf("%w: hole %d tee out of range", ErrInvalidCourse, h.Number)
		}
	}
	return nil
}
