package pipeline

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Schema coerces raw form inputs into a complete parameter bag.
// Implementations are GenericSchema and RegionSchema.
type Schema interface {
	Coerce(raw map[string]string) (Params, error)
	Defaults() Params
}

// ParamSpec is one declared parameter: NumberParam or TextParam.
type ParamSpec interface {
	paramSpec()
}

// NumberParam is parsed as floating point and range-checked.
type NumberParam struct {
	Label   string
	Default float64
	Min     *float64
	Max     *float64
	Step    *float64
}

// TextParam is kept as text. Options, when set, restrict the accepted values.
// Kind records the declared wire type ("text", "select" or "checkbox").
type TextParam struct {
	Label   string
	Kind    string
	Default string
	Options []string
}

func (NumberParam) paramSpec() {}
func (TextParam) paramSpec()   {}

// GenericSchema is the schema of every algorithm except region extraction.
type GenericSchema map[string]ParamSpec

// RegionSchema is the fixed four-field schema of the region-extraction algorithm.
type RegionSchema struct {
	Default PixelRect
}

// DefaultRegion is the ROI a fresh region node starts from.
var DefaultRegion = PixelRect{X: 0, Y: 0, Width: 100, Height: 100}

// Schema converts the wire declaration of a into its parameter schema.
func (a Algorithm) Schema() (Schema, error) {
	if a.ID == RegionAlgorithm {
		return RegionSchema{Default: DefaultRegion}, nil
	}
	s := make(GenericSchema, len(a.Parameters))
	for name, def := range a.Parameters {
		spec, err := def.spec()
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}
		s[name] = spec
	}
	return s, nil
}

func (d ParamDef) spec() (ParamSpec, error) {
	switch d.Type {
	case "number":
		def, err := toFloat(d.Default)
		if err != nil {
			return nil, err
		}
		if d.Min != nil && d.Max != nil && *d.Min > *d.Max {
			return nil, fmt.Errorf("%w: min %g greater than max %g", ErrInvalidParameter, *d.Min, *d.Max)
		}
		return NumberParam{Label: d.Label, Default: def, Min: d.Min, Max: d.Max, Step: d.Step}, nil
	case "text", "select", "checkbox", "":
		kind := d.Type
		if kind == "" {
			kind = "text"
		}
		def := ""
		if d.Default != nil {
			def = fmt.Sprint(d.Default)
		}
		return TextParam{Label: d.Label, Kind: kind, Default: def, Options: d.Options}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported type %q", ErrInvalidParameter, d.Type)
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: default %q is not a number", ErrInvalidParameter, n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: default %v is not a number", ErrInvalidParameter, v)
	}
}

// Defaults returns every declared parameter at its default value.
func (s GenericSchema) Defaults() Params {
	out := make(Params, len(s))
	for name, spec := range s {
		switch p := spec.(type) {
		case NumberParam:
			out[name] = p.Default
		case TextParam:
			out[name] = p.Default
		}
	}
	return out
}

// Coerce builds the full parameter bag for s. Inputs with no schema entry are
// ignored; declared keys with no (or blank) input fall back to the default.
func (s GenericSchema) Coerce(raw map[string]string) (Params, error) {
	out := s.Defaults()
	for name, spec := range s {
		v, ok := raw[name]
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		switch p := spec.(type) {
		case NumberParam:
			f, err := parseNumber(name, v)
			if err != nil {
				return nil, err
			}
			if p.Min != nil && f < *p.Min {
				return nil, fmt.Errorf("%w: %s=%g below minimum %g", ErrInvalidParameter, name, f, *p.Min)
			}
			if p.Max != nil && f > *p.Max {
				return nil, fmt.Errorf("%w: %s=%g above maximum %g", ErrInvalidParameter, name, f, *p.Max)
			}
			out[name] = f
		case TextParam:
			if len(p.Options) > 0 && !slices.Contains(p.Options, v) {
				return nil, fmt.Errorf("%w: %s=%q not one of %v", ErrInvalidParameter, name, v, p.Options)
			}
			out[name] = v
		}
	}
	return out, nil
}

func parseNumber(name, v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s=%q is not a number", ErrInvalidParameter, name, v)
	}
	return f, nil
}

// Defaults returns the default region as parameters.
func (s RegionSchema) Defaults() Params {
	return RegionParams(s.Default)
}

// Coerce parses the four ROI fields, rounding to whole pixels. Coordinates
// must be >= 0 and extents >= 1.
func (s RegionSchema) Coerce(raw map[string]string) (Params, error) {
	r := s.Default
	fields := []struct {
		name string
		dst  *int
		min  int
	}{
		{"x", &r.X, 0},
		{"y", &r.Y, 0},
		{"width", &r.Width, 1},
		{"height", &r.Height, 1},
	}
	for _, f := range fields {
		v, ok := raw[f.name]
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := parseNumber(f.name, v)
		if err != nil {
			return nil, err
		}
		px := int(math.Round(n))
		if px < f.min {
			return nil, fmt.Errorf("%w: %s=%d below minimum %d", ErrInvalidParameter, f.name, px, f.min)
		}
		*f.dst = px
	}
	return RegionParams(r), nil
}

// RegionParams is the parameter bag for a region node: exactly x, y, width, height.
func RegionParams(r PixelRect) Params {
	return Params{"x": r.X, "y": r.Y, "width": r.Width, "height": r.Height}
}

// RegionFromParams reads a region back out of p. ok is false when any of the
// four fields is missing or not numeric.
func RegionFromParams(p Params) (r PixelRect, ok bool) {
	dst := []*int{&r.X, &r.Y, &r.Width, &r.Height}
	for i, key := range []string{"x", "y", "width", "height"} {
		switch v := p[key].(type) {
		case int:
			*dst[i] = v
		case float64:
			*dst[i] = int(math.Round(v))
		default:
			return PixelRect{}, false
		}
	}
	return r, true
}
