package catalogfile

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/meikuraledutech/pipeline"
	"github.com/zclconf/go-cty/cty"
)

type hclFile struct {
	Algorithms []hclAlgorithm `hcl:"algorithm,block"`
}

type hclAlgorithm struct {
	ID          string     `hcl:"id,label"`
	Name        string     `hcl:"name"`
	Description string     `hcl:"description,optional"`
	Inputs      []string   `hcl:"inputs,optional"`
	Outputs     []string   `hcl:"outputs,optional"`
	Params      []hclParam `hcl:"param,block"`
}

type hclParam struct {
	Name    string     `hcl:"name,label"`
	Type    string     `hcl:"type"`
	Label   string     `hcl:"label,optional"`
	Default *cty.Value `hcl:"default,optional"`
	Min     *float64   `hcl:"min,optional"`
	Max     *float64   `hcl:"max,optional"`
	Step    *float64   `hcl:"step,optional"`
	Options []string   `hcl:"options,optional"`
}

// ParseHCL decodes a catalog written as a sequence of algorithm blocks.
// filename is only used in diagnostics.
func ParseHCL(src []byte, filename string) ([]pipeline.Algorithm, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("catalogfile: parse %s: %s", filename, diags.Error())
	}

	var cfg hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
		return nil, fmt.Errorf("catalogfile: decode %s: %s", filename, diags.Error())
	}

	out := make([]pipeline.Algorithm, 0, len(cfg.Algorithms))
	for _, a := range cfg.Algorithms {
		alg := pipeline.Algorithm{
			ID:          a.ID,
			Name:        a.Name,
			Description: a.Description,
			Inputs:      a.Inputs,
			Outputs:     a.Outputs,
		}
		if len(a.Params) > 0 {
			alg.Parameters = make(map[string]pipeline.ParamDef, len(a.Params))
		}
		for _, p := range a.Params {
			def, err := ctyDefault(p.Default)
			if err != nil {
				return nil, fmt.Errorf("catalogfile: %s: algorithm %q param %q: %w", filename, a.ID, p.Name, err)
			}
			alg.Parameters[p.Name] = pipeline.ParamDef{
				Label:   p.Label,
				Type:    p.Type,
				Default: def,
				Min:     p.Min,
				Max:     p.Max,
				Step:    p.Step,
				Options: p.Options,
			}
		}
		out = append(out, alg)
	}
	return out, nil
}

// ctyDefault turns an HCL literal into the plain Go value used on the wire.
func ctyDefault(v *cty.Value) (any, error) {
	if v == nil || v.IsNull() {
		return nil, nil
	}
	if !v.IsKnown() {
		return nil, fmt.Errorf("default must be a literal")
	}
	switch v.Type() {
	case cty.Number:
		f, _ := v.AsBigFloat().Float64()
		return f, nil
	case cty.String:
		return v.AsString(), nil
	case cty.Bool:
		return v.True(), nil
	default:
		return nil, fmt.Errorf("unsupported default of type %s", v.Type().FriendlyName())
	}
}
