package catalogfile

import (
	"fmt"

	"github.com/meikuraledutech/pipeline"
	"gopkg.in/yaml.v3"
)

type yamlFile struct {
	Algorithms []pipeline.Algorithm `yaml:"algorithms"`
}

// ParseYAML decodes a catalog of the form
//
//	algorithms:
//	  - id: grayscale
//	    name: Grayscale
//	    parameters:
//	      threshold: {type: number, default: 0.5, min: 0, max: 1}
func ParseYAML(src []byte) ([]pipeline.Algorithm, error) {
	var f yamlFile
	if err := yaml.Unmarshal(src, &f); err != nil {
		return nil, fmt.Errorf("catalogfile: decode yaml: %w", err)
	}
	for i, a := range f.Algorithms {
		if a.ID == "" {
			return nil, fmt.Errorf("catalogfile: algorithm #%d has no id", i)
		}
	}
	return f.Algorithms, nil
}
