// Package loader reads timeline descriptions from YAML documents.
//
// The on-disk format mirrors the domain.Description tree. Parameter values
// may reference timeline variables with the "$name" shorthand or the
// explicit {$var: name} form; "$$" escapes a literal leading dollar sign.
package loader

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/quadrat/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// nodeDTO is the raw YAML shape before parameters are converted into
// tagged domain values.
type nodeDTO struct {
	Type              string           `mapstructure:"type"`
	Name              string           `mapstructure:"name"`
	Timeline          []nodeDTO        `mapstructure:"timeline"`
	Parameters        map[string]any   `mapstructure:"parameters"`
	TimelineVariables []map[string]any `mapstructure:"timeline_variables"`
	Sample            *sampleDTO       `mapstructure:"sample"`
	Repetitions       int              `mapstructure:"repetitions"`
	RandomizeOrder    bool             `mapstructure:"randomize_order"`
}

type sampleDTO struct {
	Method string `mapstructure:"method"`
}

// Load parses a YAML timeline description from the reader and validates it.
func Load(r io.Reader) (*domain.Description, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read timeline: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}

	var dto nodeDTO
	if err := mapstructure.Decode(doc, &dto); err != nil {
		return nil, fmt.Errorf("failed to decode timeline: %w", err)
	}

	desc, err := convert(dto)
	if err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return desc, nil
}

// LoadFile parses a YAML timeline description from a file.
func LoadFile(path string) (*domain.Description, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open timeline file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func convert(dto nodeDTO) (*domain.Description, error) {
	desc := &domain.Description{
		Type:           dto.Type,
		Name:           dto.Name,
		Repetitions:    dto.Repetitions,
		RandomizeOrder: dto.RandomizeOrder,
	}

	if len(dto.Parameters) > 0 {
		params := make(domain.Parameters, len(dto.Parameters))
		for key, val := range dto.Parameters {
			p, err := convertParameter(val)
			if err != nil {
				return nil, fmt.Errorf("parameter %q: %w", key, err)
			}
			params[key] = p
		}
		desc.Parameters = params
	}

	for _, set := range dto.TimelineVariables {
		desc.TimelineVariables = append(desc.TimelineVariables, domain.VariableSet(set))
	}

	if dto.Sample != nil {
		desc.Sample = &domain.SampleSpec{Method: dto.Sample.Method}
	}

	for i, child := range dto.Timeline {
		converted, err := convert(child)
		if err != nil {
			return nil, fmt.Errorf("timeline.%d: %w", i, err)
		}
		desc.Timeline = append(desc.Timeline, converted)
	}

	return desc, nil
}

// convertParameter maps a raw YAML value onto the tagged parameter variant.
func convertParameter(val any) (domain.Parameter, error) {
	switch v := val.(type) {
	case string:
		if strings.HasPrefix(v, "$$") {
			return domain.Value(v[1:]), nil
		}
		if strings.HasPrefix(v, "$") {
			name := v[1:]
			if name == "" {
				return domain.Parameter{}, fmt.Errorf("empty variable reference")
			}
			return domain.Var(name), nil
		}
		return domain.Value(v), nil
	case map[string]any:
		if ref, ok := v["$var"]; ok {
			name, ok := ref.(string)
			if !ok || name == "" {
				return domain.Parameter{}, fmt.Errorf("$var must be a non-empty string, got %v", ref)
			}
			return domain.Var(name), nil
		}
		return domain.Value(val), nil
	default:
		return domain.Value(val), nil
	}
}
