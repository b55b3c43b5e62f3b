// Package schema provides a type-safe validation system for trial parameters
// and records.
//
// It defines a simple type system with built-in types (string, int, float,
// bool) and support for slices, optional fields, and custom validators.
// Schemas map parameter names to types, so a presenter can reject a
// malformed trial before presenting it.
//
// Basic usage:
//
//	s := schema.Schema{
//	    "stimulus":       schema.String(),
//	    "choices":        schema.Slice(schema.String()),
//	    "trial_duration": schema.Optional(schema.Int()),
//	}
//
//	params := map[string]any{
//	    "stimulus": "RED",
//	    "choices":  []string{"r", "g", "b"},
//	}
//
//	if err := schema.Validate(s, params); err != nil {
//	    // Handle validation errors
//	}
//
// Schemas can be created programmatically or parsed from type strings, which
// makes them loadable from timeline files ("int?" marks an optional field):
//
//	s, err := schema.ParseTypeMap(map[string]string{
//	    "stimulus":       "string",
//	    "choices":        "[string]",
//	    "trial_duration": "int?",
//	})
//
// Custom validators can be registered for domain-specific validation:
//
//	positiveMillis := schema.Custom("positive_millis", func(v any) error {
//	    i, ok := v.(int)
//	    if !ok {
//	        return fmt.Errorf("expected int")
//	    }
//	    if i <= 0 {
//	        return fmt.Errorf("must be positive")
//	    }
//	    return nil
//	})
//
// This package has zero dependencies beyond the Go standard library and can
// be embedded in larger systems or extracted as a standalone library.
package schema
