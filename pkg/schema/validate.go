package schema

// Schema is a map of parameter names to their expected types.
// Example: {"stimulus": String(), "choices": Slice(String())}
type Schema map[string]Type

// Validate checks if params conform to the schema. Optional parameters may
// be absent; all others are required. It returns an error aggregating every
// failure found, not just the first.
func Validate(schema Schema, params map[string]any) error {
	if len(schema) == 0 {
		// No schema = no validation
		return nil
	}

	var errs []error

	for name, typ := range schema {
		value, exists := params[name]
		if !exists {
			if _, optional := typ.(*OptionalType); optional {
				continue
			}
			errs = append(errs, &ValidationError{
				Key:    name,
				Reason: "required",
				Value:  nil,
			})
			continue
		}

		if err := typ.Validate(value); err != nil {
			errs = append(errs, &ValidationError{
				Key:    name,
				Reason: err.Error(),
				Value:  value,
			})
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}

	return nil
}
