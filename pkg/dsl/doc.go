/*
Package dsl provides a fluent builder for constructing timeline descriptions
programmatically.

It lets experiment authors define trial sequences with type-safe Go code
instead of external YAML files, which is useful for dynamic designs, unit
tests, and callbacks that cannot be expressed declaratively.

Example usage:

	b := dsl.New("stroop")

	b.Trial("text").
		Name("welcome").
		Param("stimulus", "Press enter to begin.")

	block := b.Timeline("block").
		Variables(
			dsl.Vars{"word": "RED"},
			dsl.Vars{"word": "BLUE"},
		).
		Sample(domain.SampleWithoutReplacement).
		Repeat(2)

	block.Trial("key").
		Var("stimulus", "word").
		Param("choices", []any{"r", "b"})

	desc, err := b.Build()
	// ... pass desc to quadrat.New(...)
*/
package dsl
