package domain

// parameterKind tags the variant held by a Parameter.
type parameterKind int

const (
	kindLiteral parameterKind = iota
	kindFunc
	kindVariable
)

// Parameter is a tagged value declared on a trial: a literal, a deferred
// zero-argument function, or a reference to a timeline variable bound in the
// nearest enclosing scope. All three variants are resolved uniformly by the
// engine at the single evaluation point per trial execution.
type Parameter struct {
	kind parameterKind
	val  any
	fn   func() any
	name string
}

// Parameters maps parameter names to their declared specs.
type Parameters map[string]Parameter

// Value declares a literal parameter. It passes through resolution unchanged.
func Value(v any) Parameter {
	return Parameter{kind: kindLiteral, val: v}
}

// Func declares a deferred parameter. The function is re-invoked fresh on
// every trial execution, never cached, so scope-dependent or randomized
// values vary per iteration.
func Func(fn func() any) Parameter {
	return Parameter{kind: kindFunc, fn: fn}
}

// Var declares a reference to the timeline variable with the given name,
// resolved against the nearest enclosing scope at trial time.
func Var(name string) Parameter {
	return Parameter{kind: kindVariable, name: name}
}

// Resolve evaluates the parameter against the given scope.
func (p Parameter) Resolve(scope *Scope) (any, error) {
	switch p.kind {
	case kindFunc:
		return p.fn(), nil
	case kindVariable:
		return scope.Lookup(p.name)
	default:
		return p.val, nil
	}
}

// IsDynamic reports whether the parameter defers evaluation (function or
// variable reference).
func (p Parameter) IsDynamic() bool {
	return p.kind != kindLiteral
}
