package domain

// Scope is the stack of timeline-variable bindings active while a node and
// its descendants execute. Frames are pushed as the interpreter descends into
// nested timelines and popped on exit; inner bindings shadow outer ones.
//
// The scope is exclusively owned and mutated by the single active interpreter
// goroutine; Snapshot produces an isolated copy for external readers.
type Scope struct {
	frames []VariableSet
}

// NewScope creates an empty scope stack.
func NewScope() *Scope {
	return &Scope{}
}

// Push makes vars the innermost frame.
func (s *Scope) Push(vars VariableSet) {
	s.frames = append(s.frames, vars)
}

// Pop removes the innermost frame. Popping an empty scope is a no-op.
func (s *Scope) Pop() {
	if len(s.frames) > 0 {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

// Depth returns the number of active frames.
func (s *Scope) Depth() int {
	return len(s.frames)
}

// Lookup walks the frames from innermost outward and returns the first
// binding for name. A name absent from every enclosing frame is fatal to the
// run: silent fallback would corrupt results.
func (s *Scope) Lookup(name string) (any, error) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if v, ok := s.frames[i][name]; ok {
			return v, nil
		}
	}
	return nil, &MissingVariableError{Name: name}
}

// Snapshot flattens the stack into a single mapping with inner bindings
// shadowing outer ones. The returned map is a copy.
func (s *Scope) Snapshot() map[string]any {
	flat := make(map[string]any)
	for _, frame := range s.frames {
		for k, v := range frame {
			flat[k] = v
		}
	}
	return flat
}
