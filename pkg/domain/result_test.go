package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollection_AppendFreezes(t *testing.T) {
	c := NewCollection()
	rec := Result{"response": "f", FieldTrialIndex: 0}
	c.Append(rec)

	// Mutating the original after append must not change history.
	rec["response"] = "j"

	stored := c.Last()
	assert.Equal(t, "f", stored["response"])
	assert.Equal(t, 1, c.Len())
}

func TestCollection_ValuesAreCopies(t *testing.T) {
	c := NewCollection()
	c.Append(Result{"rt": 412})

	vals := c.Values()
	vals[0]["rt"] = 0

	assert.Equal(t, 412, c.Last()["rt"])
}

func TestCollection_Slice(t *testing.T) {
	c := NewCollection()
	for i := 0; i < 5; i++ {
		c.Append(Result{FieldTrialIndex: i})
	}

	part := c.Slice(2, 4)
	assert.Len(t, part, 2)
	assert.Equal(t, 2, part[0].TrialIndex())
	assert.Equal(t, 3, part[1].TrialIndex())

	assert.Nil(t, c.Slice(4, 2))
	assert.Len(t, c.Slice(-10, 100), 5)
}

func TestParameter_Resolve(t *testing.T) {
	scope := NewScope()
	scope.Push(VariableSet{"color": "green"})

	v, err := Value(42).Resolve(scope)
	assert.NoError(t, err)
	assert.Equal(t, 42, v)

	calls := 0
	p := Func(func() any { calls++; return calls })
	v1, _ := p.Resolve(scope)
	v2, _ := p.Resolve(scope)
	assert.Equal(t, 1, v1)
	assert.Equal(t, 2, v2, "deferred functions are re-invoked fresh, never cached")

	v, err = Var("color").Resolve(scope)
	assert.NoError(t, err)
	assert.Equal(t, "green", v)

	_, err = Var("shape").Resolve(scope)
	assert.Error(t, err)
}
