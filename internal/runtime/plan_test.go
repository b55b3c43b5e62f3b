package runtime

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/aretw0/quadrat/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed+1))
}

func mustExpand(t *testing.T, desc *domain.Description) *Node {
	t.Helper()
	n, err := Expand(desc)
	require.NoError(t, err)
	return n
}

func threeSets() []domain.VariableSet {
	return []domain.VariableSet{
		{"word": "RED"},
		{"word": "GREEN"},
		{"word": "BLUE"},
	}
}

func TestPlan_FixedRepetitions(t *testing.T) {
	n := mustExpand(t, &domain.Description{
		Timeline:          []*domain.Description{{Type: "probe"}},
		TimelineVariables: threeSets(),
		Repetitions:       2,
	})

	plan, err := planEntry(n, testRand(1))
	require.NoError(t, err)

	var sets []int
	for _, it := range plan {
		sets = append(sets, it.set)
	}
	assert.Equal(t, []int{0, 1, 2, 0, 1, 2}, sets, "fixed-repetitions replays sets in declared order")
}

func TestPlan_WithoutReplacement(t *testing.T) {
	n := mustExpand(t, &domain.Description{
		Timeline:          []*domain.Description{{Type: "probe"}},
		TimelineVariables: threeSets(),
		Sample:            &domain.SampleSpec{Method: domain.SampleWithoutReplacement},
		Repetitions:       2,
	})

	for seed := uint64(0); seed < 50; seed++ {
		plan, err := planEntry(n, testRand(seed))
		require.NoError(t, err)
		require.Len(t, plan, 6)

		// Each repetition is an independent permutation: within one, a set
		// never repeats.
		for rep := 0; rep < 2; rep++ {
			seen := map[int]bool{}
			for _, it := range plan[rep*3 : rep*3+3] {
				assert.False(t, seen[it.set], "set %d repeated within one permutation (seed %d)", it.set, seed)
				seen[it.set] = true
			}
			assert.Len(t, seen, 3)
		}
	}
}

func TestPlan_WithReplacementDrawCount(t *testing.T) {
	n := mustExpand(t, &domain.Description{
		Timeline: []*domain.Description{
			{Type: "probe"},
			{Type: "feedback"},
		},
		TimelineVariables: threeSets(),
		Sample:            &domain.SampleSpec{Method: domain.SampleWithReplacement},
		Repetitions:       2,
	})

	plan, err := planEntry(n, testRand(7))
	require.NoError(t, err)
	// repetitions x childCount draws
	assert.Len(t, plan, 4)
	for _, it := range plan {
		assert.GreaterOrEqual(t, it.set, 0)
		assert.Less(t, it.set, 3)
	}
}

func TestPlan_CustomSampler(t *testing.T) {
	custom := func(setCount, repetitions int) []int {
		return []int{2, 2, 0}
	}
	n := mustExpand(t, &domain.Description{
		Timeline:          []*domain.Description{{Type: "probe"}},
		TimelineVariables: threeSets(),
		Sample:            &domain.SampleSpec{Method: domain.SampleCustom, Fn: custom},
	})

	plan, err := planEntry(n, testRand(3))
	require.NoError(t, err)
	require.Len(t, plan, 3)
	assert.Equal(t, 2, plan[0].set)
	assert.Equal(t, 2, plan[1].set)
	assert.Equal(t, 0, plan[2].set)
}

func TestPlan_CustomSamplerOutOfRange(t *testing.T) {
	n := mustExpand(t, &domain.Description{
		Timeline:          []*domain.Description{{Type: "probe"}},
		TimelineVariables: threeSets(),
		Sample: &domain.SampleSpec{
			Method: domain.SampleCustom,
			Fn:     func(setCount, repetitions int) []int { return []int{5} },
		},
	})

	_, err := planEntry(n, testRand(3))
	var cbErr *domain.CallbackError
	require.ErrorAs(t, err, &cbErr)
	assert.Equal(t, "sample_function", cbErr.Hook)
}

func TestPlan_NoVariablesDegenerate(t *testing.T) {
	n := mustExpand(t, &domain.Description{
		Timeline: []*domain.Description{
			{Type: "a"},
			{Type: "b"},
		},
		Repetitions: 3,
	})

	plan, err := planEntry(n, testRand(1))
	require.NoError(t, err)
	require.Len(t, plan, 3)
	for _, it := range plan {
		assert.Equal(t, -1, it.set)
		assert.Equal(t, []int{0, 1}, it.order)
	}
}

// TestPlan_ShuffleUniformity checks the documented Fisher-Yates property
// empirically: over many draws, all 3! = 6 orderings of three children
// appear, with no ordering wildly over-represented.
func TestPlan_ShuffleUniformity(t *testing.T) {
	n := mustExpand(t, &domain.Description{
		Timeline: []*domain.Description{
			{Type: "a"},
			{Type: "b"},
			{Type: "c"},
		},
		RandomizeOrder: true,
	})

	const draws = 6000
	counts := map[string]int{}
	rng := testRand(42)
	for i := 0; i < draws; i++ {
		plan, err := planEntry(n, rng)
		require.NoError(t, err)
		counts[fmt.Sprint(plan[0].order)]++
	}

	require.Len(t, counts, 6, "all 6 orderings must be reachable")
	for ordering, c := range counts {
		// Expected 1000 per ordering; allow a generous band.
		assert.Greater(t, c, 800, "ordering %s under-represented", ordering)
		assert.Less(t, c, 1200, "ordering %s over-represented", ordering)
	}
}

func TestPlan_RandomizeOrderIndependentPerPass(t *testing.T) {
	n := mustExpand(t, &domain.Description{
		Timeline: []*domain.Description{
			{Type: "a"},
			{Type: "b"},
			{Type: "c"},
			{Type: "d"},
		},
		RandomizeOrder: true,
		Repetitions:    30,
	})

	plan, err := planEntry(n, testRand(9))
	require.NoError(t, err)

	distinct := map[string]bool{}
	for _, it := range plan {
		distinct[fmt.Sprint(it.order)] = true
	}
	assert.Greater(t, len(distinct), 1, "passes must be shuffled independently")
}
