package runtime

import (
	"fmt"
	"math/rand/v2"

	"github.com/aretw0/quadrat/pkg/domain"
)

// iteration is one planned pass over a timeline's children: the variable set
// bound for the pass (-1 when the timeline declares no variables) and the
// child visit order.
type iteration struct {
	set   int
	order []int
}

// planEntry computes the ordered sequence of iterations for one entry into a
// timeline node. It is re-invoked on every loop repeat, so sampling and
// order randomization are re-drawn each time.
//
// Shuffles use rand.Shuffle (Fisher-Yates), which makes each of the n!
// orderings equally likely given a uniform source.
func planEntry(n *Node, rng *rand.Rand) ([]iteration, error) {
	desc := n.desc
	reps := desc.Repetitions
	if reps < 1 {
		reps = 1
	}

	sets, err := sampleSets(desc, reps, len(n.children), rng)
	if err != nil {
		return nil, err
	}

	if sets == nil {
		// No timeline variables: children in declared order, repeated
		// `repetitions` times, each pass independently shuffled if requested.
		plan := make([]iteration, reps)
		for i := range plan {
			plan[i] = iteration{set: -1, order: childOrder(n, rng)}
		}
		return plan, nil
	}

	plan := make([]iteration, len(sets))
	for i, set := range sets {
		plan[i] = iteration{set: set, order: childOrder(n, rng)}
	}
	return plan, nil
}

// sampleSets returns the sequence of variable-set indices to iterate, or nil
// when the timeline declares no variables.
func sampleSets(desc *domain.Description, reps, childCount int, rng *rand.Rand) ([]int, error) {
	setCount := len(desc.TimelineVariables)
	if setCount == 0 {
		return nil, nil
	}

	method := domain.SampleFixedRepetitions
	if desc.Sample != nil {
		method = desc.Sample.Method
	}

	switch method {
	case domain.SampleFixedRepetitions:
		sets := make([]int, 0, setCount*reps)
		for r := 0; r < reps; r++ {
			for i := 0; i < setCount; i++ {
				sets = append(sets, i)
			}
		}
		return sets, nil

	case domain.SampleWithoutReplacement:
		// One independent permutation per repetition; a set never repeats
		// within a permutation.
		sets := make([]int, 0, setCount*reps)
		for r := 0; r < reps; r++ {
			sets = append(sets, rng.Perm(setCount)...)
		}
		return sets, nil

	case domain.SampleWithReplacement:
		draws := reps * childCount
		if draws < 1 {
			draws = reps
		}
		sets := make([]int, draws)
		for i := range sets {
			sets[i] = rng.IntN(setCount)
		}
		return sets, nil

	case domain.SampleCustom:
		sets := desc.Sample.Fn(setCount, reps)
		for _, s := range sets {
			if s < 0 || s >= setCount {
				return nil, &domain.CallbackError{
					Hook: "sample_function",
					Err:  fmt.Errorf("index %d out of range [0,%d)", s, setCount),
				}
			}
		}
		return sets, nil

	default:
		// Unknown methods are rejected at expansion time; reaching this is a
		// programming error.
		return nil, fmt.Errorf("unknown sample method %q", method)
	}
}

// childOrder returns the visit order for one pass over the children,
// independently shuffled when randomize_order is set.
func childOrder(n *Node, rng *rand.Rand) []int {
	order := make([]int, len(n.children))
	for i := range order {
		order[i] = i
	}
	if n.desc.RandomizeOrder {
		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}
	return order
}
