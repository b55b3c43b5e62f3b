package quadrat_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/quadrat"
	"github.com/aretw0/quadrat/pkg/domain"
	"github.com/aretw0/quadrat/pkg/ports"
)

// Example demonstrates the minimal embedding loop: a timeline of one trial
// per variable set, an auto-responding runner, and the collected records.
func Example() {
	desc := &domain.Description{
		TimelineVariables: []domain.VariableSet{
			{"word": "RED"},
			{"word": "BLUE"},
		},
		Timeline: []*domain.Description{{
			Type: "text",
			Parameters: domain.Parameters{
				"stimulus": domain.Var("word"),
			},
		}},
	}

	runner := ports.TrialRunnerFunc(func(_ context.Context, params map[string]any, finish ports.FinishFunc) error {
		fmt.Println("presenting:", params["stimulus"])
		finish(map[string]any{"response": "space"})
		return nil
	})

	exp, err := quadrat.New(desc, runner, quadrat.WithSeed(1))
	if err != nil {
		log.Fatal(err)
	}
	if err := exp.Run(context.Background()); err != nil {
		log.Fatal(err)
	}

	for _, rec := range exp.Data().Values() {
		fmt.Printf("trial %d: %s -> %s\n", rec.TrialIndex(), rec[domain.FieldTrialType], rec["response"])
	}

	// Output:
	// presenting: RED
	// presenting: BLUE
	// trial 0: text -> space
	// trial 1: text -> space
}
