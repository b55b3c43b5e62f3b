/*
Package quadrat is a timeline execution engine for behavioral experiments.
It interprets a declarative description of an experiment (trials, nested
timelines, variable sets, sampling and loop logic) and drives it trial by
trial, recording one structured observation per completed trial.

# Concept

Quadrat treats an experiment as a tree. Leaves are trials: atomic units
presented to a participant. Interior nodes are timelines: containers that
bind variables, repeat, shuffle, gate on conditions, and loop. The engine
owns sequencing, variable scoping, and the data pipeline, while your
application ("Host") owns presentation and input through the TrialRunner
port. This Hexagonal Architecture allows Quadrat to be embedded in any
interface: CLI, HTTP server, or automated test harness.

# Key Features

  - Deterministic Sequencing: injectable randomness makes every sampling and
    shuffle decision reproducible from a seed.
  - Hexagonal Architecture: the interpreter core is decoupled from adapters
    (presentation, storage, transport).
  - Strict Data Pipeline: each record passes through trial and experiment
    hooks in a fixed order and is immutable once collected.
  - Single Flight: exactly one trial is in flight at any moment; the engine
    suspends until the presenter signals completion.

# Usage

Describe the timeline, provide a TrialRunner, and run:

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/quadrat"
		"github.com/aretw0/quadrat/pkg/domain"
		"github.com/aretw0/quadrat/pkg/ports"
	)

	func main() {
		desc := &domain.Description{
			TimelineVariables: []domain.VariableSet{
				{"word": "RED"},
				{"word": "BLUE"},
			},
			RandomizeOrder: true,
			Timeline: []*domain.Description{{
				Type: "text",
				Parameters: domain.Parameters{
					"stimulus": domain.Var("word"),
				},
			}},
		}

		runner := ports.TrialRunnerFunc(func(ctx context.Context, params map[string]any, finish ports.FinishFunc) error {
			log.Println("stimulus:", params["stimulus"])
			finish(map[string]any{"response": "space"})
			return nil
		})

		exp, err := quadrat.New(desc, runner, quadrat.WithSeed(42))
		if err != nil {
			log.Fatal(err)
		}
		if err := exp.Run(context.Background()); err != nil {
			log.Fatal(err)
		}

		for _, rec := range exp.Data().Values() {
			log.Println(rec)
		}
	}
*/
package quadrat
