package graph_test

import (
	"context"
	"strings"
	"testing"

	"github.com/aretw0/quadrat/internal/presentation/graph"
	"github.com/aretw0/quadrat/pkg/domain"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		desc     *domain.Description
		contains []string
	}{
		{
			name: "Trial Shape",
			desc: &domain.Description{
				Timeline: []*domain.Description{
					{Type: "text", Name: "welcome"},
				},
			},
			contains: []string{
				`root_0["welcome : text"]`,
				"root --> root_0",
			},
		},
		{
			name: "Timeline Annotation",
			desc: &domain.Description{
				Name: "block",
				Timeline: []*domain.Description{
					{Type: "key"},
				},
				TimelineVariables: []domain.VariableSet{
					{"word": "RED"},
					{"word": "BLUE"},
				},
				Sample:      &domain.SampleSpec{Method: domain.SampleWithoutReplacement},
				Repetitions: 3,
			},
			contains: []string{
				"2 sets",
				"without-replacement",
				"x3",
			},
		},
		{
			name: "Conditional Guard",
			desc: &domain.Description{
				Timeline: []*domain.Description{
					{
						Name:        "debrief",
						Timeline:    []*domain.Description{{Type: "text"}},
						Conditional: func(ctx context.Context) (bool, error) { return true, nil },
					},
				},
			},
			contains: []string{
				`root_0_cond{"conditional"}`,
				`root_0_cond -- "true" --> root_0`,
			},
		},
		{
			name: "Loop Back Edge",
			desc: &domain.Description{
				Timeline: []*domain.Description{
					{
						Name:     "practice",
						Timeline: []*domain.Description{{Type: "key"}},
						Loop: func(ctx context.Context, data []domain.Result) (bool, error) {
							return false, nil
						},
					},
				},
			},
			contains: []string{
				`root_0 -. "loop" .-> root_0`,
			},
		},
		{
			name: "Label Escaping",
			desc: &domain.Description{
				Timeline: []*domain.Description{
					{Type: "text", Name: `say "hi"`},
				},
			},
			contains: []string{
				`root_0["say 'hi' : text"]`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.desc, nil)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
				}
			}
		})
	}
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	desc := &domain.Description{
		Timeline: []*domain.Description{
			{Type: "text"},
			{Type: "key"},
		},
	}

	got := graph.GenerateMermaid(desc, &graph.Overlay{CompletedTrials: 1})
	if !strings.Contains(got, "class root_0 completed;") {
		t.Errorf("first trial should carry the completed style:\n%v", got)
	}
	if strings.Contains(got, "class root_1 completed;") {
		t.Errorf("second trial should not carry the completed style:\n%v", got)
	}
}
