// Package graph renders a timeline description tree as a Mermaid flowchart,
// used by the CLI to let authors inspect a loaded experiment before running it.
package graph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/quadrat/pkg/domain"
)

// Overlay contains dynamic run state to visualize on the graph.
type Overlay struct {
	// CompletedTrials counts leaves already finalized, in depth-first
	// declaration order. They render with the completed style.
	CompletedTrials int
}

// GenerateMermaid produces Mermaid flowchart syntax for a description tree.
// Semantic styling:
//   - Timeline container: [[Subroutine]], annotated with sampling/repetition
//   - Trial: [Rectangle], labeled with its type
//   - Conditional entry: {Diamond} guard node before the container
//   - Loop: dotted back-edge from the container to itself
func GenerateMermaid(desc *domain.Description, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	g := &generator{sb: &sb}
	g.walk(desc, "root")

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text for contrast regardless of theme
		sb.WriteString("    classDef completed fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		for i := 0; i < overlay.CompletedTrials && i < len(g.trialIDs); i++ {
			sb.WriteString(fmt.Sprintf("    class %s completed;\n", g.trialIDs[i]))
		}
	}

	return sb.String()
}

type generator struct {
	sb       *strings.Builder
	trialIDs []string
}

// walk emits the node and returns its Mermaid ID so the parent can draw the
// containment edge.
func (g *generator) walk(desc *domain.Description, id string) string {
	if desc.IsTrial() {
		label := desc.Type
		if desc.Name != "" {
			label = desc.Name + " : " + desc.Type
		}
		fmt.Fprintf(g.sb, "    %s[\"%s\"]\n", id, escapeLabel(label))
		g.trialIDs = append(g.trialIDs, id)
		return id
	}

	label := desc.Name
	if label == "" {
		label = "timeline"
	}
	if ann := annotate(desc); ann != "" {
		label += " <br/> " + ann
	}
	fmt.Fprintf(g.sb, "    %s[[\"%s\"]]\n", id, escapeLabel(label))

	entry := id
	if desc.Conditional != nil {
		guard := id + "_cond"
		fmt.Fprintf(g.sb, "    %s{\"conditional\"}\n", guard)
		fmt.Fprintf(g.sb, "    %s -- \"true\" --> %s\n", guard, id)
		entry = guard
	}

	for i, child := range desc.Timeline {
		childID := g.walk(child, id+"_"+strconv.Itoa(i))
		fmt.Fprintf(g.sb, "    %s --> %s\n", id, childID)
	}

	if desc.Loop != nil {
		fmt.Fprintf(g.sb, "    %s -. \"loop\" .-> %s\n", id, entry)
	}

	return entry
}

func annotate(desc *domain.Description) string {
	var parts []string
	if n := len(desc.TimelineVariables); n > 0 {
		parts = append(parts, fmt.Sprintf("%d sets", n))
	}
	if desc.Sample != nil {
		parts = append(parts, desc.Sample.Method)
	}
	if desc.Repetitions > 1 {
		parts = append(parts, fmt.Sprintf("x%d", desc.Repetitions))
	}
	if desc.RandomizeOrder {
		parts = append(parts, "shuffled")
	}
	return strings.Join(parts, ", ")
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
