package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/relay/pkg/domain"
)

// ClassifierNode is the diagram id of the NLU classifier.
const ClassifierNode = "classifier"

// Overlay marks the party that currently owns a session.
type Overlay struct {
	Owner string
}

// GenerateMermaid draws the control handoff graph of a trigger table:
// the classifier as a circle, components as subroutines, one solid edge per
// trigger intent and one dotted "done" edge back from every component.
func GenerateMermaid(triggers domain.TriggerTable, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	fmt.Fprintf(&sb, "    %s((\"%s\"))\n", ClassifierNode, ClassifierNode)

	intents := make([]string, 0, len(triggers))
	for intent := range triggers {
		intents = append(intents, intent)
	}
	sort.Strings(intents)

	components := triggers.Components()
	sort.Strings(components)
	for _, id := range components {
		fmt.Fprintf(&sb, "    %s[[\"%s\"]]\n", sanitizeMermaidID(id), id)
	}

	for _, intent := range intents {
		target, ok := triggers.Lookup(intent)
		if !ok {
			continue
		}
		label := strings.ReplaceAll(intent, "\"", "'")
		fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", ClassifierNode, label, sanitizeMermaidID(target))
	}
	for _, id := range components {
		fmt.Fprintf(&sb, "    %s -. done .-> %s\n", sanitizeMermaidID(id), ClassifierNode)
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		current := ClassifierNode
		if overlay.Owner != "" {
			current = sanitizeMermaidID(overlay.Owner)
		}
		fmt.Fprintf(&sb, "    class %s current;\n", current)
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	if s == ClassifierNode {
		s = "component_" + s
	}
	return s
}
