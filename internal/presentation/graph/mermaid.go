// Package graph renders a compiled dialog graph as a Mermaid flowchart,
// used by the CLI to visualize a bot definition.
package graph

import (
	"fmt"
	"strings"

	"github.com/maxbot-ai/dialogtree/pkg/graph"
)

// Overlay highlights dynamic state on top of the static topology.
type Overlay struct {
	// ActiveNode is the node a session is currently suspended on.
	ActiveNode graph.NodeID
}

// Mermaid produces a flowchart of the dialog tree. Shapes carry meaning:
// slot-filling nodes are parallelograms, catch-all nodes are circles,
// plain nodes rectangles. Followup edges are solid, handler jumps dotted.
func Mermaid(g *graph.Graph, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for id := 0; id < g.Len(); id++ {
		node := g.Node(id)

		opener, closer := "[", "]"
		switch {
		case node.CatchAll():
			opener, closer = "((", "))"
		case len(node.Slots) > 0:
			opener, closer = "[/", "/]"
		}
		sb.WriteString(fmt.Sprintf("    n%d%s\"%s\"%s\n", id, opener, caption(node), closer))

		for _, child := range node.Followups {
			cond := escape(g.Node(child).Condition)
			if cond == "" {
				sb.WriteString(fmt.Sprintf("    n%d --> n%d\n", id, child))
				continue
			}
			sb.WriteString(fmt.Sprintf("    n%d -- \"%s\" --> n%d\n", id, cond, child))
		}
		for _, handler := range node.Handlers {
			if handler.JumpTo == graph.NoNode {
				continue
			}
			sb.WriteString(fmt.Sprintf("    n%d -. \"%s\" .-> n%d\n", id, escape(handler.Condition), handler.JumpTo))
		}
	}

	if overlay != nil && g.Node(overlay.ActiveNode) != nil {
		sb.WriteString("\n    classDef active fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString(fmt.Sprintf("    class n%d active;\n", overlay.ActiveNode))
	}

	return sb.String()
}

// caption picks the most telling display text for a node: its label, its
// condition, or its arena index as a last resort.
func caption(node *graph.Node) string {
	text := node.Label
	if text == "" {
		text = node.Condition
	}
	if text == "" {
		text = fmt.Sprintf("node %d", node.ID)
	}
	if len(node.Slots) > 0 {
		names := make([]string, len(node.Slots))
		for i, slot := range node.Slots {
			names[i] = slot.Name
		}
		text = fmt.Sprintf("%s <br/> slots: %s", text, strings.Join(names, ", "))
	}
	return escape(text)
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
