package graph

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/maxbot-ai/dialogtree/pkg/domain"
	"github.com/maxbot-ai/dialogtree/pkg/schema"
)

// pendingJump records a handler jump awaiting label resolution in the
// second compile pass.
type pendingJump struct {
	node    NodeID
	handler int
	label   string
	from    string
}

// Compile turns a validated definition into an immutable graph. Missing
// jump targets and duplicate labels fail here, at load time, never at
// runtime.
func Compile(def *schema.Definition) (*Graph, error) {
	g := &Graph{
		labels: make(map[string]NodeID),
		rpc:    make(map[string]RPCMethod),
	}

	var jumps []pendingJump

	var compileNode func(nd *schema.NodeDef, parent NodeID, path string) (NodeID, error)
	compileNode = func(nd *schema.NodeDef, parent NodeID, path string) (NodeID, error) {
		id := len(g.nodes)
		node := Node{
			ID:        id,
			Condition: nd.Condition,
			Label:     nd.Label,
			Parent:    parent,
			Response:  nd.Response,
		}

		if nd.Label != "" {
			if _, exists := g.labels[nd.Label]; exists {
				return NoNode, &DuplicateLabelError{Label: nd.Label}
			}
			g.labels[nd.Label] = id
		}

		for _, sd := range nd.SlotFilling {
			node.Slots = append(node.Slots, Slot{
				Name:     sd.Name,
				CheckFor: sd.CheckFor,
				Prompt:   sd.Prompt,
				Found:    sd.Found,
				NotFound: sd.NotFound,
			})
		}

		for i, hd := range nd.SlotHandlers {
			handler := Handler{
				Condition: hd.Condition,
				Response:  hd.Response,
				JumpTo:    NoNode,
			}
			if hd.JumpTo != "" {
				handler.Transition = domain.JumpBody
				if hd.Transition == string(domain.JumpCondition) {
					handler.Transition = domain.JumpCondition
				}
				jumps = append(jumps, pendingJump{
					node:    id,
					handler: i,
					label:   hd.JumpTo,
					from:    fmt.Sprintf("%s.slot_handlers[%d]", path, i),
				})
			}
			node.Handlers = append(node.Handlers, handler)
		}

		if len(nd.Settings) > 0 {
			if err := mapstructure.Decode(map[string]any(nd.Settings), &node.Settings); err != nil {
				return NoNode, fmt.Errorf("%s.settings: %w", path, err)
			}
			switch node.Settings.AfterDigression {
			case "", domain.ResumeReturn, domain.ResumeNever:
			default:
				return NoNode, fmt.Errorf("%s.settings: unknown after_digression policy %q", path, node.Settings.AfterDigression)
			}
		}

		g.nodes = append(g.nodes, node)

		for i := range nd.Followup {
			childPath := fmt.Sprintf("%s.followup[%d]", path, i)
			child, err := compileNode(&nd.Followup[i], id, childPath)
			if err != nil {
				return NoNode, err
			}
			g.nodes[id].Followups = append(g.nodes[id].Followups, child)
		}

		return id, nil
	}

	for i := range def.Dialog {
		id, err := compileNode(&def.Dialog[i], NoNode, fmt.Sprintf("dialog[%d]", i))
		if err != nil {
			return nil, err
		}
		g.roots = append(g.roots, id)
	}

	// Second pass: resolve statically declared jump targets.
	for _, j := range jumps {
		target, ok := g.labels[j.label]
		if !ok {
			return nil, &UnknownTargetError{Label: j.label, From: j.from}
		}
		g.nodes[j.node].Handlers[j.handler].JumpTo = target
	}

	for _, rd := range def.RPC {
		method := RPCMethod{Method: rd.Method}
		for _, pd := range rd.Params {
			method.Params = append(method.Params, Param{Name: pd.Name, Required: pd.Required})
		}
		g.rpc[rd.Method] = method
	}

	return g, nil
}
