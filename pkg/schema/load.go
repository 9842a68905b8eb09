package schema

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Load decodes a YAML bot definition and validates it.
func Load(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to decode bot definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadFile reads and decodes a bot definition from disk.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bot definition: %w", err)
	}
	return Load(data)
}

// Validate runs the semantic checks that do not need the compiled graph:
// unique intent/entity names, well-formed regex patterns, per-node slot
// rules, and RPC declarations.
func (d *Definition) Validate() error {
	var errs []error

	fail := func(path, reason string) {
		errs = append(errs, &ValidationError{Path: path, Reason: reason})
	}

	if len(d.Dialog) == 0 {
		fail("dialog", "at least one top-level node is required")
	}

	seenIntents := make(map[string]bool)
	for i, intent := range d.Intents {
		path := fmt.Sprintf("intents[%d]", i)
		if intent.Name == "" {
			fail(path, "intent name is required")
			continue
		}
		if seenIntents[intent.Name] {
			fail(path, fmt.Sprintf("duplicate intent %q", intent.Name))
		}
		seenIntents[intent.Name] = true
	}

	seenEntities := make(map[string]bool)
	for i, entity := range d.Entities {
		path := fmt.Sprintf("entities[%d]", i)
		if entity.Name == "" {
			fail(path, "entity name is required")
			continue
		}
		if seenEntities[entity.Name] {
			fail(path, fmt.Sprintf("duplicate entity %q", entity.Name))
		}
		seenEntities[entity.Name] = true
		for j, pattern := range entity.Patterns {
			if _, err := regexp.Compile(pattern.Regexp); err != nil {
				fail(fmt.Sprintf("%s.patterns[%d]", path, j), fmt.Sprintf("invalid regexp: %v", err))
			}
		}
	}

	for i := range d.Dialog {
		validateNode(fmt.Sprintf("dialog[%d]", i), &d.Dialog[i], fail)
	}

	seenMethods := make(map[string]bool)
	for i, rpc := range d.RPC {
		path := fmt.Sprintf("rpc[%d]", i)
		if rpc.Method == "" {
			fail(path, "rpc method name is required")
			continue
		}
		if seenMethods[rpc.Method] {
			fail(path, fmt.Sprintf("duplicate rpc method %q", rpc.Method))
		}
		seenMethods[rpc.Method] = true
		seenParams := make(map[string]bool)
		for j, param := range rpc.Params {
			if param.Name == "" {
				fail(fmt.Sprintf("%s.params[%d]", path, j), "param name is required")
				continue
			}
			if seenParams[param.Name] {
				fail(fmt.Sprintf("%s.params[%d]", path, j), fmt.Sprintf("duplicate param %q", param.Name))
			}
			seenParams[param.Name] = true
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

func validateNode(path string, node *NodeDef, fail func(path, reason string)) {
	if node.Condition == "" && node.Label == "" {
		fail(path, "node needs a condition or a label (jump-only nodes must be labeled)")
	}

	seenSlots := make(map[string]bool)
	for i, slot := range node.SlotFilling {
		slotPath := fmt.Sprintf("%s.slot_filling[%d]", path, i)
		if slot.Name == "" {
			fail(slotPath, "slot name is required")
			continue
		}
		if slot.CheckFor == "" {
			fail(slotPath, fmt.Sprintf("slot %q needs a check_for expression", slot.Name))
		}
		if seenSlots[slot.Name] {
			fail(slotPath, fmt.Sprintf("duplicate slot %q", slot.Name))
		}
		seenSlots[slot.Name] = true
	}

	for i, handler := range node.SlotHandlers {
		handlerPath := fmt.Sprintf("%s.slot_handlers[%d]", path, i)
		if handler.Condition == "" {
			fail(handlerPath, "handler condition is required")
		}
		if handler.Response == "" && handler.JumpTo == "" {
			fail(handlerPath, "handler needs a response or a jump_to target")
		}
	}

	for i := range node.Followup {
		validateNode(fmt.Sprintf("%s.followup[%d]", path, i), &node.Followup[i], fail)
	}
}
