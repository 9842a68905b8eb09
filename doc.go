/*
Package dialogtree is a deterministic dialog execution engine for building
conversational agents driven by intent and entity recognition.

It executes a conditioned tree of dialog nodes against per-session state:
each user turn selects a node by condition, fills ordered slots with
validation and retry handling, digresses into unrelated flows and resumes
by policy, and follows jump and end directives emitted by response
templates. NLU stays outside the engine; callers pass recognized intents
and entities with every turn.

# Concept

A dialog definition declares top-level nodes, each with a condition, an
optional slot-filling list, followup children, and a response template.
The engine compiles the definition once, then processes turns: given the
same session state and the same recognized input, the produced responses
and state transitions are always reproducible. Session persistence and
per-session exclusion are built in, so the engine can back a multi-replica
HTTP deployment as easily as an embedded CLI.

# Key Features

  - Deterministic Execution: first matching condition wins, slots fill in
    declared order, directive loops are bounded.
  - Hexagonal Architecture: stores, lockers, and the expression evaluator
    are ports with swappable adapters (memory, file, Redis).
  - All-or-Nothing Turns: stored state advances only when the whole turn
    succeeds, so failures can be retried safely.
  - Digressions: a user can jump to an unrelated flow mid slot-filling
    and be brought back, or not, by per-node policy.

# Usage

	package main

	import (
		"bufio"
		"context"
		"fmt"
		"log"
		"os"

		"github.com/maxbot-ai/dialogtree"
		"github.com/maxbot-ai/dialogtree/pkg/domain"
	)

	func main() {
		bot, err := dialogtree.Open("./reservation.yaml")
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			// In a real app, intents and entities come from an NLU service.
			out, err := bot.ProcessTurn(ctx, domain.TurnInput{
				SessionKey: "session-123",
				Text:       scanner.Text(),
			})
			if err != nil {
				log.Fatal(err)
			}
			fmt.Println(out.Text())
		}
	}
*/
package dialogtree
