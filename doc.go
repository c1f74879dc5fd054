/*
Package waypoint is a server-side engine that walks users through branching
questionnaires ("flows") defined as declarative JSON or YAML documents.

A flow is a graph of question and result nodes. Answering a question records the
answer, applies the node's effects (set a variable, increment a score), follows the
first edge whose condition matches, and either shows the next question or, at a
result node, produces a summary with the top scoring traits.

# Key Features

  - Declarative flows: nodes, options, effects and edge conditions are plain data.
  - Deterministic routing: edges are evaluated in order and the first match wins.
  - Atomic submissions: a rejected answer never changes the stored session.
  - Pluggable persistence: memory, JSON files, Redis, SQLite or Postgres.
  - Hot reload: flow documents can be edited while the server runs.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/waypoint"
		"github.com/aretw0/waypoint/pkg/domain"
	)

	func main() {
		ctx := context.Background()

		// Load every flow document in ./flows
		eng, err := waypoint.New(ctx, "./flows")
		if err != nil {
			log.Fatal(err)
		}

		started, err := eng.Start(ctx, "career_onboarding_v1")
		if err != nil {
			log.Fatal(err)
		}

		res, err := eng.Submit(ctx, started.SessionID, started.Node.ID, domain.String("school"))
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(res.Done, res.Node.ID)
	}
*/
package waypoint
