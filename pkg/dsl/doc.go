/*
Package dsl provides a Go DSL (Domain Specific Language) for programmatically constructing Waypoint flows.

It allows developers to define questionnaires using a type-safe, fluent builder pattern
instead of relying on external YAML or JSON files. This is particularly useful for dynamic flow
generation, unit testing, and leveraging IDE autocompletion/type-checking.

Example usage:

	package main

	import (
		"github.com/aretw0/waypoint/pkg/dsl"
	)

	func main() {
		b := dsl.New("onboarding").Title("Onboarding")

		b.Add("stage").
			Question("Where are you right now?").
			Option("school", "In school").
			Option("working", "Working").
			Set("variables.stage").
			WhenAnswer("school", "stream").
			Go("done")

		b.Add("stream").
			Question("Which stream?").
			Option("science", "Science", dsl.Increment("scores.analytical", 2)).
			Option("arts", "Arts", dsl.Increment("scores.creative", 2)).
			Go("done")

		b.Add("done").Result("summary")

		// The resulting loader can be passed to waypoint.New(...) with waypoint.WithLoader.
		loader, err := b.Build()
		// ...
	}
*/
package dsl
