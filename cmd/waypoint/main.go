// Command waypoint serves, runs and inspects questionnaire flows.
package main

func main() {
	Execute()
}
