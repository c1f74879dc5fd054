/*
Package domain contains the core model of the Waypoint questionnaire engine.

It defines flows and their nodes, edges, conditions and effects, the per-session
execution context, and the result view built at terminal nodes. The package is
pure: no I/O, no persistence, no logging.

# Key Entities

  - Flow: an immutable graph of nodes with a start node.
  - Node: a question presented to the user, or a terminal result.
  - Edge: a Condition (Always or Eq) plus the successor node. First match wins.
  - Effect: a SetEffect (variables) or IncrementEffect (scores).
  - Value: the closed variant used for answers, variables and literals.
  - SessionContext: answers, variables, scores and the current node of one session.
  - Result: the summary view returned when a result node is reached.
*/
package domain
