/*
Package ports defines the driven ports (interfaces) for the Waypoint engine.

These interfaces decouple the flow execution core from external implementations,
allowing the engine to work with various flow sources, session stores and event sinks.

# Key Interfaces

  - FlowLoader: Responsible for producing compiled Flow definitions (e.g., from a directory or memory).
  - SessionStore: Responsible for persisting and loading SessionContext values.
  - DistributedLocker: Provides distributed locking for handling concurrent session access.
  - EventPublisher: Receives lifecycle events such as session completion.
*/
package ports
