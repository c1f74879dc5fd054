/*
Package session implements session management and persistence orchestration.

It serializes concurrent access to a session context across goroutines and, with a
DistributedLocker, across replicas. Updates run on a private copy of the context and
are committed to the store only when they succeed.
*/
package session
