/*
Package ports defines the driven ports (interfaces) of the link service.

These interfaces decouple the analytics service from its storage backends.

# Key Interfaces

  - EventStore: persists the capped analytics log (memory or Redis).
  - DistributedLocker: serializes the cleanup janitor across replicas.
*/
package ports
