/*
Package domain contains the core domain models of the adtkit edit coordinator.

It defines the vocabulary shared by the coordinator, the capability adapters and
the exposure layers (MCP, HTTP, CLI). This package is kept pure and free of
external dependencies like I/O or persistence, following Hexagonal Architecture
principles.

# Key Entities

  - ObjectRef: Identifies a remote ABAP repository object (kind, name, package).
  - LockHandle: Proof of an exclusive edit right, bound to the session that produced it.
  - Session: The opaque stateful session blob (cookies, CSRF token) threaded through every call.
  - CheckResult / ActivationResult: Outcomes of syntax checks and activations.
  - TransactionState: The transient phase machine of one edit transaction.
  - Error: A classified failure (ErrorKind + one human readable line).
*/
package domain
