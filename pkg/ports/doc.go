/*
Package ports defines the driven ports (interfaces) of the adtkit coordinator.

These interfaces decouple the edit-transaction logic from the ADT wire protocol,
from session persistence and from auditing, so the coordinator can be exercised
against scripted fakes and deployed with different backends.

# Key Interfaces

  - Client: Performs one HTTP round trip against the remote system, carrying the Session.
  - ObjectCapabilitySet: The eight per-kind primitives (validate, create, lock, check, update, unlock, activate, delete).
  - SessionStore: Persists Session blobs between calls.
  - DistributedLocker: Serializes work on one session across replicas.
  - Journal: Records transaction outcomes for auditing.
*/
package ports
