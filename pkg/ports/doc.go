/*
Package ports defines the driven ports (interfaces) of the relay router.

These interfaces decouple the handoff controller from the NLU service, the
components that take over conversations, and the storage of session state.

# Key Interfaces

  - Classifier: Classifies an utterance into an intent and a default reply (e.g., Dialogflow).
  - TurnProcessor: Runs one delegated turn for a component and reports whether it is done.
  - ComponentResolver: Resolves a component id to its TurnProcessor.
  - StateStore: Persists per-session ControlState.
  - DistributedLocker: Provides distributed locking for handling concurrent session access.
*/
package ports
