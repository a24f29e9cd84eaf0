/*
Package domain contains the core domain models of the relay router.

It defines who owns a conversation (ControlState), what the collaborators report
(ClassificationResult, TurnResult), which intents hand control to which component
(TriggerTable), and the error kinds a turn can fail with. The package is kept pure
and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - ControlState: Unowned, or OwnedBy(componentID). Only the controller changes the owner.
  - TriggerTable: exact intent name -> component id.
  - TurnOutcome: the committed reply plus the state it left behind.
  - LifecycleHooks: observability callbacks fired by the controller.
*/
package domain
