/*
Package session implements per-conversation serialization and persistence of control state.

Each session id gets its own lock so that a turn's read-modify-write of the
ControlState is never interleaved with another turn of the same conversation,
while turns of different conversations proceed in parallel. An optional
distributed locker extends the guarantee across replicas that share a store.
*/
package session
