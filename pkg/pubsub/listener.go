package pubsub

import "github.com/google/uuid"

// ListenerID identifies a single Subscribe call so it can be removed in
// O(1) without relying on function-value identity, which Go does not let
// you compare anyway.
type ListenerID uuid.UUID

func newListenerID() ListenerID {
	return ListenerID(uuid.New())
}

func (id ListenerID) String() string {
	return uuid.UUID(id).String()
}

// Listener receives the raw payload published on a channel. It must not
// block for long: the adapter invokes listeners synchronously while
// holding a snapshot of the channel's listener set, so a slow listener
// delays delivery to every other listener on that channel.
type Listener func(payload []byte)
