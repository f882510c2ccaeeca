package domain

// Duplex is the persistent bidirectional channel bound to a User,
// used to push asynchronous events to the client.
//
// Send is fire-and-forget: a closed or failing peer returns an error
// but must never panic, so a broken channel cannot abort a mutation.
type Duplex interface {
	Send(data []byte) error
	Close(code int)
}
