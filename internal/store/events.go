package store

// Operation names a store operation in events, logs and metrics.
type Operation string

const (
	OpLoadAll    Operation = "LoadAll"
	OpGetCity    Operation = "GetCity"
	OpCreateCity Operation = "CreateCity"
	OpDeleteCity Operation = "DeleteCity"
)

// Phase tells whether an event marks the start of an operation or its outcome.
type Phase int

const (
	PhaseStarted Phase = iota
	PhaseSettled
)

func (p Phase) String() string {
	if p == PhaseStarted {
		return "started"
	}
	return "settled"
}

// Event is published to subscribers after every state change. A settled
// event carries the operation's error, if any; the subscriber decides
// whether it is worth interrupting the user for.
type Event struct {
	// Seq increases with every event. A listener that only keeps the latest
	// state should ignore events with a lower Seq than one it has seen.
	Seq   uint64
	Op    Operation
	Phase Phase
	State State
	Err   error
	// Stale is set on a GetCity whose response was not applied because a
	// newer GetCity had already been issued.
	Stale bool
}

// Listener receives store events. It is called synchronously, outside the
// store's lock, so it may read the store but should return quickly.
type Listener func(Event)
