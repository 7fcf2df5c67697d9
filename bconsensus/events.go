package bconsensus

// Event is one engine notification to the caller.
// Exactly one of the fields must be set.
type Event struct {
	NeedSync *NeedSync
}

// Kind names the set field, for logging.
func (e Event) Kind() string {
	switch {
	case e.NeedSync != nil:
		return "need_sync"
	default:
		return "(empty)"
	}
}

// NeedSync reports that a block arrived from so far in the future
// that this node's clock or chain view is probably behind,
// and it should resynchronize before continuing.
type NeedSync struct{}

// EventReceiver carries engine events to the caller.
// The channel is closed when the kernel stops.
type EventReceiver struct {
	C <-chan Event
}
