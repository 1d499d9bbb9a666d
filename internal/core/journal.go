package core

// JournalEventKind tags a JournalEvent's payload for line-delimited JSON
// serialization (spec §6: `event_kind: "OrderSubmit"|"OrderAck"|"Fill"|"OrderCancel"`).
type JournalEventKind string

const (
	EventOrderSubmit JournalEventKind = "OrderSubmit"
	EventOrderAck    JournalEventKind = "OrderAck"
	EventFill        JournalEventKind = "Fill"
	EventOrderCancel JournalEventKind = "OrderCancel"
)

// JournalEvent is one recoverable state transition (spec §3/§6).
// Exactly one of the typed fields is populated, selected by Kind; this
// mirrors the original's tagged-enum shape using a Go-idiomatic flat
// struct with an explicit discriminant instead of an interface, so
// encoding/json round-trips without a custom UnmarshalJSON per payload
// type.
type JournalEvent struct {
	Kind    JournalEventKind `json:"event_kind"`
	Order   *Order           `json:"order,omitempty"`
	OrderID *OrderID         `json:"order_id,omitempty"`
	Fill    *Fill            `json:"fill,omitempty"`
}

// JournalEntry is one line of the append-only journal file.
type JournalEntry struct {
	TimestampMs int64        `json:"timestamp_ms"`
	Event       JournalEvent `json:"event"`
}

func SubmitEvent(o Order) JournalEvent         { return JournalEvent{Kind: EventOrderSubmit, Order: &o} }
func AckEvent(id OrderID) JournalEvent         { return JournalEvent{Kind: EventOrderAck, OrderID: &id} }
func FillEvent(f Fill) JournalEvent            { return JournalEvent{Kind: EventFill, Fill: &f} }
func CancelEvent(id OrderID) JournalEvent      { return JournalEvent{Kind: EventOrderCancel, OrderID: &id} }
