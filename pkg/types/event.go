package types

// RecordEventKind tags a record mutation event.
type RecordEventKind string

// Record mutation kinds emitted by the data-access layer.
const (
	RecordCreated RecordEventKind = "record.created"
	RecordUpdated RecordEventKind = "record.updated"
	RecordDeleted RecordEventKind = "record.deleted"
)

// RecordEvent is the change-event shape consumed by delivery layers
// (webhooks, realtime fan-out) outside this engine. The engine guarantees
// only that Record's keys match the table's currently reconciled column
// set.
type RecordEvent struct {
	Event   RecordEventKind `json:"event"`
	TableID string          `json:"tableId"`
	Record  map[string]any  `json:"record"`
}
