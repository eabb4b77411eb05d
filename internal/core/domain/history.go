package domain

type HistoryEntryType string

const (
	HistoryScheme HistoryEntryType = "scheme"
	HistoryForm   HistoryEntryType = "form"
)

// DefaultHistoryLimit caps the activity log; oldest entries are evicted
// first once the cap is reached.
const DefaultHistoryLimit = 50

// HistoryEntry is one line of the append-only activity log, ordered
// most-recent-first.
type HistoryEntry struct {
	ID              string           `json:"id"`
	Type            HistoryEntryType `json:"type"`
	Title           string           `json:"title"`
	TimestampMillis int64            `json:"timestamp_millis"`
}
