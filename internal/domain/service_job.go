package domain

import (
	"encoding/json"
	"slices"
	"time"
)

type ServiceJobStatus string

const (
	JobReceived   ServiceJobStatus = "received"
	JobInProgress ServiceJobStatus = "in-progress"
	JobReady      ServiceJobStatus = "ready"
	JobDelivered  ServiceJobStatus = "delivered"
	JobCancelled  ServiceJobStatus = "cancelled"
)

func (s ServiceJobStatus) Valid() bool {
	switch s {
	case JobReceived, JobInProgress, JobReady, JobDelivered, JobCancelled:
		return true
	}
	return false
}

type StatusEntry struct {
	Status    ServiceJobStatus `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
}

// StatusLog is an append-only history. Append never touches the receiver's
// backing array, so earlier values of the log stay valid.
type StatusLog struct {
	entries []StatusEntry
}

func NewStatusLog(entries ...StatusEntry) StatusLog {
	return StatusLog{entries: slices.Clone(entries)}
}

func (l StatusLog) Append(entry StatusEntry) StatusLog {
	next := make([]StatusEntry, len(l.entries), len(l.entries)+1)
	copy(next, l.entries)
	return StatusLog{entries: append(next, entry)}
}

func (l StatusLog) Entries() []StatusEntry {
	out := make([]StatusEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l StatusLog) Len() int {
	return len(l.entries)
}

func (l StatusLog) Last() (StatusEntry, bool) {
	if len(l.entries) == 0 {
		return StatusEntry{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// Extends reports whether l starts with every entry of prev, in order.
func (l StatusLog) Extends(prev StatusLog) bool {
	if len(l.entries) < len(prev.entries) {
		return false
	}
	for i, entry := range prev.entries {
		if l.entries[i].Status != entry.Status || !l.entries[i].Timestamp.Equal(entry.Timestamp) {
			return false
		}
	}
	return true
}

func (l StatusLog) MarshalJSON() ([]byte, error) {
	if l.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.entries)
}

func (l *StatusLog) UnmarshalJSON(data []byte) error {
	var entries []StatusEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	l.entries = entries
	return nil
}

type ServiceJob struct {
	ID            string           `json:"id"`
	JobNumber     string           `json:"jobNumber"`
	CustomerID    string           `json:"customerId"`
	Device        string           `json:"device"`
	Problem       string           `json:"problem,omitempty"`
	Status        ServiceJobStatus `json:"status"`
	OrderID       string           `json:"orderId,omitempty"`
	StatusHistory StatusLog        `json:"statusHistory"`
	CreatedAt     time.Time        `json:"createdAt"`
}

type ServiceJobRequest struct {
	CustomerID string `json:"customerId" validate:"required"`
	Device     string `json:"device" validate:"required"`
	Problem    string `json:"problem,omitempty"`
}

type ServiceJobUpdate struct {
	Status  *ServiceJobStatus `json:"status,omitempty"`
	Device  *string           `json:"device,omitempty"`
	Problem *string           `json:"problem,omitempty"`
}
