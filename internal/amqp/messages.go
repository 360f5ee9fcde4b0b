package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DatasetReloadMessage tells servers that the stored dataset changed and the
// in-memory snapshot should be rebuilt. It carries no data; receivers reload
// from their configured backend.
type DatasetReloadMessage struct {
	ID        uuid.UUID `json:"id"`
	Source    string    `json:"source"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewDatasetReloadMessage creates a reload message with a fresh ID
func NewDatasetReloadMessage(source, reason string) *DatasetReloadMessage {
	return &DatasetReloadMessage{
		ID:        uuid.New(),
		Source:    source,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *DatasetReloadMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DatasetReloadMessageFromJSON creates a message from JSON bytes
func DatasetReloadMessageFromJSON(data []byte) (*DatasetReloadMessage, error) {
	var msg DatasetReloadMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == uuid.Nil {
		return nil, errors.New("reload message without id")
	}
	return &msg, nil
}
