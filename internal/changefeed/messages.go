package changefeed

import (
	"encoding/json"
	"time"

	"fjacquet/kakeibo/internal/entitystore"
)

// ChangeMessage is the notification published after a commit. It carries
// no transaction data; receivers read the change from the store.
type ChangeMessage struct {
	RecordID  string    `json:"record_id"`
	Version   int64     `json:"version"`
	Op        string    `json:"op"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
}

// NewChangeMessage describes c.
func NewChangeMessage(c entitystore.Change) *ChangeMessage {
	return &ChangeMessage{
		RecordID:  c.RecordID.String(),
		Version:   c.Version,
		Op:        string(c.Op),
		Author:    string(c.Author),
		Timestamp: c.CommittedAt,
	}
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes a message body.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
