package amqp

import (
	"encoding/json"
	"time"
)

// SyncRequestMessage asks the worker to run a spreadsheet sync for one user.
// It carries only the user id; the worker reads the receipts from the
// database itself, so a burst of creates collapses into one export.
type SyncRequestMessage struct {
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSyncRequestMessage(userID string) *SyncRequestMessage {
	return &SyncRequestMessage{
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

func (m *SyncRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SyncRequestMessageFromJSON(data []byte) (*SyncRequestMessage, error) {
	var msg SyncRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" {
		return nil, errEmptyUserID
	}
	return &msg, nil
}
