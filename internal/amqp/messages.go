package amqp

import (
	"encoding/json"
	"time"
)

// Operations carried by sync messages.
const (
	OpSync   = "sync"
	OpDelete = "delete"
)

// TransactionSyncMessage asks the backup worker to mirror one record to
// the backup spreadsheet. It carries only identifiers; the worker loads
// the full record from the store.
type TransactionSyncMessage struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Op        string    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionSyncMessage(id, owner, op string) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		ID:        id,
		Owner:     owner,
		Op:        op,
		Timestamp: time.Now().UTC(),
	}
}

func (m *TransactionSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionSyncMessageFromJSON(data []byte) (*TransactionSyncMessage, error) {
	var msg TransactionSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
