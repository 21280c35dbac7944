package amqp

import (
	"encoding/json"
	"time"
)

// Actions carried by a sync message.
const (
	ActionUpsert = "upsert"
	ActionDelete = "delete"
)

// TransactionSyncMessage tells the worker that a transaction changed.
// It carries only the ID and action, the worker fetches the full record
// from the database.
type TransactionSyncMessage struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTransactionSyncMessage creates an upsert notification for a transaction.
func NewTransactionSyncMessage(id string) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		ID:        id,
		Action:    ActionUpsert,
		Timestamp: time.Now(),
	}
}

// NewTransactionDeleteMessage creates a delete notification for a transaction.
func NewTransactionDeleteMessage(id string) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		ID:        id,
		Action:    ActionDelete,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *TransactionSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionSyncMessageFromJSON creates a message from JSON bytes.
func TransactionSyncMessageFromJSON(data []byte) (*TransactionSyncMessage, error) {
	var msg TransactionSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
