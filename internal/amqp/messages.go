package amqp

import (
	"encoding/json"
	"time"
)

// Message actions. Sync and delete share one queue, the action field tells
// the consumer which handler to dispatch to. Empty action means sync so old
// messages stay readable.
const (
	ActionSync   = "sync"
	ActionDelete = "delete"
)

// InvoiceSyncMessage is the lightweight message for mirroring an invoice to
// the spreadsheet. It carries only the ID and version, the worker fetches the
// full invoice from the database.
type InvoiceSyncMessage struct {
	Action    string    `json:"action,omitempty"`
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewInvoiceSyncMessage(id, version int64) *InvoiceSyncMessage {
	return &InvoiceSyncMessage{
		Action:    ActionSync,
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *InvoiceSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func InvoiceSyncMessageFromJSON(data []byte) (*InvoiceSyncMessage, error) {
	var msg InvoiceSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// InvoiceDeleteMessage tells the worker to drop a mirrored row.
type InvoiceDeleteMessage struct {
	Action    string    `json:"action"`
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewInvoiceDeleteMessage(id int64) *InvoiceDeleteMessage {
	return &InvoiceDeleteMessage{
		Action:    ActionDelete,
		ID:        id,
		Timestamp: time.Now(),
	}
}

func (m *InvoiceDeleteMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func InvoiceDeleteMessageFromJSON(data []byte) (*InvoiceDeleteMessage, error) {
	var msg InvoiceDeleteMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// messageAction peeks at the action discriminator without committing to a
// message type.
func messageAction(data []byte) string {
	var env struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return ""
	}
	return env.Action
}
