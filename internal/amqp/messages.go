package amqp

import (
	"encoding/json"
	"time"
)

// Document lifecycle events carried on the bus.
const (
	EventAccepted = "accepted"
	EventUpdated  = "updated"
	EventDeleted  = "deleted"
)

// DocumentEventMessage is a lightweight notification that a document changed.
// It carries only the ID and event kind; the worker re-reads the document
// from the store before acting on it.
type DocumentEventMessage struct {
	DocumentID string    `json:"document_id"`
	Event      string    `json:"event"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewDocumentEventMessage(documentID, event string) *DocumentEventMessage {
	return &DocumentEventMessage{
		DocumentID: documentID,
		Event:      event,
		Timestamp:  time.Now(),
	}
}

func (m *DocumentEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func DocumentEventMessageFromJSON(data []byte) (*DocumentEventMessage, error) {
	var msg DocumentEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
