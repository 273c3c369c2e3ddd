package amqp

import (
	"encoding/json"
	"time"
)

// BoletoDispatchMessage asks the worker to deliver one boleto. It carries
// only the ID; the worker fetches the current row so a message queued
// before an edit still sends fresh data.
type BoletoDispatchMessage struct {
	BoletoID  string    `json:"boleto_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBoletoDispatchMessage(boletoID string) *BoletoDispatchMessage {
	return &BoletoDispatchMessage{
		BoletoID:  boletoID,
		Timestamp: time.Now(),
	}
}

func (m *BoletoDispatchMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BoletoDispatchMessageFromJSON(data []byte) (*BoletoDispatchMessage, error) {
	var msg BoletoDispatchMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.BoletoID == "" {
		return nil, errEmptyBoletoID
	}
	return &msg, nil
}
