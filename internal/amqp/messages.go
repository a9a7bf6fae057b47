package amqp

import (
	"encoding/json"
	"time"
)

// IngestCompletedMessage announces that an ingestion run finished and
// how many records it persisted.
type IngestCompletedMessage struct {
	Source    string    `json:"source"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

func NewIngestCompletedMessage(source string, count int) *IngestCompletedMessage {
	return &IngestCompletedMessage{
		Source:    source,
		Count:     count,
		Timestamp: time.Now(),
	}
}

func (m *IngestCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func IngestCompletedMessageFromJSON(data []byte) (*IngestCompletedMessage, error) {
	var msg IngestCompletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
