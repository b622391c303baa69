package amqp

import (
	"encoding/json"
	"time"
)

// DatasetImportedMessage announces that the active dataset was replaced.
// Consumers fetch the data itself from the HTTP API.
type DatasetImportedMessage struct {
	ImportID  string    `json:"import_id"`
	Version   uint64    `json:"version"`
	Records   int       `json:"records"`
	Skipped   int       `json:"skipped"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// NewDatasetImportedMessage creates a message stamped with the current time
func NewDatasetImportedMessage(importID string, version uint64, records, skipped int, source string) *DatasetImportedMessage {
	return &DatasetImportedMessage{
		ImportID:  importID,
		Version:   version,
		Records:   records,
		Skipped:   skipped,
		Source:    source,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *DatasetImportedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DatasetImportedMessageFromJSON creates a message from JSON bytes
func DatasetImportedMessageFromJSON(data []byte) (*DatasetImportedMessage, error) {
	var msg DatasetImportedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
