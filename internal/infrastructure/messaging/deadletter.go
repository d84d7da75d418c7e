package messaging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/felixgeelhaar/leadline/pkg/domain/messaging"
)

// FailedDelivery records a notification an adapter could not deliver.
type FailedDelivery struct {
	Adapter      string                 `json:"adapter"`
	AdapterType  string                 `json:"adapter_type"`
	Notification messaging.Notification `json:"notification"`
	Error        string                 `json:"error"`
	FailedAt     time.Time              `json:"failed_at"`
}

// DeadLetterStore appends failed deliveries to a JSONL file.
type DeadLetterStore struct {
	path string
	mu   sync.Mutex
}

func NewDeadLetterStore(path string) *DeadLetterStore {
	return &DeadLetterStore{path: path}
}

// Append writes one entry, creating the file and its directory on demand.
func (s *DeadLetterStore) Append(fd FailedDelivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(fd)
	if err != nil {
		return fmt.Errorf("marshal failed delivery: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return fmt.Errorf("create dead letter dir: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open dead letter file: %w", err)
	}
	defer f.Close()

	_, err = f.Write(data)
	return err
}

// ReadAll returns every recorded entry, oldest first. Unparseable lines are
// skipped.
func (s *DeadLetterStore) ReadAll() ([]FailedDelivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []FailedDelivery
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var fd FailedDelivery
		if err := dec.Decode(&fd); err != nil {
			break
		}
		entries = append(entries, fd)
	}
	return entries, nil
}

// Clear removes the file.
func (s *DeadLetterStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
