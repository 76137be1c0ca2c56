package dnsstore

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/open-control-systems/dnssd-bridge/components/storage/stcore"
)

// PublishStore persists the service instances the bridge has published, so
// a remove operation withdraws exactly what was advertised, including
// instances published before a restart.
type PublishStore struct {
	mu sync.Mutex
	db stcore.DB
}

type publishRecord struct {
	Instance    string `json:"instance"`
	PublishedAt int64  `json:"published_at"`
}

// NewPublishStore is an initialization of PublishStore.
//
// Parameters:
//   - db - persistent storage, use stcore.NoopDB to keep the store in
//     memory-free mode.
func NewPublishStore(db stcore.DB) *PublishStore {
	return &PublishStore{db: db}
}

// Add records a published instance.
func (s *PublishStore) Add(instance string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := publishRecord{
		Instance:    instance,
		PublishedAt: time.Now().Unix(),
	}

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	return s.db.Write(instance, stcore.Blob{Data: data})
}

// Instances returns all recorded instances.
func (s *PublishStore) Instances() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var instances []string

	err := s.db.ForEach(func(key string, _ stcore.Blob) error {
		instances = append(instances, key)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return instances, nil
}

// Clear forgets all recorded instances.
func (s *PublishStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string

	err := s.db.ForEach(func(key string, _ stcore.Blob) error {
		keys = append(keys, key)

		return nil
	})
	if err != nil {
		return err
	}

	for _, key := range keys {
		if err := s.db.Remove(key); err != nil {
			return err
		}
	}

	return nil
}
