package cart

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/counterdesk/api/internal/store"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Snapshots persists cart contents to Redis as a crash-recovery convenience.
// Correctness never depends on it: a lost snapshot means an empty cart.
type Snapshots struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshots creates a Snapshots store on the given client.
func NewSnapshots(client *redis.Client, ttl time.Duration) *Snapshots {
	return &Snapshots{client: client, ttl: ttl}
}

func key(actor uuid.UUID) string {
	return "cart:" + actor.String()
}

// Save writes the line set, refreshing its TTL.
func (s *Snapshots) Save(ctx context.Context, actor uuid.UUID, lines store.ItemLineSet) error {
	data, err := json.Marshal(lines.Lines())
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key(actor), data, s.ttl).Err()
}

// Load reads the actor's snapshot. A missing key yields an empty set.
// The payload passes through the same normalization as persisted order lines,
// so a corrupt snapshot degrades to dropped lines rather than an error.
func (s *Snapshots) Load(ctx context.Context, actor uuid.UUID) (store.ItemLineSet, error) {
	data, err := s.client.Get(ctx, key(actor)).Bytes()
	if errors.Is(err, redis.Nil) {
		return make(store.ItemLineSet), nil
	}
	if err != nil {
		return nil, err
	}
	return store.ParseRawLines(data), nil
}

// Delete drops the actor's snapshot.
func (s *Snapshots) Delete(ctx context.Context, actor uuid.UUID) error {
	return s.client.Del(ctx, key(actor)).Err()
}
