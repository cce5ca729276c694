package cart

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Registry hands out one cart per actor. Carts live for the process lifetime;
// when snapshots are configured, a freshly created cart is restored from the
// actor's last snapshot so a crashed terminal picks up where it left off.
type Registry struct {
	mu    sync.Mutex
	carts map[uuid.UUID]*Store
	snaps *Snapshots // nil when Redis is not configured
}

// NewRegistry creates a Registry. snaps may be nil.
func NewRegistry(snaps *Snapshots) *Registry {
	return &Registry{carts: make(map[uuid.UUID]*Store), snaps: snaps}
}

// ForActor returns the actor's cart, creating it on first use.
func (r *Registry) ForActor(ctx context.Context, actor uuid.UUID) *Store {
	r.mu.Lock()
	if s, ok := r.carts[actor]; ok {
		r.mu.Unlock()
		return s
	}
	s := NewStore()
	r.carts[actor] = s
	r.mu.Unlock()

	if r.snaps != nil {
		lines, err := r.snaps.Load(ctx, actor)
		if err != nil {
			log.Printf("ERROR: cart: restore snapshot for %s: %v", actor, err)
		} else if len(lines) > 0 {
			s.restore(lines)
		}
	}
	return s
}

// Persist stores the cart's current lines as the actor's snapshot.
// Best-effort: failures are logged, never surfaced, and never block the cart.
func (r *Registry) Persist(ctx context.Context, actor uuid.UUID, s *Store) {
	if r.snaps == nil {
		return
	}
	if err := r.snaps.Save(ctx, actor, s.Lines()); err != nil {
		log.Printf("ERROR: cart: save snapshot for %s: %v", actor, err)
	}
}

// Discard drops the actor's snapshot, typically after a successful submission.
func (r *Registry) Discard(ctx context.Context, actor uuid.UUID) {
	if r.snaps == nil {
		return
	}
	if err := r.snaps.Delete(ctx, actor); err != nil {
		log.Printf("ERROR: cart: delete snapshot for %s: %v", actor, err)
	}
}
