package skill

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/convoke/convoke/core"
	"github.com/convoke/convoke/logging"
	"github.com/convoke/convoke/store"
)

const (
	skillIDSetKey  = "skills:ids"
	skillKeyPrefix = "skill:"
	resultPrefix   = "skill_result:"
	// resultTTL bounds how long audit records are retained.
	resultTTL = 7 * 24 * time.Hour
)

// ErrSkillNotFound indicates a lookup for an unregistered skill ID.
type ErrSkillNotFound struct{ ID string }

// Error implements the error interface.
func (e *ErrSkillNotFound) Error() string { return fmt.Sprintf("skill %q not found", e.ID) }

// Registry stores skill definitions in the persistence collaborator and keeps
// an in-memory read cache. The cache is invalidated on every mutating call
// and lazily rebuilt on the first read after that.
type Registry struct {
	store  store.Store
	logger logging.Logger

	mu     sync.RWMutex
	cache  map[string]*core.Skill
	loaded bool
}

// NewRegistry creates a Registry over the given store.
func NewRegistry(s store.Store, logger logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Registry{store: s, logger: logger}
}

func (r *Registry) invalidate() {
	r.mu.Lock()
	r.cache = nil
	r.loaded = false
	r.mu.Unlock()
}

func (r *Registry) ensureLoaded(ctx context.Context) error {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if loaded {
		return nil
	}

	ids, err := r.store.SetMembers(ctx, skillIDSetKey)
	if err != nil {
		return err
	}
	cache := make(map[string]*core.Skill, len(ids))
	for _, id := range ids {
		raw, ok, err := r.store.HashGet(ctx, skillKeyPrefix+id, "definition")
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		var s core.Skill
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			r.logger.Warn("skipping undecodable skill record", "skill_id", id, "error", err)
			continue
		}
		cache[id] = &s
	}

	r.mu.Lock()
	r.cache = cache
	r.loaded = true
	r.mu.Unlock()
	return nil
}

func (r *Registry) persist(ctx context.Context, s *core.Skill) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode skill %q: %w", s.ID, err)
	}
	if err := r.store.HashSet(ctx, skillKeyPrefix+s.ID, map[string]string{
		"definition": string(raw),
		"name":       s.Name,
	}); err != nil {
		return err
	}
	return r.store.SetAdd(ctx, skillIDSetKey, s.ID)
}

// Register adds a new skill. Registering an existing ID is a loud error;
// use Update for changes.
func (r *Registry) Register(ctx context.Context, s *core.Skill) error {
	if s.ID == "" {
		return fmt.Errorf("skill must have an ID")
	}
	if err := r.ensureLoaded(ctx); err != nil {
		return err
	}
	r.mu.RLock()
	_, exists := r.cache[s.ID]
	r.mu.RUnlock()
	if exists {
		return fmt.Errorf("skill %q already registered", s.ID)
	}
	if err := r.persist(ctx, s); err != nil {
		return err
	}
	r.invalidate()
	r.logger.Info("skill registered", "skill_id", s.ID)
	return nil
}

// Get returns the skill with the given ID.
func (r *Registry) Get(ctx context.Context, id string) (*core.Skill, error) {
	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	s, ok := r.cache[id]
	r.mu.RUnlock()
	if !ok {
		return nil, &ErrSkillNotFound{ID: id}
	}
	return s, nil
}

// List returns all registered skills sorted by ID.
func (r *Registry) List(ctx context.Context) ([]*core.Skill, error) {
	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]*core.Skill, 0, len(r.cache))
	for _, s := range r.cache {
		out = append(out, s)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Update replaces an existing skill definition.
func (r *Registry) Update(ctx context.Context, id string, s *core.Skill) error {
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	s.ID = id
	if err := r.persist(ctx, s); err != nil {
		return err
	}
	r.invalidate()
	r.logger.Info("skill updated", "skill_id", id)
	return nil
}

// Delete removes a skill.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	if err := r.store.Delete(ctx, skillKeyPrefix+id); err != nil {
		return err
	}
	if err := r.store.SetRemove(ctx, skillIDSetKey, id); err != nil {
		return err
	}
	r.invalidate()
	r.logger.Info("skill deleted", "skill_id", id)
	return nil
}

// StoreResult persists a skill result for audit.
func (r *Registry) StoreResult(ctx context.Context, res *core.SkillResult) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode skill result: %w", err)
	}
	return r.store.Set(ctx, resultPrefix+res.ID, string(raw), resultTTL)
}

// GetResult retrieves a persisted skill result by ID.
func (r *Registry) GetResult(ctx context.Context, id string) (*core.SkillResult, error) {
	raw, ok, err := r.store.Get(ctx, resultPrefix+id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("skill result %q not found", id)
	}
	var res core.SkillResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return nil, fmt.Errorf("decode skill result %q: %w", id, err)
	}
	return &res, nil
}
