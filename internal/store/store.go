// Package store persists application state as whole values under fixed keys.
// Every write replaces the previous value; there are no partial updates.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Keys for the persisted application state.
const (
	KeyTasks          = "todoTasks"
	KeySettings       = "todoSettings"
	KeyPendingChanges = "pendingChanges"
	KeyLastSyncAt     = "lastSyncAt"
	KeyEndpoint       = "apiUrl"
)

// ErrNotFound is returned by Load when nothing is stored under a key.
var ErrNotFound = errors.New("key not found")

// Store reads and writes opaque values by key.
type Store interface {
	// Load returns the value stored under key, or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save replaces the value stored under key.
	Save(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Updater is implemented by stores that can read and rewrite a key as one
// atomic step, also against other processes sharing the same database.
type Updater interface {
	// Update passes the current value (found is false if absent) to fn and
	// stores what fn returns. Nothing is written if fn fails.
	Update(ctx context.Context, key string, fn func(old []byte, found bool) ([]byte, error)) error
}

// Locker is implemented by stores that hold named leases. A lease expires
// after its ttl unless the owner takes it again.
type Locker interface {
	// TryLock takes or renews the lease. Reports false if another owner
	// holds an unexpired lease.
	TryLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)

	// Unlock releases the lease if owner holds it.
	Unlock(ctx context.Context, name, owner string) error
}

// Update rewrites the value under key through fn, atomically when s is an
// Updater.
func Update(ctx context.Context, s Store, key string, fn func(old []byte, found bool) ([]byte, error)) error {
	if u, ok := s.(Updater); ok {
		return u.Update(ctx, key, fn)
	}
	old, err := s.Load(ctx, key)
	found := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	next, err := fn(old, found)
	if err != nil {
		return err
	}
	return s.Save(ctx, key, next)
}

// UpdateJSON decodes the value under key, lets fn modify it and stores the
// result. An absent key starts from the zero value.
func UpdateJSON[T any](ctx context.Context, s Store, key string, fn func(v *T) error) error {
	return Update(ctx, s, key, func(old []byte, found bool) ([]byte, error) {
		var v T
		if found {
			if err := json.Unmarshal(old, &v); err != nil {
				return nil, fmt.Errorf("failed to decode %s: %w", key, err)
			}
		}
		if err := fn(&v); err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", key, err)
		}
		return data, nil
	})
}

// LoadJSON decodes the value under key into v.
// Returns false without error if the key is absent.
func LoadJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	data, err := s.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// SaveJSON encodes v and stores it under key.
func SaveJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.Save(ctx, key, data)
}

// Memory is an in-process Store. Values are copied on the way in and out.
type Memory struct {
	mu     sync.RWMutex
	values map[string][]byte
	leases map[string]lease

	// SaveErr, when set, is returned by every Save.
	SaveErr error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		values: make(map[string][]byte),
		leases: make(map[string]lease),
	}
}

type lease struct {
	owner   string
	expires time.Time
}

// Load implements Store.
func (m *Memory) Load(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Save implements Store.
func (m *Memory) Save(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.values[key] = append([]byte(nil), value...)
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Update implements Updater. SaveErr is returned after fn has run.
func (m *Memory) Update(ctx context.Context, key string, fn func(old []byte, found bool) ([]byte, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, found := m.values[key]
	next, err := fn(append([]byte(nil), old...), found)
	if err != nil {
		return err
	}
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.values[key] = append([]byte(nil), next...)
	return nil
}

// TryLock implements Locker.
func (m *Memory) TryLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if l, ok := m.leases[name]; ok && l.owner != owner && now.Before(l.expires) {
		return false, nil
	}
	m.leases[name] = lease{owner: owner, expires: now.Add(ttl)}
	return true, nil
}

// Unlock implements Locker.
func (m *Memory) Unlock(ctx context.Context, name, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.leases[name]; ok && l.owner == owner {
		delete(m.leases, name)
	}
	return nil
}
