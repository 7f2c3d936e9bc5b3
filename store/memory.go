package store

import (
	"context"
	"fmt"
	"sync"
)

// MemoryDriver is an in-memory Driver used in tests and as a degraded-mode
// fallback when no database is configured. Contents do not survive restarts.
type MemoryDriver struct {
	mu     sync.RWMutex
	values map[string][]byte

	// FailWrites makes Set return an error, for exercising best-effort
	// persistence paths in tests.
	FailWrites bool
}

// NewMemoryDriver creates an empty in-memory driver.
func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{
		values: make(map[string][]byte),
	}
}

func (d *MemoryDriver) Get(ctx context.Context, key string) ([]byte, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	value, ok := d.values[key]
	if !ok {
		return nil, false, nil
	}
	copied := make([]byte, len(value))
	copy(copied, value)
	return copied, true, nil
}

func (d *MemoryDriver) Set(ctx context.Context, key string, value []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.FailWrites {
		return fmt.Errorf("memory driver: writes disabled")
	}
	copied := make([]byte, len(value))
	copy(copied, value)
	d.values[key] = copied
	return nil
}

func (d *MemoryDriver) Delete(ctx context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.values, key)
	return nil
}

func (d *MemoryDriver) Close() error {
	return nil
}
