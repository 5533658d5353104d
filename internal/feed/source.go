package feed

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// SourceConfig holds the options of one source, as read from the config
// file.
type SourceConfig map[string]any

// Source extracts records from an external system.
type Source interface {
	Type() string
	// Read streams records into the channel and closes both channels when
	// done. At most one error is sent.
	Read(ctx context.Context, cfg SourceConfig) (<-chan Record, <-chan error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Source{}
)

// RegisterSource makes a source available by its type.
func RegisterSource(s Source) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[s.Type()] = s
}

// GetSource returns a registered source by type.
func GetSource(typ string) (Source, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[typ]
	if !ok {
		return nil, fmt.Errorf("unknown feed source %q", typ)
	}
	return s, nil
}

// SourceTypes lists the registered source types.
func SourceTypes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func (c SourceConfig) string(key string) string {
	s, _ := c[key].(string)
	return s
}

// emit streams records until ctx is cancelled.
func emit(ctx context.Context, records []Record, out chan<- Record) {
	for _, rec := range records {
		select {
		case out <- rec:
		case <-ctx.Done():
			return
		}
	}
}

// readAll wraps a one-shot loader into the streaming Read contract.
func readAll(ctx context.Context, load func() ([]Record, error)) (<-chan Record, <-chan error) {
	out := make(chan Record, 100)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		records, err := load()
		if err != nil {
			errCh <- err
			return
		}
		emit(ctx, records, out)
	}()
	return out, errCh
}
