package secret

import (
	"sync"

	"github.com/spf13/viper"
)

// ViperStore reads secrets from the configuration file and from
// STOREFRONT_* environment variables. Writes only live for the process.
type ViperStore struct {
	mu sync.Mutex
	v  *viper.Viper
}

func NewViperStore(v *viper.Viper) *ViperStore {
	if v == nil {
		v = viper.New()
	}
	return &ViperStore{v: v}
}

func (s *ViperStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Set(key, string(value))
	return nil
}

func (s *ViperStore) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	val := s.v.GetString(key)
	if val == "" {
		return nil, nil
	}
	return []byte(val), nil
}

func (s *ViperStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Set(key, "")
	return nil
}
