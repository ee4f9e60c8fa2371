package cache

import "context"

// Strings adapts a TTL[string] to the context-aware store interface shared
// with the Redis backend. It never fails.
type Strings struct {
	c *TTL[string]
}

func NewStrings(c *TTL[string]) *Strings {
	return &Strings{c: c}
}

func (s *Strings) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.c.Get(key)
	return v, ok, nil
}

func (s *Strings) Set(_ context.Context, key, value string) error {
	s.c.Set(key, value)
	return nil
}

func (s *Strings) Flush(_ context.Context) error {
	s.c.Clear()
	return nil
}
