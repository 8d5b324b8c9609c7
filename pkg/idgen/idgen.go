package idgen

import "github.com/google/uuid"

// Generator produces ids for records whose identity is not derived from their
// source. Injected so tests control ids.
type Generator interface {
	NewID() string
}

type uuidGenerator struct{}

func (uuidGenerator) NewID() string {
	return uuid.New().String()
}

// New returns a uuid-backed Generator.
func New() Generator {
	return uuidGenerator{}
}

// Sequence returns a Generator that yields the given ids in order and panics
// when exhausted. Test helper.
type Sequence struct {
	IDs  []string
	next int
}

func (s *Sequence) NewID() string {
	if s.next >= len(s.IDs) {
		panic("idgen: sequence exhausted")
	}
	id := s.IDs[s.next]
	s.next++
	return id
}
