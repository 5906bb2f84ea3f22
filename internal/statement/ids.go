package statement

import "github.com/google/uuid"

// IDGenerator hands out ids that are unique within one parse run.
// It is not safe for concurrent use.
type IDGenerator struct {
	next func() uuid.UUID
	seen map[uuid.UUID]struct{}
}

// NewIDGenerator wraps next, which defaults to uuid.New.
func NewIDGenerator(next func() uuid.UUID) *IDGenerator {
	if next == nil {
		next = uuid.New
	}

	return &IDGenerator{next: next, seen: make(map[uuid.UUID]struct{})}
}

// Next returns an id not handed out before by g.
func (g *IDGenerator) Next() uuid.UUID {
	for {
		id := g.next()
		if _, dup := g.seen[id]; dup || id == uuid.Nil {
			continue
		}

		g.seen[id] = struct{}{}

		return id
	}
}
