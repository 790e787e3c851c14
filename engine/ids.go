package engine

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// queryIDs hands out monotonic ULIDs used to correlate log lines of one
// statement.
type queryIDs struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func newQueryIDs() *queryIDs {
	return &queryIDs{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *queryIDs) next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), g.entropy)
	if err != nil {
		// Monotonic entropy overflows within one millisecond only.
		return ulid.Make().String()
	}
	return id.String()
}
