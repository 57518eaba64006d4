package shared

import (
	"fmt"
	"sync/atomic"
)

// IDGenerator produces unique identifiers for entities created by the
// domain. Infrastructure supplies a UUID-backed generator; tests use
// SequentialIDs for stable output.
type IDGenerator func() string

// SequentialIDs returns a generator yielding prefix-1, prefix-2, ...
func SequentialIDs(prefix string) IDGenerator {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("%s-%d", prefix, n.Add(1))
	}
}
