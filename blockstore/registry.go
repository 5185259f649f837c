package blockstore

import (
	"math/rand/v2"
	"slices"
)

// Registry is a process-wide, read-only map of bucket name to Bucket,
// plus the direct fanout constant F. It is built once at startup and
// never mutated afterward, so it needs no locking: every method here
// only reads Registry.buckets.
type Registry struct {
	buckets map[string]*Bucket
	order   []string // stable iteration order for deterministic tests
	fanout  int
}

// NewRegistry builds a Registry from a name->Bucket map and a direct
// fanout. buckets must not be mutated after this call.
func NewRegistry(buckets map[string]*Bucket, directFanout int) *Registry {
	order := make([]string, 0, len(buckets))
	for name := range buckets {
		order = append(order, name)
	}
	slices.Sort(order)
	return &Registry{buckets: buckets, order: order, fanout: directFanout}
}

// GetBucket returns the named bucket, or nil if it is not registered.
func (r *Registry) GetBucket(name string) *Bucket {
	return r.buckets[name]
}

// ListBuckets returns every registered bucket name, in a stable order.
func (r *Registry) ListBuckets() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// RandomBucket returns a uniformly random bucket name, or "" if the
// registry is empty.
func (r *Registry) RandomBucket() string {
	if len(r.order) == 0 {
		return ""
	}
	return r.order[rand.N(len(r.order))]
}

// DirectFanout returns F, the maximum number of Direct children an
// Indirect block may hold before spilling into a StoredBlock tail.
func (r *Registry) DirectFanout() int {
	return r.fanout
}

// PickBucket chooses uniformly at random among buckets whose MaxSize is
// at least minSize and whose name is not in exclude. It returns "" if no
// bucket qualifies — a normal outcome meaning "no capable backend",
// never an error by itself; callers turn that into ErrPlacement.
func (r *Registry) PickBucket(minSize int, exclude []string) string {
	var candidates []string
	for _, name := range r.order {
		if slices.Contains(exclude, name) {
			continue
		}
		if r.buckets[name].MaxSize() >= minSize {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	return candidates[rand.N(len(candidates))]
}
