package flatten

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/harrison/flatten/internal/extension"
	"github.com/harrison/flatten/internal/fsys"
)

// NameRegistry tracks the file names taken in the output directory and hands
// out collision-free names of the form <base><ext>, <base>(1)<ext>, ...
//
// A candidate is taken when it was claimed earlier in this run, when it
// already exists in the output directory, or when its phase-2 name
// <base>(k)<target> exists there. The last rule keeps the rename pass from
// ever landing on an earlier run's output.
//
// The registry is seeded from a listing of the output directory on first use.
// Files that appear after seeding are reported back through MarkTaken by the
// copier when its exclusive create fails. All methods are goroutine-safe.
type NameRegistry struct {
	mu       sync.Mutex
	fs       fsys.Filesystem
	dir      string
	target   extension.Spec
	foldCase bool

	seeded   bool
	existing map[string]bool   // names present in the output dir
	claimed  map[string]string // name claimed this run -> source path
	order    []string          // claimed names in claim order
	counters map[string]int    // <base><ext> -> next suffix to try
}

// NewNameRegistry creates a registry for dir. target is the extension phase 2
// will rewrite to; a zero target disables the phase-2 check.
func NewNameRegistry(fs fsys.Filesystem, dir string, target extension.Spec, foldCase bool) *NameRegistry {
	return &NameRegistry{
		fs:       fs,
		dir:      dir,
		target:   target,
		foldCase: foldCase,
		existing: make(map[string]bool),
		claimed:  make(map[string]string),
		counters: make(map[string]int),
	}
}

// Claim reserves and returns the first free name for a file with the given
// base and extension. source is recorded as the owner of the name.
func (r *NameRegistry) Claim(base, ext, source string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.seed(); err != nil {
		return "", err
	}

	plain := base + ext
	for k := r.counters[r.key(plain)]; ; k++ {
		stem := base
		if k > 0 {
			stem = fmt.Sprintf("%s(%d)", base, k)
		}
		name := stem + ext
		if r.taken(name) {
			continue
		}
		if !r.target.IsZero() && r.taken(stem+r.target.String()) {
			continue
		}
		r.claimed[r.key(name)] = source
		r.order = append(r.order, name)
		r.counters[r.key(plain)] = k + 1
		return name, nil
	}
}

// Release gives a claimed name back, e.g. after a failed copy. The name
// becomes the next candidate for its base again.
func (r *NameRegistry) Release(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := r.key(name)
	if _, ok := r.claimed[k]; !ok {
		return
	}
	delete(r.claimed, k)
	for i, n := range r.order {
		if r.key(n) == k {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	// Probing restarts from zero for every base; taken names are skipped again.
	clear(r.counters)
}

// MarkTaken records that name exists in the output directory even though the
// seed listing did not show it.
func (r *NameRegistry) MarkTaken(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.existing[r.key(name)] = true
	delete(r.claimed, r.key(name))
	for i, n := range r.order {
		if r.key(n) == r.key(name) {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Claimed returns the names claimed in this run in claim order.
func (r *NameRegistry) Claimed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *NameRegistry) taken(name string) bool {
	k := r.key(name)
	if r.existing[k] {
		return true
	}
	_, ok := r.claimed[k]
	return ok
}

func (r *NameRegistry) key(name string) string {
	if r.foldCase {
		return strings.ToLower(name)
	}
	return name
}

// seed lists the output directory once. A missing directory is empty.
func (r *NameRegistry) seed() error {
	if r.seeded {
		return nil
	}
	infos, err := r.fs.ReadDir(r.dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %w", ErrOutputUnavailable, err)
	}
	for _, info := range infos {
		r.existing[r.key(info.Name())] = true
	}
	r.seeded = true
	return nil
}
