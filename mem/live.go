package mem

// liveTable is the live pointer -> AllocKey mapping; the single source of
// truth for "which pointer is outstanding and what are its attributes".
// Protected by the allocator's main lock.
//
// Invariant L1: every pointer currently held by a client appears exactly
// once here. Invariant L2: a pointer is either here or in exactly one
// cache list (global or per-chain batch) or the unmap queue; never both.
type liveTable struct {
	m map[uintptr]AllocKey
}

func newLiveTable() *liveTable {
	return &liveTable{m: make(map[uintptr]AllocKey)}
}

// insert records ptr as live under ai. Caller must hold the main lock.
func (t *liveTable) insert(ptr uintptr, ai AllocKey) {
	t.m[ptr] = ai
}

// lookup returns ptr's AllocKey and whether it is live. Caller must hold
// the main lock.
func (t *liveTable) lookup(ptr uintptr) (AllocKey, bool) {
	ai, ok := t.m[ptr]
	return ai, ok
}

// remove deletes ptr from the table. Caller must hold the main lock.
func (t *liveTable) remove(ptr uintptr) {
	delete(t.m, ptr)
}

// relabelKind mutates the Kind of a live record in place, used by the
// trivial Host<->HostAsync migration relabel. Caller must hold the main
// lock.
func (t *liveTable) relabelKind(ptr uintptr, kind Kind) {
	ai := t.m[ptr]
	ai.Kind = kind
	t.m[ptr] = ai
}

// snapshot returns a copy of the live entries, for leak reporting at
// Shutdown. Caller must hold the main lock.
func (t *liveTable) snapshot() map[uintptr]AllocKey {
	out := make(map[uintptr]AllocKey, len(t.m))
	for k, v := range t.m {
		out[k] = v
	}
	return out
}

// len returns the number of live entries. Caller must hold the main lock.
func (t *liveTable) len() int {
	return len(t.m)
}
