package stategraph

// interruptGuard is the interrupt controller: a set of node names guarded
// before execution. The executor consults it at the top of every superstep,
// before any node body in the frontier runs.
type interruptGuard struct {
	before map[string]struct{}
}

func newInterruptGuard(nodes []string) *interruptGuard {
	g := &interruptGuard{before: make(map[string]struct{}, len(nodes))}
	for _, n := range nodes {
		g.before[n] = struct{}{}
	}
	return g
}

// shouldPause reports whether the frontier intersects the guarded set.
// Interrupts are frontier-wide: one guarded member pauses the whole
// superstep.
func (g *interruptGuard) shouldPause(frontier []string) bool {
	if g == nil || len(g.before) == 0 {
		return false
	}
	for _, node := range frontier {
		if _, guarded := g.before[node]; guarded {
			return true
		}
	}
	return false
}
