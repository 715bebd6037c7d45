package fluid

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// memo caches mixture temperature lookups. Mixture inversion dominates the
// per-iteration cost of the solver, and the same (p, h, composition)
// triples recur between residual and derivative evaluation.
type memo struct {
	mu      sync.RWMutex
	vals    map[string]float64
	enabled bool
	limit   int
}

var defaultMemo = &memo{vals: make(map[string]float64), enabled: true, limit: 1 << 16}

// SetMemorise toggles the global property cache.
func SetMemorise(on bool) {
	defaultMemo.mu.Lock()
	defer defaultMemo.mu.Unlock()
	defaultMemo.enabled = on
	if !on {
		defaultMemo.vals = make(map[string]float64)
	}
}

// ClearMemory drops all cached property values.
func ClearMemory() {
	defaultMemo.mu.Lock()
	defer defaultMemo.mu.Unlock()
	defaultMemo.vals = make(map[string]float64)
}

func (m *memo) key(flow Flow) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%.7e|%.7e", flow.P, flow.H)
	names := make([]string, 0, len(flow.Fluid))
	for n := range flow.Fluid {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(&b, "|%s=%.6f", n, flow.Fluid[n])
	}
	return b.String()
}

func (m *memo) get(flow Flow) (float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.enabled {
		return 0, false
	}
	v, ok := m.vals[m.key(flow)]
	return v, ok
}

func (m *memo) put(flow Flow, v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enabled {
		return
	}
	if len(m.vals) >= m.limit {
		m.vals = make(map[string]float64)
	}
	m.vals[m.key(flow)] = v
}
