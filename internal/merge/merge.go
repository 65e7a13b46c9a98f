// Package merge reconciles pool rows from multiple sources.
package merge

import "vaultscan/internal/domain"

// Pools flattens per-source batches into one slice with at most one
// row per pool id. Batches must already be ordered by source
// precedence: when two sources report the same id, the later batch
// wins. Output order is the first-seen order of each id.
func Pools(batches ...[]domain.RawPool) []domain.RawPool {
	index := make(map[string]int)
	out := make([]domain.RawPool, 0)
	for _, batch := range batches {
		for _, p := range batch {
			if p.PoolID == "" {
				out = append(out, p)
				continue
			}
			if i, ok := index[p.PoolID]; ok {
				out[i] = p
				continue
			}
			index[p.PoolID] = len(out)
			out = append(out, p)
		}
	}
	return out
}
