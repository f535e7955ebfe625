package scripter

import "sqlporter/internal/console"

// sortByDependencies orders tables so referenced tables come first.
// Circular references are broken with a scoring heuristic: prefer the
// table with the fewest unresolved references, with a boost for tables
// that sit on a direct cycle so cycles are broken early.
func sortByDependencies(tables []*tableInfo, log *console.Logger) []*tableInfo {
	byKey := make(map[string]*tableInfo, len(tables))
	for _, t := range tables {
		byKey[t.key()] = t
	}

	var sorted []*tableInfo
	processed := make(map[string]bool, len(tables))

	for len(sorted) < len(tables) {
		added := false

		// Pass 1: everything whose references are already placed.
		for _, t := range tables {
			if processed[t.key()] {
				continue
			}
			ready := true
			for _, dep := range t.Dependencies {
				if !processed[dep] {
					ready = false
					break
				}
			}
			if ready {
				sorted = append(sorted, t)
				processed[t.key()] = true
				added = true
			}
		}
		if added {
			continue
		}

		// Pass 2: nothing placed, so there is a cycle. Pick a breaker.
		var best *tableInfo
		bestScore := -1 << 30

		for _, t := range tables {
			if processed[t.key()] {
				continue
			}

			score := 0
			for _, dep := range t.Dependencies {
				if !processed[dep] {
					score -= 100
				}
			}

			for _, dep := range t.Dependencies {
				if processed[dep] {
					continue
				}
				if other, ok := byKey[dep]; ok {
					for _, back := range other.Dependencies {
						if back == t.key() {
							score += 500
							break
						}
					}
				}
			}

			if score > bestScore || (score == bestScore && (best == nil || t.key() < best.key())) {
				bestScore = score
				best = t
			}
		}

		if best == nil {
			// Cannot happen while sorted < tables, but do not spin.
			break
		}
		if log != nil {
			log.Warnf("breaking circular reference at %s.%s", best.Schema, best.Name)
		}
		sorted = append(sorted, best)
		processed[best.key()] = true
	}

	return sorted
}
