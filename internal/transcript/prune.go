// ABOUTME: History pruning that drops whole exchanges once a size cap is hit
// ABOUTME: Keeps the transcript as complete pairs plus at most one trailing user part

package transcript

// Prune caps history at maxParts by dropping the oldest complete exchange
// (one user part followed by one model part) until the history fits.
// Partial exchanges are never dropped: the transcript always remains whole
// pairs, with at most one trailing unmatched user part awaiting its answer.
//
// maxParts <= 0 disables pruning. The input slice is not mutated.
func Prune(history []Part, maxParts int) []Part {
	if maxParts <= 0 || len(history) <= maxParts {
		return history
	}

	pruned := history
	for len(pruned) > maxParts {
		if len(pruned) < 2 || pruned[0].Role != RoleUser || pruned[1].Role != RoleModel {
			// Not a complete leading exchange; stop rather than split a pair.
			break
		}
		pruned = pruned[2:]
	}

	out := make([]Part, len(pruned))
	copy(out, pruned)
	return out
}
