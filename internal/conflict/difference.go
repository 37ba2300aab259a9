package conflict

import "whiteboard-sync-server/internal/domain"

const structuralDriftLimit = 2

// LargeDifference reports whether two versions of the same page have diverged
// too far to reconcile by overwrite or silent merge, in which case they are
// preserved as separate pages. Small edits (a changed field, a couple of
// added or removed rows) stay below the limit. The check is symmetric.
func LargeDifference(local, remote *domain.Page) bool {
	if local == nil || remote == nil {
		return true
	}
	if local.Title != remote.Title {
		return true
	}
	if local.Content != remote.Content {
		return true
	}

	pairs := [][2][]string{
		{cardIDs(local.Cards), cardIDs(remote.Cards)},
		{itemIDs(local.Items), itemIDs(remote.Items)},
		{nodeIDs(local.Nodes), nodeIDs(remote.Nodes)},
		{textBoxIDs(local.TextBoxes), textBoxIDs(remote.TextBoxes)},
	}
	for _, pair := range pairs {
		if abs(len(pair[0])-len(pair[1])) > structuralDriftLimit {
			return true
		}
		if symmetricDifference(pair[0], pair[1]) > structuralDriftLimit {
			return true
		}
	}

	return false
}

// symmetricDifference counts ids present in exactly one of the two sets.
func symmetricDifference(a, b []string) int {
	inA := make(map[string]bool, len(a))
	for _, id := range a {
		inA[id] = true
	}
	inB := make(map[string]bool, len(b))
	for _, id := range b {
		inB[id] = true
	}

	count := 0
	for id := range inA {
		if !inB[id] {
			count++
		}
	}
	for id := range inB {
		if !inA[id] {
			count++
		}
	}
	return count
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func cardIDs(cards []domain.QACard) []string {
	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	return ids
}

func itemIDs(items []domain.RankingItem) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

func nodeIDs(nodes []domain.Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}

func textBoxIDs(boxes []domain.TextBox) []string {
	ids := make([]string, len(boxes))
	for i, tb := range boxes {
		ids[i] = tb.ID
	}
	return ids
}
