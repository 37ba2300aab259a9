package conflict

import "whiteboard-sync-server/internal/domain"

// unionByID keeps every local element in order, then appends remote elements
// whose id is absent from local.
func unionByID[T any](local, remote []T, id func(T) string) []T {
	seen := make(map[string]bool, len(local))
	for _, el := range local {
		seen[id(el)] = true
	}

	merged := make([]T, 0, len(local)+len(remote))
	merged = append(merged, local...)
	for _, el := range remote {
		if !seen[id(el)] {
			merged = append(merged, el)
		}
	}
	return merged
}

// MergeProjects combines two project versions field-wise: local values win
// wherever both sides carry one. Version and timestamp stamping is the
// caller's business.
func MergeProjects(local, remote domain.Project) domain.Project {
	merged := remote
	if local.Name != "" {
		merged.Name = local.Name
	}
	if local.Owner != "" {
		merged.Owner = local.Owner
	}
	return merged
}

// MergeRankingPages unions the item lists by id, local order first.
func MergeRankingPages(local, remote domain.Page) domain.Page {
	merged := domain.ClonePage(local)
	merged.Items = unionByID(local.Items, remote.Items,
		func(it domain.RankingItem) string { return it.ID })
	return merged
}

// MergeQAPages unions the card lists by id; cards present on both sides get
// their answer lists unioned by id the same way (local answers first).
func MergeQAPages(local, remote domain.Page) domain.Page {
	merged := domain.ClonePage(local)

	remoteCards := make(map[string]domain.QACard, len(remote.Cards))
	for _, c := range remote.Cards {
		remoteCards[c.ID] = c
	}

	cards := unionByID(local.Cards, remote.Cards,
		func(c domain.QACard) string { return c.ID })
	for i, card := range cards {
		remoteCard, onBoth := remoteCards[card.ID]
		if !onBoth {
			continue
		}
		cards[i].Answers = unionByID(card.Answers, remoteCard.Answers,
			func(a domain.QAAnswer) string { return a.ID })
	}

	merged.Cards = cards
	return merged
}

// MergeDiagramPages unions nodes and text boxes by id. Links are not
// reconciled: they ride along with the local base, so a link referencing a
// node introduced only by the remote side may dangle.
func MergeDiagramPages(local, remote domain.Page) domain.Page {
	merged := domain.ClonePage(local)
	merged.Nodes = unionByID(local.Nodes, remote.Nodes,
		func(n domain.Node) string { return n.ID })
	merged.TextBoxes = unionByID(local.TextBoxes, remote.TextBoxes,
		func(tb domain.TextBox) string { return tb.ID })
	return merged
}
