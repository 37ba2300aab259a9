package conflict

import (
	"testing"

	"whiteboard-sync-server/internal/domain"
)

func TestMergeProjects(t *testing.T) {
	local := domain.Project{ID: "p1", Name: "Local name", Owner: "alice", Version: 2}
	remote := domain.Project{ID: "p1", Name: "Remote name", Owner: "alice", Version: 5}

	merged := MergeProjects(local, remote)

	if merged.Name != "Local name" {
		t.Errorf("MergeProjects() name = %q, want local name", merged.Name)
	}
	if merged.ID != "p1" {
		t.Errorf("MergeProjects() id = %q", merged.ID)
	}

	local.Name = ""
	merged = MergeProjects(local, remote)
	if merged.Name != "Remote name" {
		t.Errorf("MergeProjects() name = %q, want remote name when local is empty", merged.Name)
	}
}

func TestMergeRankingPages(t *testing.T) {
	local := domain.NewRankingPage("Ranking", "project-1", "")
	local.Items = []domain.RankingItem{
		{ID: "a", Title: "first"},
		{ID: "b", Title: "second"},
	}

	remote := domain.ClonePage(local)
	remote.Items = []domain.RankingItem{
		{ID: "a", Title: "first (edited remotely)"},
		{ID: "c", Title: "third"},
	}

	merged := MergeRankingPages(local, remote)

	wantOrder := []string{"a", "b", "c"}
	if len(merged.Items) != len(wantOrder) {
		t.Fatalf("MergeRankingPages() item count = %d, want %d", len(merged.Items), len(wantOrder))
	}
	for i, id := range wantOrder {
		if merged.Items[i].ID != id {
			t.Errorf("MergeRankingPages() item[%d] = %q, want %q", i, merged.Items[i].ID, id)
		}
	}

	// local copy of a shared item wins
	if merged.Items[0].Title != "first" {
		t.Errorf("MergeRankingPages() shared item title = %q, want local", merged.Items[0].Title)
	}
}

func TestMergeRankingPagesMonotonic(t *testing.T) {
	local := domain.NewRankingPage("Ranking", "project-1", "")
	local.Items = []domain.RankingItem{{ID: "a"}, {ID: "b"}}
	remote := domain.ClonePage(local)
	remote.Items = []domain.RankingItem{{ID: "b"}, {ID: "c"}}

	merged := MergeRankingPages(local, remote)

	ids := make(map[string]bool)
	for _, it := range merged.Items {
		ids[it.ID] = true
	}
	for _, side := range [][]domain.RankingItem{local.Items, remote.Items} {
		for _, it := range side {
			if !ids[it.ID] {
				t.Errorf("MergeRankingPages() lost item %q", it.ID)
			}
		}
	}
}

func TestMergeQAPages(t *testing.T) {
	local := domain.NewQAPage("QA", "project-1", "")
	local.Cards = []domain.QACard{
		{
			ID:    "card-1",
			Title: "Shared card",
			Answers: []domain.QAAnswer{
				{ID: "ans-1", Text: "local answer"},
			},
		},
		{ID: "card-2", Title: "Local only"},
	}

	remote := domain.ClonePage(local)
	remote.Cards = []domain.QACard{
		{
			ID:    "card-1",
			Title: "Shared card",
			Answers: []domain.QAAnswer{
				{ID: "ans-1", Text: "local answer"},
				{ID: "ans-2", Text: "remote answer"},
			},
		},
		{ID: "card-3", Title: "Remote only"},
	}

	merged := MergeQAPages(local, remote)

	if len(merged.Cards) != 3 {
		t.Fatalf("MergeQAPages() card count = %d, want 3", len(merged.Cards))
	}

	shared := merged.Cards[0]
	if shared.ID != "card-1" {
		t.Fatalf("MergeQAPages() first card = %q, want shared card", shared.ID)
	}
	if len(shared.Answers) != 2 {
		t.Errorf("MergeQAPages() shared card answers = %d, want union of 2", len(shared.Answers))
	}

	if merged.Cards[1].ID != "card-2" || merged.Cards[2].ID != "card-3" {
		t.Errorf("MergeQAPages() card order = [%s %s %s], want local first",
			merged.Cards[0].ID, merged.Cards[1].ID, merged.Cards[2].ID)
	}
}

func TestMergeDiagramPages(t *testing.T) {
	local := domain.NewDiagramPage("Diagram", "project-1", "")
	local.Nodes = []domain.Node{{ID: "n1", Title: "Local node"}}
	local.TextBoxes = []domain.TextBox{{ID: "t1", Text: "local box"}}
	local.Links = []domain.Link{{ID: "l1"}}

	remote := domain.ClonePage(local)
	remote.Nodes = []domain.Node{
		{ID: "n1", Title: "Remote edit"},
		{ID: "n2", Title: "Remote node"},
	}
	remote.TextBoxes = []domain.TextBox{{ID: "t2", Text: "remote box"}}
	remote.Links = []domain.Link{{ID: "l2"}}

	merged := MergeDiagramPages(local, remote)

	if len(merged.Nodes) != 2 {
		t.Errorf("MergeDiagramPages() node count = %d, want 2", len(merged.Nodes))
	}
	if merged.Nodes[0].Title != "Local node" {
		t.Errorf("MergeDiagramPages() shared node title = %q, want local", merged.Nodes[0].Title)
	}
	if len(merged.TextBoxes) != 2 {
		t.Errorf("MergeDiagramPages() text box count = %d, want 2", len(merged.TextBoxes))
	}

	// links follow the local base untouched
	if len(merged.Links) != 1 || merged.Links[0].ID != "l1" {
		t.Errorf("MergeDiagramPages() links = %v, want local links only", merged.Links)
	}
}
