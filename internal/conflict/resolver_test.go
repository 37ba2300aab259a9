package conflict

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"whiteboard-sync-server/internal/domain"
	"whiteboard-sync-server/internal/store"
)

type memProjectStore struct {
	mu       sync.Mutex
	projects map[string]domain.Project
	writes   int
}

func newMemProjectStore() *memProjectStore {
	return &memProjectStore{projects: make(map[string]domain.Project)}
}

func (m *memProjectStore) FetchByID(_ context.Context, id string) (domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return domain.Project{}, store.ErrNotFound
	}
	return p, nil
}

func (m *memProjectStore) FetchByOwner(_ context.Context, ownerID string) ([]domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Project
	for _, p := range m.projects {
		if p.Owner == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memProjectStore) TransactionalWrite(_ context.Context, project domain.Project, ownerID string) (store.WriteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	remoteVersion := int64(0)
	if existing, ok := m.projects[project.ID]; ok {
		remoteVersion = existing.Version
		if remoteVersion != project.Version {
			return store.WriteResult{}, store.ErrVersionMismatch
		}
	}

	project.Owner = ownerID
	project.Version = remoteVersion + 1
	project.UpdatedAt = time.Now()
	m.projects[project.ID] = project
	m.writes++

	return store.WriteResult{NewVersion: project.Version, WrittenAt: project.UpdatedAt}, nil
}

func (m *memProjectStore) DeleteByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.projects, id)
	return nil
}

type memPageStore struct {
	mu     sync.Mutex
	pages  map[string]domain.Page
	writes int
}

func newMemPageStore() *memPageStore {
	return &memPageStore{pages: make(map[string]domain.Page)}
}

func (m *memPageStore) FetchByID(_ context.Context, id string) (domain.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pages[id]
	if !ok {
		return domain.Page{}, store.ErrNotFound
	}
	return domain.ClonePage(p), nil
}

func (m *memPageStore) FetchByOwner(_ context.Context, ownerID string) ([]domain.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Page
	for _, p := range m.pages {
		if p.Owner == ownerID {
			out = append(out, domain.ClonePage(p))
		}
	}
	return out, nil
}

func (m *memPageStore) TransactionalWrite(_ context.Context, page domain.Page, ownerID string) (store.WriteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	remoteVersion := int64(0)
	if existing, ok := m.pages[page.ID]; ok {
		remoteVersion = existing.Version
		if remoteVersion != page.Version {
			return store.WriteResult{}, store.ErrVersionMismatch
		}
	}

	page.Owner = ownerID
	page.Version = remoteVersion + 1
	page.UpdatedAt = time.Now()
	m.pages[page.ID] = domain.ClonePage(page)
	m.writes++

	return store.WriteResult{NewVersion: page.Version, WrittenAt: page.UpdatedAt}, nil
}

func (m *memPageStore) DeleteByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pages[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.pages, id)
	return nil
}

func fixedClock() func() time.Time {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return ts }
}

func TestResolveTakeRemoteProject(t *testing.T) {
	projects := newMemProjectStore()
	pages := newMemPageStore()
	resolver := NewResolver(projects, pages, fixedClock())

	local := domain.Project{ID: "p1", Name: "Mine", Version: 1}
	remote := domain.Project{ID: "p1", Name: "Theirs", Version: 4}

	outcome, err := resolver.Resolve(context.Background(), "alice",
		domain.NewProjectConflict(local, remote), domain.ResolutionTakeRemote)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if outcome.ReplaceProject == nil || outcome.ReplaceProject.Name != "Theirs" {
		t.Errorf("Resolve() replace = %+v, want remote project", outcome.ReplaceProject)
	}
	if projects.writes != 0 {
		t.Errorf("Resolve() performed %d writes, take-remote must not write", projects.writes)
	}
}

func TestResolveTakeRemotePageForksOnLargeDifference(t *testing.T) {
	resolver := NewResolver(newMemProjectStore(), newMemPageStore(), fixedClock())

	local := domain.NewMarkdownPage("Notes", "p1", "alice")
	local.ID = "page-1"
	local.Content = "completely local text"
	remote := domain.ClonePage(local)
	remote.Content = "completely remote text"
	remote.Version = 3

	outcome, err := resolver.Resolve(context.Background(), "alice",
		domain.NewPageConflict(local, remote), domain.ResolutionTakeRemote)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if len(outcome.AddPages) != 1 {
		t.Fatalf("Resolve() added %d pages, want 1 fork", len(outcome.AddPages))
	}
	fork := outcome.AddPages[0]
	if fork.Persisted {
		t.Error("Resolve() take-remote fork should not be persisted")
	}
	if !strings.HasSuffix(fork.Page.Title, " (copy)") {
		t.Errorf("Resolve() fork title = %q, want (copy) suffix", fork.Page.Title)
	}
	if fork.Page.Version != 0 {
		t.Errorf("Resolve() fork version = %d, want 0", fork.Page.Version)
	}
	if fork.Page.ID == local.ID {
		t.Error("Resolve() fork kept the original id")
	}
	if fork.Page.Content != "completely remote text" {
		t.Errorf("Resolve() fork content = %q, want remote content", fork.Page.Content)
	}
}

func TestResolveTakeLocalPage(t *testing.T) {
	pages := newMemPageStore()
	resolver := NewResolver(newMemProjectStore(), pages, fixedClock())

	base := domain.NewRankingPage("Ranking", "p1", "alice")
	base.ID = "page-1"
	base.Items = []domain.RankingItem{{ID: "a"}, {ID: "b"}}

	remote := domain.ClonePage(base)
	remote.Items = []domain.RankingItem{{ID: "a"}, {ID: "c"}}
	remote.Version = 5
	pages.pages[remote.ID] = remote

	local := domain.ClonePage(base)
	local.Version = 1

	outcome, err := resolver.Resolve(context.Background(), "alice",
		domain.NewPageConflict(local, remote), domain.ResolutionTakeLocal)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if outcome.ReplacePage == nil {
		t.Fatal("Resolve() take-local returned no replacement page")
	}
	if outcome.ReplacePage.Version != 6 {
		t.Errorf("Resolve() version = %d, want 6 (remote 5 + 1)", outcome.ReplacePage.Version)
	}
	if stored := pages.pages["page-1"]; len(stored.Items) != 2 || stored.Items[1].ID != "b" {
		t.Errorf("Resolve() stored items = %v, want local items", stored.Items)
	}
}

func TestResolveTakeLocalRemoteGone(t *testing.T) {
	resolver := NewResolver(newMemProjectStore(), newMemPageStore(), fixedClock())

	local := domain.NewMarkdownPage("Notes", "p1", "alice")
	remote := domain.ClonePage(local)
	remote.Version = 2

	_, err := resolver.Resolve(context.Background(), "alice",
		domain.NewPageConflict(local, remote), domain.ResolutionTakeLocal)
	if !errors.Is(err, ErrRemoteGone) {
		t.Errorf("Resolve() error = %v, want ErrRemoteGone", err)
	}
}

func TestResolveTakeLocalForksOnLargeDifference(t *testing.T) {
	pages := newMemPageStore()
	resolver := NewResolver(newMemProjectStore(), pages, fixedClock())

	local := domain.NewMarkdownPage("Notes", "p1", "alice")
	local.ID = "page-1"
	local.Content = "mine"
	local.Version = 1

	remote := domain.ClonePage(local)
	remote.Content = "theirs"
	remote.Version = 4
	pages.pages[remote.ID] = remote

	outcome, err := resolver.Resolve(context.Background(), "alice",
		domain.NewPageConflict(local, remote), domain.ResolutionTakeLocal)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if len(outcome.AddPages) != 1 || !outcome.AddPages[0].Persisted {
		t.Fatalf("Resolve() added = %+v, want one persisted fork", outcome.AddPages)
	}
	if outcome.AddPages[0].Page.Version != 1 {
		t.Errorf("Resolve() fork version = %d, want 1 (fresh record)", outcome.AddPages[0].Page.Version)
	}

	// remote document untouched
	if stored := pages.pages["page-1"]; stored.Version != 4 || stored.Content != "theirs" {
		t.Errorf("Resolve() original record changed: %+v", stored)
	}
}

func TestResolveMergeRankingPage(t *testing.T) {
	pages := newMemPageStore()
	resolver := NewResolver(newMemProjectStore(), pages, fixedClock())

	base := domain.NewRankingPage("Ranking", "p1", "alice")
	base.ID = "page-1"
	base.Items = []domain.RankingItem{{ID: "a"}, {ID: "b"}}

	remote := domain.ClonePage(base)
	remote.Items = []domain.RankingItem{{ID: "b"}, {ID: "c"}}
	remote.Version = 3
	pages.pages[remote.ID] = remote

	local := domain.ClonePage(base)
	local.Version = 1

	outcome, err := resolver.Resolve(context.Background(), "alice",
		domain.NewPageConflict(local, remote), domain.ResolutionMerge)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if outcome.ReplacePage == nil {
		t.Fatal("Resolve() merge returned no replacement page")
	}
	if outcome.ReplacePage.Version != 4 {
		t.Errorf("Resolve() merged version = %d, want 4", outcome.ReplacePage.Version)
	}

	ids := make([]string, len(outcome.ReplacePage.Items))
	for i, it := range outcome.ReplacePage.Items {
		ids[i] = it.ID
	}
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Errorf("Resolve() merged items = %v, want [a b c]", ids)
	}
}

func TestResolveMergeMarkdownKeepsBoth(t *testing.T) {
	pages := newMemPageStore()
	resolver := NewResolver(newMemProjectStore(), pages, fixedClock())

	local := domain.NewMarkdownPage("Notes", "p1", "alice")
	local.ID = "page-1"
	local.Content = "mine"
	local.Version = 1

	remote := domain.ClonePage(local)
	remote.Content = "theirs"
	remote.Version = 3

	outcome, err := resolver.Resolve(context.Background(), "alice",
		domain.NewPageConflict(local, remote), domain.ResolutionMerge)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if len(outcome.AddPages) != 2 {
		t.Fatalf("Resolve() added %d pages, want both sides", len(outcome.AddPages))
	}

	mine, other := outcome.AddPages[0], outcome.AddPages[1]
	if !strings.HasSuffix(mine.Page.Title, " (merge: mine)") {
		t.Errorf("Resolve() first fork title = %q", mine.Page.Title)
	}
	if !strings.HasSuffix(other.Page.Title, " (merge: other)") {
		t.Errorf("Resolve() second fork title = %q", other.Page.Title)
	}
	if mine.Page.Content != "mine" || other.Page.Content != "theirs" {
		t.Error("Resolve() fork contents do not preserve both sides")
	}
	for _, fork := range outcome.AddPages {
		if !fork.Persisted {
			t.Errorf("Resolve() fork %q not persisted", fork.Page.ID)
		}
	}
	if pages.writes != 2 {
		t.Errorf("Resolve() wrote %d pages, want 2", pages.writes)
	}
}
