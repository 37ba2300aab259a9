package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"whiteboard-sync-server/internal/conflict"
	"whiteboard-sync-server/internal/domain"
	"whiteboard-sync-server/internal/localcache"
	"whiteboard-sync-server/internal/logger"
	"whiteboard-sync-server/internal/store"
)

const guestCacheKey = "guest"

// SyncService owns one Coordinator per authenticated owner plus a single
// guest coordinator backed by the local cache. Coordinators are created
// lazily on first use and primed from the remote store.
type SyncService struct {
	mu           sync.Mutex
	coordinators map[string]*Coordinator
	guest        *Coordinator

	projects   store.ProjectStore
	pages      store.PageStore
	resolver   *conflict.Resolver
	cache      *localcache.Cache
	notifier   Notifier
	flushDelay time.Duration
}

func NewSyncService(projects store.ProjectStore, pages store.PageStore, resolver *conflict.Resolver, cache *localcache.Cache, flushDelay time.Duration) *SyncService {
	return &SyncService{
		coordinators: make(map[string]*Coordinator),
		projects:     projects,
		pages:        pages,
		resolver:     resolver,
		cache:        cache,
		flushDelay:   flushDelay,
	}
}

// SetNotifier wires the broadcast sink. It must be called before the first
// coordinator is created; notifications are per-owner fan-out.
func (s *SyncService) SetNotifier(n Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = n
}

// ForOwner returns the coordinator for ownerID, loading the owner's documents
// from the remote store on first access. An empty ownerID yields the guest
// coordinator.
func (s *SyncService) ForOwner(ctx context.Context, ownerID string) (*Coordinator, error) {
	if ownerID == "" {
		return s.Guest(), nil
	}

	s.mu.Lock()
	if coord, ok := s.coordinators[ownerID]; ok {
		s.mu.Unlock()
		return coord, nil
	}
	s.mu.Unlock()

	set, baselineProjects, baselinePages, err := s.loadOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// another request may have loaded the same owner while we were fetching
	if coord, ok := s.coordinators[ownerID]; ok {
		return coord, nil
	}

	coord := NewCoordinator(ownerID, "", set, baselineProjects, baselinePages, s.deps())
	s.coordinators[ownerID] = coord
	logger.Info("sync coordinator created", map[string]interface{}{
		"owner":    ownerID,
		"projects": len(set.Projects),
		"pages":    len(set.Pages),
	})
	return coord, nil
}

// Guest returns the coordinator for unauthenticated use, primed from the
// local cache blob.
func (s *SyncService) Guest() *Coordinator {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.guest == nil {
		set := s.cache.Load(guestCacheKey)
		s.guest = NewCoordinator("", guestCacheKey, set, set.Projects, set.Pages, s.deps())
	}
	return s.guest
}

func (s *SyncService) deps() Deps {
	return Deps{
		Projects:   s.projects,
		Pages:      s.pages,
		Resolver:   s.resolver,
		Cache:      s.cache,
		Notifier:   s.notifier,
		FlushDelay: s.flushDelay,
	}
}

// loadOwner fetches the owner's remote documents. The fetched copies become
// the baseline; a brand-new owner is seeded with the default set at version
// zero, outside the baseline, so the first save uploads it.
func (s *SyncService) loadOwner(ctx context.Context, ownerID string) (domain.DocumentSet, []domain.Project, []domain.Page, error) {
	projects, err := s.projects.FetchByOwner(ctx, ownerID)
	if err != nil {
		return domain.DocumentSet{}, nil, nil, fmt.Errorf("failed to load projects: %w", err)
	}
	pages, err := s.pages.FetchByOwner(ctx, ownerID)
	if err != nil {
		return domain.DocumentSet{}, nil, nil, fmt.Errorf("failed to load pages: %w", err)
	}

	baselineProjects := cloneProjects(projects)
	baselinePages := clonePages(pages)

	set := domain.DocumentSet{Projects: projects, Pages: pages}
	if len(set.Projects) == 0 {
		seeded := domain.DefaultDocumentSet(ownerID)
		set.Projects = seeded.Projects
		set.ActiveProjectID = seeded.ActiveProjectID
	} else {
		set.ActiveProjectID = set.Projects[0].ID
		for _, page := range set.Pages {
			if page.ProjectID == set.ActiveProjectID {
				set.ActivePageID = page.ID
				break
			}
		}
	}

	return set, baselineProjects, baselinePages, nil
}
