package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"whiteboard-sync-server/internal/conflict"
	"whiteboard-sync-server/internal/domain"
	"whiteboard-sync-server/internal/localcache"
	"whiteboard-sync-server/internal/logger"
	"whiteboard-sync-server/internal/store"

	"golang.org/x/sync/errgroup"
)

type State string

const (
	StateIdle       State = "idle"
	StateDetecting  State = "detecting"
	StateWriting    State = "writing"
	StateConflicted State = "conflicted"
)

// Notifier receives commit and conflict events so other devices of the same
// owner can be told about them. Implementations must not block.
type Notifier interface {
	EntityCommitted(ownerID string, kind domain.EntityKind, id string, version int64, updatedAt time.Time)
	EntityDeleted(ownerID string, kind domain.EntityKind, id string)
	ConflictDetected(ownerID string, c *domain.Conflict)
}

// Deps are the injected collaborators of a Coordinator.
type Deps struct {
	Projects   store.ProjectStore
	Pages      store.PageStore
	Resolver   *conflict.Resolver
	Cache      *localcache.Cache
	Notifier   Notifier
	FlushDelay time.Duration
}

// Coordinator drives the save cycle for one owner's document set:
// Idle → Detecting → Writing → {Committed | Conflicted} → Idle.
// An empty ownerID means guest mode: mutations flow to the local fallback
// cache on a debounce timer and the remote store is never touched.
type Coordinator struct {
	mu        sync.Mutex
	state     State
	resolving bool

	ownerID  string
	cacheKey string

	set              domain.DocumentSet
	baselineProjects []domain.Project
	baselinePages    []domain.Page
	pending          *domain.Conflict

	projects store.ProjectStore
	pages    store.PageStore
	resolver *conflict.Resolver
	cache    *localcache.Cache
	flusher  *localcache.Debouncer
	notifier Notifier
}

func NewCoordinator(ownerID, cacheKey string, set domain.DocumentSet, baselineProjects []domain.Project, baselinePages []domain.Page, deps Deps) *Coordinator {
	return &Coordinator{
		state:            StateIdle,
		ownerID:          ownerID,
		cacheKey:         cacheKey,
		set:              set,
		baselineProjects: cloneProjects(baselineProjects),
		baselinePages:    clonePages(baselinePages),
		projects:         deps.Projects,
		pages:            deps.Pages,
		resolver:         deps.Resolver,
		cache:            deps.Cache,
		flusher:          localcache.NewDebouncer(deps.FlushDelay),
		notifier:         deps.Notifier,
	}
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Documents returns a copy of the current document set.
func (c *Coordinator) Documents() domain.DocumentSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// PendingConflict returns the {local, remote} pair awaiting resolution, or
// nil when there is none.
func (c *Coordinator) PendingConflict() *domain.Conflict {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// RequestSave runs one save cycle. A second request while a cycle is writing
// is rejected, not queued; while a conflict is pending every save is rejected
// until the conflict is resolved. In guest mode the document set is flushed
// to the local cache immediately.
func (c *Coordinator) RequestSave(ctx context.Context) error {
	c.mu.Lock()

	switch c.state {
	case StateConflicted:
		c.mu.Unlock()
		return ErrResolutionPending
	case StateWriting, StateDetecting:
		c.mu.Unlock()
		return ErrSaveInProgress
	}

	if c.ownerID == "" {
		c.mu.Unlock()
		c.flusher.Cancel()
		return c.flushLocal()
	}

	c.state = StateDetecting
	changedProjects := Changed(c.set.Projects, c.baselineProjects)
	changedPages := Changed(c.set.Pages, c.baselinePages)
	if len(changedProjects) == 0 && len(changedPages) == 0 {
		c.state = StateIdle
		c.mu.Unlock()
		return nil
	}

	c.state = StateWriting
	owner := c.ownerID
	c.mu.Unlock()

	projectResults := make(map[string]store.WriteResult)
	pageResults := make(map[string]store.WriteResult)
	var hitMu sync.Mutex
	var firstHit *conflictHit

	// Each write is an independent compare-and-swap keyed by its entity id,
	// so they run concurrently. The first mismatch cancels the group, which
	// stops submitting writes that have not started yet.
	g, gctx := errgroup.WithContext(ctx)
	for i, project := range changedProjects {
		order, project := i, project
		g.Go(func() error {
			result, err := c.projects.TransactionalWrite(gctx, project, owner)
			if err != nil {
				if errors.Is(err, store.ErrVersionMismatch) {
					hitMu.Lock()
					if firstHit == nil || order < firstHit.order {
						firstHit = &conflictHit{order: order, kind: domain.KindProject, project: project}
					}
					hitMu.Unlock()
				}
				return err
			}
			hitMu.Lock()
			projectResults[project.ID] = result
			hitMu.Unlock()
			return nil
		})
	}
	for i, page := range changedPages {
		order, page := len(changedProjects)+i, page
		g.Go(func() error {
			result, err := c.pages.TransactionalWrite(gctx, page, owner)
			if err != nil {
				if errors.Is(err, store.ErrVersionMismatch) {
					hitMu.Lock()
					if firstHit == nil || order < firstHit.order {
						firstHit = &conflictHit{order: order, kind: domain.KindPage, page: page}
					}
					hitMu.Unlock()
				}
				return err
			}
			hitMu.Lock()
			pageResults[page.ID] = result
			hitMu.Unlock()
			return nil
		})
	}
	err := g.Wait()

	if err != nil && errors.Is(err, store.ErrVersionMismatch) && firstHit != nil {
		pending, fetchErr := c.fetchConflict(ctx, firstHit)

		c.mu.Lock()
		c.applyWriteResults(projectResults, pageResults)
		if fetchErr != nil {
			// conflict detected but the authoritative copy is unreachable;
			// the save failed and may be retried
			c.state = StateIdle
			c.mu.Unlock()
			return fmt.Errorf("conflict detected for %s %s: %w", firstHit.kind, firstHit.entityID(), fetchErr)
		}
		c.pending = pending
		c.state = StateConflicted
		c.mu.Unlock()

		if c.notifier != nil {
			c.notifier.ConflictDetected(owner, pending)
		}
		return &PendingConflictError{Conflict: pending}
	}

	c.mu.Lock()
	c.applyWriteResults(projectResults, pageResults)
	if err != nil {
		// transient store failure: baseline entries of unwritten entities are
		// untouched and the save is safe to retry
		c.state = StateIdle
		c.mu.Unlock()
		return fmt.Errorf("save failed: %w", err)
	}

	c.baselineProjects = cloneProjects(c.set.Projects)
	c.baselinePages = clonePages(c.set.Pages)
	c.state = StateIdle
	c.mu.Unlock()

	c.notifyCommitted(projectResults, pageResults)
	return nil
}

// ResolveConflict applies the chosen resolution to the pending conflict. A
// failed resolution keeps the pending pair so the caller can retry without
// re-deciding.
func (c *Coordinator) ResolveConflict(ctx context.Context, choice domain.Resolution) error {
	c.mu.Lock()
	if c.state != StateConflicted || c.pending == nil {
		c.mu.Unlock()
		return ErrNoPendingConflict
	}
	if c.resolving {
		c.mu.Unlock()
		return ErrSaveInProgress
	}
	c.resolving = true
	pending := c.pending
	owner := c.ownerID
	c.mu.Unlock()

	outcome, err := c.resolver.Resolve(ctx, owner, pending, choice)

	c.mu.Lock()
	c.resolving = false
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("resolution failed: %w", err)
	}

	if outcome.ReplaceProject != nil {
		c.set.Projects = replaceProject(c.set.Projects, *outcome.ReplaceProject)
		c.baselineProjects = replaceProject(c.baselineProjects, *outcome.ReplaceProject)
	}
	if outcome.ReplacePage != nil {
		c.set.Pages = replacePage(c.set.Pages, *outcome.ReplacePage)
		c.baselinePages = replacePage(c.baselinePages, domain.ClonePage(*outcome.ReplacePage))
	}
	for _, added := range outcome.AddPages {
		c.set.Pages = append(c.set.Pages, added.Page)
		// unpersisted forks enter the baseline too: they are uploaded once
		// the user edits them, not implicitly
		c.baselinePages = append(c.baselinePages, domain.ClonePage(added.Page))
	}

	c.pending = nil
	c.state = StateIdle
	c.mu.Unlock()

	if c.notifier != nil {
		if outcome.ReplaceProject != nil {
			p := outcome.ReplaceProject
			c.notifier.EntityCommitted(owner, domain.KindProject, p.ID, p.Version, p.UpdatedAt)
		}
		if outcome.ReplacePage != nil {
			p := outcome.ReplacePage
			c.notifier.EntityCommitted(owner, domain.KindPage, p.ID, p.Version, p.UpdatedAt)
		}
		for _, added := range outcome.AddPages {
			if added.Persisted {
				c.notifier.EntityCommitted(owner, domain.KindPage, added.Page.ID, added.Page.Version, added.Page.UpdatedAt)
			}
		}
	}
	return nil
}

// --- document mutations (the narrow command interface for UI layers) ---

func (c *Coordinator) CreateProject(name string) (domain.Project, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.mutableLocked(); err != nil {
		return domain.Project{}, err
	}

	project := domain.NewProject(name, c.ownerID)
	c.set.Projects = append(c.set.Projects, project)
	c.set.ActiveProjectID = project.ID
	c.set.ActivePageID = ""
	c.scheduleLocalFlushLocked()
	return project, nil
}

func (c *Coordinator) PutProject(project domain.Project) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.mutableLocked(); err != nil {
		return err
	}

	c.set.Projects = upsertProject(c.set.Projects, project)
	c.scheduleLocalFlushLocked()
	return nil
}

// DeleteProject removes the project and its pages locally and issues
// best-effort, unversioned remote deletes.
func (c *Coordinator) DeleteProject(ctx context.Context, id string) error {
	c.mu.Lock()
	if err := c.mutableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}

	c.set.Projects = removeProject(c.set.Projects, id)
	c.baselineProjects = removeProject(c.baselineProjects, id)

	var pageIDs []string
	kept := c.set.Pages[:0:0]
	for _, page := range c.set.Pages {
		if page.ProjectID == id {
			pageIDs = append(pageIDs, page.ID)
			continue
		}
		kept = append(kept, page)
	}
	c.set.Pages = kept
	for _, pageID := range pageIDs {
		c.baselinePages = removePage(c.baselinePages, pageID)
	}

	if c.set.ActiveProjectID == id {
		c.set.ActiveProjectID = ""
		c.set.ActivePageID = ""
		if len(c.set.Projects) > 0 {
			c.set.ActiveProjectID = c.set.Projects[0].ID
		}
	}
	owner := c.ownerID
	c.scheduleLocalFlushLocked()
	c.mu.Unlock()

	if owner != "" {
		go c.deleteRemote(domain.KindProject, id)
		for _, pageID := range pageIDs {
			go c.deleteRemote(domain.KindPage, pageID)
		}
	}
	return nil
}

func (c *Coordinator) CreatePage(req domain.CreatePageRequest) (domain.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.mutableLocked(); err != nil {
		return domain.Page{}, err
	}

	var page domain.Page
	switch req.Variant {
	case domain.VariantMarkdown:
		page = domain.NewMarkdownPage(req.Title, req.ProjectID, c.ownerID)
	case domain.VariantDiagram:
		page = domain.NewDiagramPage(req.Title, req.ProjectID, c.ownerID)
	case domain.VariantRanking:
		page = domain.NewRankingPage(req.Title, req.ProjectID, c.ownerID)
	case domain.VariantQA:
		page = domain.NewQAPage(req.Title, req.ProjectID, c.ownerID)
	default:
		return domain.Page{}, fmt.Errorf("unknown page variant: %s", req.Variant)
	}

	c.set.Pages = append(c.set.Pages, page)
	c.set.ActivePageID = page.ID
	c.scheduleLocalFlushLocked()
	return page, nil
}

func (c *Coordinator) PutPage(page domain.Page) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.mutableLocked(); err != nil {
		return err
	}

	c.set.Pages = upsertPage(c.set.Pages, page)
	c.scheduleLocalFlushLocked()
	return nil
}

func (c *Coordinator) DeletePage(ctx context.Context, id string) error {
	c.mu.Lock()
	if err := c.mutableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}

	c.set.Pages = removePage(c.set.Pages, id)
	c.baselinePages = removePage(c.baselinePages, id)
	if c.set.ActivePageID == id {
		c.set.ActivePageID = ""
	}
	owner := c.ownerID
	c.scheduleLocalFlushLocked()
	c.mu.Unlock()

	if owner != "" {
		go c.deleteRemote(domain.KindPage, id)
	}
	return nil
}

func (c *Coordinator) SetActive(projectID, pageID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.mutableLocked(); err != nil {
		return err
	}

	c.set.ActiveProjectID = projectID
	c.set.ActivePageID = pageID
	c.scheduleLocalFlushLocked()
	return nil
}

// --- internals ---

type conflictHit struct {
	order   int
	kind    domain.EntityKind
	project domain.Project
	page    domain.Page
}

func (h *conflictHit) entityID() string {
	if h.kind == domain.KindProject {
		return h.project.ID
	}
	return h.page.ID
}

// mutableLocked rejects mutations while a save cycle is diffing or writing,
// so the set being diffed cannot change mid-flight.
func (c *Coordinator) mutableLocked() error {
	if c.state == StateWriting || c.state == StateDetecting {
		return ErrSaveInProgress
	}
	return nil
}

func (c *Coordinator) snapshotLocked() domain.DocumentSet {
	return domain.DocumentSet{
		Projects:        cloneProjects(c.set.Projects),
		Pages:           clonePages(c.set.Pages),
		ActiveProjectID: c.set.ActiveProjectID,
		ActivePageID:    c.set.ActivePageID,
	}
}

// scheduleLocalFlushLocked arms the debounced guest-cache flush. Remote-backed
// coordinators persist on explicit save only.
func (c *Coordinator) scheduleLocalFlushLocked() {
	if c.ownerID != "" || c.cache == nil {
		return
	}
	c.flusher.Schedule(func() {
		if err := c.flushLocal(); err != nil {
			logger.Error("local cache flush failed", err)
		}
	})
}

func (c *Coordinator) flushLocal() error {
	c.mu.Lock()
	set := c.snapshotLocked()
	c.mu.Unlock()

	if err := c.cache.Save(c.cacheKey, set); err != nil {
		return err
	}

	c.mu.Lock()
	c.baselineProjects = cloneProjects(set.Projects)
	c.baselinePages = clonePages(set.Pages)
	c.mu.Unlock()
	return nil
}

func (c *Coordinator) fetchConflict(ctx context.Context, hit *conflictHit) (*domain.Conflict, error) {
	if hit.kind == domain.KindProject {
		remote, err := c.projects.FetchByID(ctx, hit.project.ID)
		if err != nil {
			return nil, err
		}
		return domain.NewProjectConflict(hit.project, remote), nil
	}

	remote, err := c.pages.FetchByID(ctx, hit.page.ID)
	if err != nil {
		return nil, err
	}
	return domain.NewPageConflict(hit.page, remote), nil
}

// applyWriteResults stamps store-confirmed versions and timestamps onto the
// live set and the matching baseline entries. Only confirmed writes advance
// the baseline.
func (c *Coordinator) applyWriteResults(projectResults, pageResults map[string]store.WriteResult) {
	for i, project := range c.set.Projects {
		if result, ok := projectResults[project.ID]; ok {
			c.set.Projects[i].Owner = c.ownerID
			c.set.Projects[i].Version = result.NewVersion
			c.set.Projects[i].UpdatedAt = result.WrittenAt
			c.baselineProjects = replaceProject(c.baselineProjects, c.set.Projects[i])
		}
	}
	for i, page := range c.set.Pages {
		if result, ok := pageResults[page.ID]; ok {
			c.set.Pages[i].Owner = c.ownerID
			c.set.Pages[i].Version = result.NewVersion
			c.set.Pages[i].UpdatedAt = result.WrittenAt
			c.baselinePages = replacePage(c.baselinePages, domain.ClonePage(c.set.Pages[i]))
		}
	}
}

func (c *Coordinator) notifyCommitted(projectResults, pageResults map[string]store.WriteResult) {
	if c.notifier == nil {
		return
	}
	for id, result := range projectResults {
		c.notifier.EntityCommitted(c.ownerID, domain.KindProject, id, result.NewVersion, result.WrittenAt)
	}
	for id, result := range pageResults {
		c.notifier.EntityCommitted(c.ownerID, domain.KindPage, id, result.NewVersion, result.WrittenAt)
	}
}

func (c *Coordinator) deleteRemote(kind domain.EntityKind, id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	if kind == domain.KindProject {
		err = c.projects.DeleteByID(ctx, id)
	} else {
		err = c.pages.DeleteByID(ctx, id)
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		logger.Error("remote delete failed", err,
			map[string]interface{}{"kind": string(kind), "id": id})
		return
	}
	if c.notifier != nil {
		c.notifier.EntityDeleted(c.ownerID, kind, id)
	}
}

func cloneProjects(in []domain.Project) []domain.Project {
	out := make([]domain.Project, len(in))
	copy(out, in)
	return out
}

func clonePages(in []domain.Page) []domain.Page {
	out := make([]domain.Page, len(in))
	for i, page := range in {
		out[i] = domain.ClonePage(page)
	}
	return out
}

func upsertProject(list []domain.Project, project domain.Project) []domain.Project {
	for i, p := range list {
		if p.ID == project.ID {
			list[i] = project
			return list
		}
	}
	return append(list, project)
}

func replaceProject(list []domain.Project, project domain.Project) []domain.Project {
	return upsertProject(list, project)
}

func removeProject(list []domain.Project, id string) []domain.Project {
	out := list[:0:0]
	for _, p := range list {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

func upsertPage(list []domain.Page, page domain.Page) []domain.Page {
	for i, p := range list {
		if p.ID == page.ID {
			list[i] = page
			return list
		}
	}
	return append(list, page)
}

func replacePage(list []domain.Page, page domain.Page) []domain.Page {
	return upsertPage(list, page)
}

func removePage(list []domain.Page, id string) []domain.Page {
	out := list[:0:0]
	for _, p := range list {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}
