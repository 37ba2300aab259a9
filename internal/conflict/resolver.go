package conflict

import (
	"context"
	"errors"
	"fmt"
	"time"

	"whiteboard-sync-server/internal/domain"
	"whiteboard-sync-server/internal/store"
)

// ErrRemoteGone means the remote copy disappeared between conflict detection
// and resolution; the conflict stays unresolved and the caller may retry.
var ErrRemoteGone = errors.New("conflict unresolved: remote record not found")

// AddedPage is a page created by a resolution (a fork or a merge artifact).
// Persisted forks already carry the version the store assigned; unpersisted
// ones enter the baseline too, so they are only uploaded once edited.
type AddedPage struct {
	Page      domain.Page
	Persisted bool
}

// Outcome tells the coordinator how to update its live set and baseline
// after a resolution: entities to replace in place, and pages to append.
type Outcome struct {
	ReplaceProject *domain.Project
	ReplacePage    *domain.Page
	AddPages       []AddedPage
}

// Resolver applies a resolution choice to a pending conflict, performing
// whatever remote writes the choice requires.
type Resolver struct {
	projects store.ProjectStore
	pages    store.PageStore
	now      func() time.Time
}

func NewResolver(projects store.ProjectStore, pages store.PageStore, now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{
		projects: projects,
		pages:    pages,
		now:      now,
	}
}

func (r *Resolver) Resolve(ctx context.Context, ownerID string, c *domain.Conflict, choice domain.Resolution) (*Outcome, error) {
	switch choice {
	case domain.ResolutionTakeRemote:
		return r.takeRemote(c)
	case domain.ResolutionTakeLocal:
		return r.takeLocal(ctx, ownerID, c)
	case domain.ResolutionMerge:
		return r.merge(ctx, ownerID, c)
	default:
		return nil, fmt.Errorf("unknown resolution choice: %s", choice)
	}
}

// takeRemote adopts the already-authoritative remote copy; no remote write
// occurs. A page whose local copy diverged too far is not overwritten:
// the remote copy is inserted as an additional page instead.
func (r *Resolver) takeRemote(c *domain.Conflict) (*Outcome, error) {
	if c.Kind == domain.KindProject {
		return &Outcome{ReplaceProject: c.RemoteProject}, nil
	}

	if LargeDifference(c.LocalPage, c.RemotePage) {
		fork := r.forkPage(*c.RemotePage, "copy", " (copy)")
		return &Outcome{AddPages: []AddedPage{{Page: fork}}}, nil
	}

	return &Outcome{ReplacePage: c.RemotePage}, nil
}

// takeLocal re-issues the local entity stamped with the remote's current
// version so the compare-and-swap succeeds. A page that diverged too far is
// forked under a new id instead, leaving the remote document untouched.
func (r *Resolver) takeLocal(ctx context.Context, ownerID string, c *domain.Conflict) (*Outcome, error) {
	if c.Kind == domain.KindProject {
		remote, err := r.projects.FetchByID(ctx, c.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrRemoteGone
			}
			return nil, err
		}

		next := *c.LocalProject
		next.Version = remote.Version
		next.UpdatedAt = r.now()

		result, err := r.projects.TransactionalWrite(ctx, next, ownerID)
		if err != nil {
			return nil, err
		}
		next.Owner = ownerID
		next.Version = result.NewVersion
		next.UpdatedAt = result.WrittenAt
		return &Outcome{ReplaceProject: &next}, nil
	}

	remote, err := r.pages.FetchByID(ctx, c.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRemoteGone
		}
		return nil, err
	}

	if LargeDifference(c.LocalPage, &remote) {
		fork := r.forkPage(*c.LocalPage, "copy", " (copy)")
		result, err := r.pages.TransactionalWrite(ctx, fork, ownerID)
		if err != nil {
			return nil, err
		}
		fork.Owner = ownerID
		fork.Version = result.NewVersion
		fork.UpdatedAt = result.WrittenAt
		return &Outcome{AddPages: []AddedPage{{Page: fork, Persisted: true}}}, nil
	}

	next := domain.ClonePage(*c.LocalPage)
	next.Version = remote.Version
	next.UpdatedAt = r.now()

	result, err := r.pages.TransactionalWrite(ctx, next, ownerID)
	if err != nil {
		return nil, err
	}
	next.Owner = ownerID
	next.Version = result.NewVersion
	next.UpdatedAt = result.WrittenAt
	return &Outcome{ReplacePage: &next}, nil
}

// merge combines both sides into one entity stamped with the remote's version
// (so the next compare-and-swap wins) and persists it. Markdown and qa pages
// are not auto-merged: both sides are kept as two new pages and the original
// document is left where the remote put it.
func (r *Resolver) merge(ctx context.Context, ownerID string, c *domain.Conflict) (*Outcome, error) {
	if c.Kind == domain.KindProject {
		merged := MergeProjects(*c.LocalProject, *c.RemoteProject)
		merged.Version = c.RemoteProject.Version
		merged.UpdatedAt = r.now()

		result, err := r.projects.TransactionalWrite(ctx, merged, ownerID)
		if err != nil {
			return nil, err
		}
		merged.Owner = ownerID
		merged.Version = result.NewVersion
		merged.UpdatedAt = result.WrittenAt
		return &Outcome{ReplaceProject: &merged}, nil
	}

	local, remote := c.LocalPage, c.RemotePage

	switch local.Variant {
	case domain.VariantMarkdown, domain.VariantQA:
		return r.keepBoth(ctx, ownerID, *local, *remote)
	case domain.VariantRanking, domain.VariantDiagram:
		var merged domain.Page
		if local.Variant == domain.VariantRanking {
			merged = MergeRankingPages(*local, *remote)
		} else {
			merged = MergeDiagramPages(*local, *remote)
		}
		merged.Version = remote.Version
		merged.UpdatedAt = r.now()

		result, err := r.pages.TransactionalWrite(ctx, merged, ownerID)
		if err != nil {
			return nil, err
		}
		merged.Owner = ownerID
		merged.Version = result.NewVersion
		merged.UpdatedAt = result.WrittenAt
		return &Outcome{ReplacePage: &merged}, nil
	default:
		return nil, fmt.Errorf("cannot merge page variant %s", local.Variant)
	}
}

// keepBoth persists the local and remote sides as two new pages. Free-text
// and discussion content cannot be safely auto-merged.
func (r *Resolver) keepBoth(ctx context.Context, ownerID string, local, remote domain.Page) (*Outcome, error) {
	mine := r.forkPage(local, "merge_mine", " (merge: mine)")
	other := r.forkPage(remote, "merge_other", " (merge: other)")

	added := make([]AddedPage, 0, 2)
	for _, fork := range []domain.Page{mine, other} {
		result, err := r.pages.TransactionalWrite(ctx, fork, ownerID)
		if err != nil {
			return nil, err
		}
		fork.Owner = ownerID
		fork.Version = result.NewVersion
		fork.UpdatedAt = result.WrittenAt
		added = append(added, AddedPage{Page: fork, Persisted: true})
	}

	return &Outcome{AddPages: added}, nil
}

// forkPage clones a page under a new marked id with version reset to 0, so
// its first upload compare-and-swaps against an absent record.
func (r *Resolver) forkPage(src domain.Page, marker, titleSuffix string) domain.Page {
	fork := domain.ClonePage(src)
	fork.ID = fmt.Sprintf("%s_%s_%d", src.ID, marker, r.now().UnixMilli())
	fork.Title = src.Title + titleSuffix
	fork.Version = 0
	fork.UpdatedAt = r.now()
	return fork
}
