package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/cipherstudio/studio/internal/entity"
	"github.com/cipherstudio/studio/internal/jsonldb"
)

var (
	// ErrProjectNotFound is returned when a project exists in neither the
	// remote store nor the local cache.
	ErrProjectNotFound = errors.New("project not found")
	// ErrVersionConflict is returned when the remote store rejects a flush
	// because the project was modified concurrently elsewhere.
	ErrVersionConflict = errors.New("project was modified concurrently")
)

// Remote is the authoritative project store reached over the network. A nil
// Remote means the editor runs offline against the local cache only.
type Remote interface {
	// Get fetches a project. Returns ErrProjectNotFound when it does not
	// exist remotely.
	Get(ctx context.Context, id jsonldb.ID) (*entity.Project, error)
	// Put persists a full snapshot, creating the project when it does not
	// exist yet. The snapshot's Version is the optimistic-concurrency
	// precondition; Put returns the server's copy with the bumped version,
	// or ErrVersionConflict.
	Put(ctx context.Context, p *entity.Project) (*entity.Project, error)
	// Delete removes a project remotely. Missing projects are not an error.
	Delete(ctx context.Context, id jsonldb.ID) error
}

// Summary is a project listing entry without file contents.
type Summary struct {
	ID          jsonldb.ID             `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
	IsPublic    bool                   `json:"isPublic"`
	Settings    entity.ProjectSettings `json:"settings"`
	FileCount   int                    `json:"fileCount"`
	Created     time.Time              `json:"created"`
	Modified    time.Time              `json:"modified"`
}

// Gateway persists project snapshots. Writes go to the local JSONL cache
// first; a cache failure aborts the flush. The remote write follows and is
// allowed to fail: the snapshot is safe on disk, the project is marked
// pending and the next flush cycle retries the upload even when the editor
// made no further edits.
type Gateway struct {
	cache  *jsonldb.Table[*entity.Project]
	remote Remote
	logger *slog.Logger

	mu      sync.Mutex
	pending map[jsonldb.ID]struct{}
}

// NewGateway opens (or creates) the local cache at path. remote may be nil
// for offline operation.
func NewGateway(path string, remote Remote, logger *slog.Logger) (*Gateway, error) {
	cache, err := jsonldb.NewTable[*entity.Project](path)
	if err != nil {
		return nil, fmt.Errorf("open project cache: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		cache:   cache,
		remote:  remote,
		logger:  logger,
		pending: map[jsonldb.ID]struct{}{},
	}, nil
}

// Flush persists the snapshot and returns the version the caller should
// carry forward. A local cache failure is fatal and returned as-is. A remote
// failure other than a version conflict is swallowed after marking the
// project pending, so the scheduler keeps retrying.
func (g *Gateway) Flush(ctx context.Context, snap *entity.Project) (int64, error) {
	if err := g.cache.Upsert(snap.Clone()); err != nil {
		return snap.Version, fmt.Errorf("write project cache: %w", err)
	}
	if g.remote == nil {
		// Offline: there is no remote to owe an upload to, so the flush is
		// complete once the cache write lands.
		return snap.Version, nil
	}
	server, err := g.remote.Put(ctx, snap)
	if err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return snap.Version, err
		}
		g.markPending(snap.ID)
		g.logger.Warn("remote sync failed, will retry", "project", snap.ID, "err", err)
		return snap.Version, nil
	}
	g.clearPending(snap.ID)
	// Refresh the cached copy so it carries the server-assigned version.
	if err := g.cache.Upsert(server.Clone()); err != nil {
		return server.Version, fmt.Errorf("write project cache: %w", err)
	}
	return server.Version, nil
}

// Load fetches a project, preferring the remote copy when reachable and
// falling back to the local cache otherwise. When the cache holds pending
// state the remote has not seen yet, the cached copy wins; unsynced local
// edits are never silently discarded.
func (g *Gateway) Load(ctx context.Context, id jsonldb.ID) (*entity.Project, error) {
	if g.remote != nil && !g.isPending(id) {
		p, err := g.remote.Get(ctx, id)
		if err == nil {
			p.Files = entity.NormalizeTree(p.Files)
			if verr := p.Validate(); verr != nil {
				return nil, fmt.Errorf("remote project %s is invalid: %w", id, verr)
			}
			if cerr := g.cache.Upsert(p.Clone()); cerr != nil {
				return nil, fmt.Errorf("write project cache: %w", cerr)
			}
			return p, nil
		}
		if !errors.Is(err, ErrProjectNotFound) {
			g.logger.Warn("remote fetch failed, using cache", "project", id, "err", err)
		}
	}
	p := g.cache.Get(id)
	if p == nil {
		return nil, ErrProjectNotFound
	}
	return p, nil
}

// LoadSummaries lists the locally cached projects, most recently modified
// first, without file contents.
func (g *Gateway) LoadSummaries() []Summary {
	var out []Summary
	for p := range g.cache.All() {
		out = append(out, Summary{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Tags:        p.Tags,
			IsPublic:    p.IsPublic,
			Settings:    p.Settings,
			FileCount:   len(p.Files),
			Created:     p.Created,
			Modified:    p.Modified,
		})
	}
	slices.SortStableFunc(out, func(a, b Summary) int {
		return b.Modified.Compare(a.Modified)
	})
	return out
}

// Delete removes the project from the cache and, best effort, from the
// remote store. A missing cache entry is not an error.
func (g *Gateway) Delete(ctx context.Context, id jsonldb.ID) error {
	if err := g.cache.Delete(id); err != nil && !errors.Is(err, jsonldb.ErrRowNotFound) {
		return fmt.Errorf("delete from project cache: %w", err)
	}
	g.clearPending(id)
	if g.remote != nil {
		if err := g.remote.Delete(ctx, id); err != nil {
			g.logger.Warn("remote delete failed", "project", id, "err", err)
		}
	}
	return nil
}

// PendingSync reports whether the project has locally persisted state that
// has not reached the remote store yet.
func (g *Gateway) PendingSync(id jsonldb.ID) bool {
	return g.isPending(id)
}

func (g *Gateway) markPending(id jsonldb.ID) {
	g.mu.Lock()
	g.pending[id] = struct{}{}
	g.mu.Unlock()
}

func (g *Gateway) clearPending(id jsonldb.ID) {
	g.mu.Lock()
	delete(g.pending, id)
	g.mu.Unlock()
}

func (g *Gateway) isPending(id jsonldb.ID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.pending[id]
	return ok
}
