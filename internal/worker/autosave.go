package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fleex/storefront-api/internal/model"
	"github.com/fleex/storefront-api/internal/repository"
)

// CatalogSnapshot is the owner-editable state the autosaver persists in one
// bulk write.
type CatalogSnapshot struct {
	Links      []model.LinkItem `json:"links"`
	Products   []model.Product  `json:"products"`
	Categories []model.Category `json:"categories"`
	Coupons    []model.Coupon   `json:"coupons"`
}

// Autosaver debounces dashboard edits: each Enqueue replaces the tenant's
// pending snapshot and restarts its timer; the bulk save runs only after the
// edits go quiet for the debounce window.
type Autosaver struct {
	catalog  repository.CatalogStore
	debounce time.Duration
	log      *slog.Logger

	mu      sync.Mutex
	pending map[string]*pendingSave
	wg      sync.WaitGroup
}

type pendingSave struct {
	timer    *time.Timer
	snapshot CatalogSnapshot
}

func NewAutosaver(catalog repository.CatalogStore, debounce time.Duration, log *slog.Logger) *Autosaver {
	return &Autosaver{
		catalog:  catalog,
		debounce: debounce,
		log:      log,
		pending:  make(map[string]*pendingSave),
	}
}

// Enqueue schedules the snapshot for a debounced save.
func (a *Autosaver) Enqueue(tenantID string, snapshot CatalogSnapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if p, ok := a.pending[tenantID]; ok {
		p.snapshot = snapshot
		p.timer.Reset(a.debounce)
		return
	}
	p := &pendingSave{snapshot: snapshot}
	a.wg.Add(1)
	p.timer = time.AfterFunc(a.debounce, func() { a.fire(tenantID) })
	a.pending[tenantID] = p
}

// Flush saves every pending snapshot immediately. Used on shutdown.
func (a *Autosaver) Flush() {
	a.mu.Lock()
	tenants := make([]string, 0, len(a.pending))
	for id, p := range a.pending {
		if p.timer.Stop() {
			tenants = append(tenants, id)
		}
	}
	a.mu.Unlock()

	for _, id := range tenants {
		a.fire(id)
	}
	a.wg.Wait()
}

func (a *Autosaver) fire(tenantID string) {
	a.mu.Lock()
	p, ok := a.pending[tenantID]
	if ok {
		delete(a.pending, tenantID)
	}
	a.mu.Unlock()
	if !ok {
		return
	}
	defer a.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snap := p.snapshot
	if err := a.catalog.SetLinks(ctx, tenantID, snap.Links); err != nil {
		a.log.Warn("autosave links failed", "tenant", tenantID, "error", err)
	}
	if err := a.catalog.SetProducts(ctx, tenantID, snap.Products); err != nil {
		a.log.Warn("autosave products failed", "tenant", tenantID, "error", err)
	}
	if err := a.catalog.SetCategories(ctx, tenantID, snap.Categories); err != nil {
		a.log.Warn("autosave categories failed", "tenant", tenantID, "error", err)
	}
	if err := a.catalog.SetCoupons(ctx, tenantID, snap.Coupons); err != nil {
		a.log.Warn("autosave coupons failed", "tenant", tenantID, "error", err)
	}
	a.log.Info("catalog autosaved", "tenant", tenantID,
		"products", len(snap.Products), "links", len(snap.Links))
}
