package livesync

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/crmlive/internal/crm"
	"github.com/matheus3301/crmlive/internal/store"
	"go.uber.org/zap"
)

// ClientLister fetches the client directory from the backend.
type ClientLister interface {
	ListClients(ctx context.Context) ([]crm.Client, error)
}

// ClientCache persists the directory between runs. *store.DB implements it.
type ClientCache interface {
	ListClients() ([]crm.Client, error)
	UpsertClients(clients []crm.Client) error
	SetCheckpoint(key, value string) error
}

// Directory resolves client ids to display names for notifications.
type Directory struct {
	lister ClientLister
	cache  ClientCache
	logger *zap.Logger

	mu      sync.RWMutex
	clients map[crm.ID]crm.Client
}

// NewDirectory creates a directory. cache may be nil.
func NewDirectory(lister ClientLister, cache ClientCache, logger *zap.Logger) *Directory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{
		lister:  lister,
		cache:   cache,
		logger:  logger,
		clients: make(map[crm.ID]crm.Client),
	}
}

// Warm loads the persisted copy so names resolve before the first fetch.
func (d *Directory) Warm() error {
	if d.cache == nil {
		return nil
	}
	clients, err := d.cache.ListClients()
	if err != nil {
		return err
	}
	d.mu.Lock()
	for _, c := range clients {
		if _, ok := d.clients[c.ID]; !ok {
			d.clients[c.ID] = c
		}
	}
	d.mu.Unlock()
	d.logger.Debug("client directory warmed", zap.Int("clients", len(clients)))
	return nil
}

// Refresh rebuilds the directory from the backend and persists it.
func (d *Directory) Refresh(ctx context.Context) error {
	clients, err := d.lister.ListClients(ctx)
	if err != nil {
		return err
	}
	next := make(map[crm.ID]crm.Client, len(clients))
	for _, c := range clients {
		if c.ID != "" {
			next[c.ID] = c
		}
	}
	d.mu.Lock()
	d.clients = next
	d.mu.Unlock()

	if d.cache != nil {
		if err := d.cache.UpsertClients(clients); err != nil {
			d.logger.Warn("failed to persist client directory", zap.Error(err))
		} else {
			_ = d.cache.SetCheckpoint(store.KeyClientsRefreshedAt, time.Now().UTC().Format(time.RFC3339))
		}
	}
	d.logger.Info("client directory refreshed", zap.Int("clients", len(next)))
	return nil
}

// Lookup returns a cached client.
func (d *Directory) Lookup(id crm.ID) (crm.Client, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.clients[id]
	return c, ok
}

// Remember adds c unless the id is already known.
func (d *Directory) Remember(c crm.Client) {
	if c.ID == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.clients[c.ID]; !ok {
		d.clients[c.ID] = c
	}
}

// Clients returns every known client.
func (d *Directory) Clients() []crm.Client {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]crm.Client, 0, len(d.clients))
	for _, c := range d.clients {
		out = append(out, c)
	}
	return out
}

// Name resolves a display name: cache first, then one backend fetch whose
// matching client is remembered, then crm.UnknownClientName. A miss never
// replaces the rest of the directory.
func (d *Directory) Name(ctx context.Context, id crm.ID) string {
	if id == "" {
		return crm.UnknownClientName
	}
	if c, ok := d.Lookup(id); ok {
		return nameOrUnknown(c)
	}
	clients, err := d.lister.ListClients(ctx)
	if err != nil {
		d.logger.Warn("client lookup failed", zap.String("client_id", string(id)), zap.Error(err))
		return crm.UnknownClientName
	}
	i := slices.IndexFunc(clients, func(c crm.Client) bool { return c.ID == id })
	if i < 0 {
		return crm.UnknownClientName
	}
	c := clients[i]
	d.Remember(c)
	if d.cache != nil {
		if err := d.cache.UpsertClients([]crm.Client{c}); err != nil {
			d.logger.Warn("failed to persist client", zap.String("client_id", string(id)), zap.Error(err))
		}
	}
	return nameOrUnknown(c)
}

func nameOrUnknown(c crm.Client) string {
	if n := c.DisplayName(); n != "" {
		return n
	}
	return crm.UnknownClientName
}
