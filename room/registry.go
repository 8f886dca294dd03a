package room

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/bassj/spinner-app/globals"
	"github.com/bassj/spinner-app/metrics"
	"github.com/robfig/cron/v3"
	"golang.org/x/crypto/bcrypt"
)

// Registry is the process-wide room table, indexed by numeric id and by slug.
// It is the only place rooms are created, looked up or expired. It is an owned
// object handed to the request and connection handlers, not a package global,
// so tests get their own isolated instance.
type Registry struct {
	mu     sync.RWMutex
	nextId int64
	byId   map[int64]*Room
	bySlug map[string]*Room

	slugs          *SlugGenerator
	bcryptCost     int
	imageCacheSize int

	janitor *cron.Cron
}

func NewRegistry(bcryptCost, imageCacheSize int) *Registry {
	return &Registry{
		byId:           make(map[int64]*Room),
		bySlug:         make(map[string]*Room),
		slugs:          NewSlugGenerator(rand.New(rand.NewSource(time.Now().UnixNano()))),
		bcryptCost:     bcryptCost,
		imageCacheSize: imageCacheSize,
	}
}

// Create allocates a new room. The password, if any, is hashed before the
// registry lock is taken, it is the only slow step in here.
func (reg *Registry) Create(name, password, creatorId string) (*Room, error) {
	passwordHash := ""
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), reg.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("could not hash room password: %w", err)
		}
		passwordHash = string(hash)
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.nextId++
	slug := reg.slugs.Generate(func(s string) bool {
		_, ok := reg.bySlug[s]
		return ok
	})
	rm, err := newRoom(reg.nextId, slug, name, passwordHash, creatorId, reg.imageCacheSize)
	if err != nil {
		return nil, err
	}
	reg.byId[rm.id] = rm
	reg.bySlug[rm.slug] = rm
	metrics.RoomsCreated.Inc()
	globals.AppLogger.Info("created room", "id", rm.id, "slug", rm.slug, "name", name)
	return rm, nil
}

// GetBySlug is a pure lookup.
func (reg *Registry) GetBySlug(slug string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	rm, ok := reg.bySlug[slug]
	return rm, ok
}

func (reg *Registry) GetById(id int64) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	rm, ok := reg.byId[id]
	return rm, ok
}

func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.bySlug)
}

// StartJanitor begins a periodic sweep removing rooms that have had no
// connected member for longer than ttl. Rooms live forever when the janitor is
// not started, which is the default. onExpire runs after a room has been
// removed from the registry.
func (reg *Registry) StartJanitor(ttl time.Duration, onExpire func(*Room)) {
	if ttl <= 0 {
		return
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc("@every 1m", func() { reg.sweep(ttl, onExpire) }); err != nil {
		globals.AppLogger.Error("could not schedule room expiry sweep", "error", err)
		return
	}
	c.Start()
	reg.janitor = c
}

func (reg *Registry) StopJanitor() {
	if reg.janitor != nil {
		reg.janitor.Stop()
	}
}

func (reg *Registry) sweep(ttl time.Duration, onExpire func(*Room)) {
	cutoff := time.Now().Add(-ttl)
	expired := make([]*Room, 0)
	reg.mu.Lock()
	for slug, rm := range reg.bySlug {
		if rm.ConnectedCount() == 0 && rm.LastActive().Before(cutoff) {
			delete(reg.bySlug, slug)
			delete(reg.byId, rm.id)
			expired = append(expired, rm)
		}
	}
	reg.mu.Unlock()
	for _, rm := range expired {
		globals.AppLogger.Info("expired idle room", "slug", rm.Slug())
		if onExpire != nil {
			onExpire(rm)
		}
	}
}
