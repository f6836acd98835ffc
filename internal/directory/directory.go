// Package directory enumerates the fixed set of interchangeable backend
// servers and resolves the currently preferred one per service type.
package directory

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/vietddude/genrelay/internal/core/config"
	"github.com/vietddude/genrelay/internal/core/domain"
)

// Directory holds the fixed server sets. One server per service type is
// current (an explicit override if set, otherwise the configured default,
// resolved once and cached); all others are alternates.
type Directory struct {
	mu        sync.Mutex
	servers   map[domain.ServiceType][]domain.Server
	defaults  map[domain.ServiceType]string
	overrides map[domain.ServiceType]string
	resolved  map[domain.ServiceType]domain.Server
	rnd       *rand.Rand
}

// New builds a directory from configuration. rnd may be nil, in which case
// a time-seeded source is used; tests inject a seeded one for deterministic
// alternate ordering.
func New(services map[domain.ServiceType]config.ServiceConfig, rnd *rand.Rand) *Directory {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	d := &Directory{
		servers:   make(map[domain.ServiceType][]domain.Server),
		defaults:  make(map[domain.ServiceType]string),
		overrides: make(map[domain.ServiceType]string),
		resolved:  make(map[domain.ServiceType]domain.Server),
		rnd:       rnd,
	}

	for st, svc := range services {
		for _, s := range svc.Servers {
			d.servers[st] = append(d.servers[st], domain.Server{Name: s.Name, URL: s.URL})
		}
		d.defaults[st] = svc.Default
	}

	return d
}

// SetOverride pins the current server for a service type away from the
// default. An empty name clears the override.
func (d *Directory) SetOverride(st domain.ServiceType, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if name == "" {
		delete(d.overrides, st)
	} else {
		d.overrides[st] = name
	}
	delete(d.resolved, st)
}

// Current resolves the preferred server for a service type.
func (d *Directory) Current(st domain.ServiceType) (domain.Server, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s, ok := d.resolved[st]; ok {
		return s, nil
	}

	servers := d.servers[st]
	if len(servers) == 0 {
		return domain.Server{}, fmt.Errorf("no servers configured for service %s", st)
	}

	name := d.overrides[st]
	if name == "" {
		name = d.defaults[st]
	}

	for _, s := range servers {
		if s.Name == name {
			d.resolved[st] = s
			return s, nil
		}
	}

	// Unknown default/override falls back to the first configured entry.
	d.resolved[st] = servers[0]
	return servers[0], nil
}

// Alternates returns every server for the service type except the excluded
// one, in randomized order so overload does not concentrate on one fixed
// fallback across concurrent users.
func (d *Directory) Alternates(st domain.ServiceType, excluding domain.Server) []domain.Server {
	d.mu.Lock()
	defer d.mu.Unlock()

	var alts []domain.Server
	for _, s := range d.servers[st] {
		if s.Name != excluding.Name {
			alts = append(alts, s)
		}
	}

	d.rnd.Shuffle(len(alts), func(i, j int) {
		alts[i], alts[j] = alts[j], alts[i]
	})

	return alts
}
