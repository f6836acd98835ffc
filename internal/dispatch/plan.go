// Package dispatch sends generation jobs to a pool of interchangeable
// backend proxy servers with rotating bearer credentials.
//
// This package contains:
//   - Planner: builds the ordered (credential, server) attempt sequence
//   - Executor: walks the sequence, classifies results, stops on success
//     or on a terminal failure
//   - Dispatcher: ties admission, planning, execution and failure
//     reporting together
package dispatch

import (
	"math/rand"
	"sync"
	"time"

	"github.com/vietddude/genrelay/internal/core/config"
	"github.com/vietddude/genrelay/internal/core/domain"
	"github.com/vietddude/genrelay/internal/directory"
	"github.com/vietddude/genrelay/internal/infra/credstore"
)

// Planner builds an ordered, de-duplicated attempt plan for one dispatch.
type Planner struct {
	store credstore.Source
	dir   *directory.Directory
	cfg   config.FailoverConfig

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewPlanner creates a planner. rnd may be nil; tests pass a seeded source
// so pool-sample ordering is deterministic.
func NewPlanner(
	store credstore.Source,
	dir *directory.Directory,
	cfg config.FailoverConfig,
	rnd *rand.Rand,
) *Planner {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Planner{store: store, dir: dir, cfg: cfg, rnd: rnd}
}

// Build produces the attempt sequence for a call.
//
// Strict mode (specific != nil): the supplied credential against the current
// server first, then (unless exactOnly is set) a bounded run of pool
// fallbacks on the same server so a multi-step workflow survives one bad
// credential.
//
// Robust mode: personal then a shuffled sample of the freshest pool
// credentials on the current server, followed by a reduced repeat against a
// few randomly chosen alternate servers.
//
// An empty plan is a precondition failure (domain.ErrNoCredentials), not a
// retry case.
func (p *Planner) Build(
	st domain.ServiceType,
	specific *domain.Credential,
	exactOnly bool,
) ([]domain.AttemptPair, error) {
	current, err := p.dir.Current(st)
	if err != nil {
		return nil, err
	}

	b := newPlanBuilder()

	if specific != nil {
		b.add(specific.WithProvenance(domain.ProvenanceSpecific), current)
		if !exactOnly {
			for _, c := range p.poolSample(p.cfg.StrictFallback, false) {
				b.add(c, current)
			}
		}
		return b.plan, nil
	}

	personal := p.store.Personal()

	// Phase 1: current server.
	if personal != nil {
		b.add(*personal, current)
	}
	for _, c := range p.poolSample(p.cfg.PrimaryPool, true) {
		b.add(c, current)
	}

	// Phase 2: backup servers, reduced pool sample per server.
	alts := p.dir.Alternates(st, current)
	if len(alts) > p.cfg.BackupServers {
		alts = alts[:p.cfg.BackupServers]
	}
	for _, alt := range alts {
		if personal != nil {
			b.add(*personal, alt)
		}
		for _, c := range p.poolSample(p.cfg.BackupPool, true) {
			b.add(c, alt)
		}
	}

	if len(b.plan) == 0 {
		return nil, domain.ErrNoCredentials
	}
	return b.plan, nil
}

// poolSample takes the n freshest pool credentials. Shuffling distributes
// load across concurrent callers so the same first pool credential is not
// hammered by everyone; strict fallbacks stay freshest-first.
func (p *Planner) poolSample(n int, shuffle bool) []domain.Credential {
	if n <= 0 {
		return nil
	}

	pool := p.store.Pool()
	if len(pool) > n {
		pool = pool[:n]
	}

	sample := make([]domain.Credential, len(pool))
	copy(sample, pool)

	if shuffle {
		p.mu.Lock()
		p.rnd.Shuffle(len(sample), func(i, j int) {
			sample[i], sample[j] = sample[j], sample[i]
		})
		p.mu.Unlock()
	}

	return sample
}

type planBuilder struct {
	plan []domain.AttemptPair
	seen map[string]struct{}
}

func newPlanBuilder() *planBuilder {
	return &planBuilder{seen: make(map[string]struct{})}
}

// add appends a pair unless its (fingerprint, server) key was already
// planned.
func (b *planBuilder) add(c domain.Credential, s domain.Server) {
	pair := domain.AttemptPair{Credential: c, Server: s}
	if _, dup := b.seen[pair.Key()]; dup {
		return
	}
	b.seen[pair.Key()] = struct{}{}
	b.plan = append(b.plan, pair)
}
