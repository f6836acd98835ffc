package dispatch

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/vietddude/genrelay/internal/core/config"
	"github.com/vietddude/genrelay/internal/core/domain"
	"github.com/vietddude/genrelay/internal/directory"
	"github.com/vietddude/genrelay/internal/infra/credstore"
)

func poolCred(token string, ageDays int) domain.Credential {
	return domain.Credential{
		Token:      token,
		Provenance: domain.ProvenancePool,
		CreatedAt:  time.Now().Add(-time.Duration(ageDays) * 24 * time.Hour),
	}
}

func personalCred(token string) *domain.Credential {
	return &domain.Credential{Token: token, Provenance: domain.ProvenancePersonal}
}

func testDirectory(servers int, seed int64) *directory.Directory {
	svc := config.ServiceConfig{Default: "srv-0"}
	for i := 0; i < servers; i++ {
		name := fmt.Sprintf("srv-%d", i)
		svc.Servers = append(svc.Servers, config.ServerConfig{
			Name: name,
			URL:  "https://" + name + ".example.com",
		})
	}
	return directory.New(map[domain.ServiceType]config.ServiceConfig{
		domain.ServiceImage: svc,
	}, rand.New(rand.NewSource(seed)))
}

func defaultFailover() config.FailoverConfig {
	return config.FailoverConfig{
		StrictFallback: 5,
		PrimaryPool:    5,
		BackupServers:  2,
		BackupPool:     3,
	}
}

func TestBuild_RobustOrdering(t *testing.T) {
	store := credstore.Static{
		User: personalCred("tok-personal"),
		PoolTokens: []domain.Credential{
			poolCred("tok-pool-a", 1),
			poolCred("tok-pool-b", 2),
		},
	}
	p := NewPlanner(store, testDirectory(3, 1), defaultFailover(), rand.New(rand.NewSource(1)))

	plan, err := p.Build(domain.ServiceImage, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if plan[0].Credential.Provenance != domain.ProvenancePersonal {
		t.Errorf("plan[0] provenance = %s, want personal", plan[0].Credential.Provenance)
	}
	if plan[0].Server.Name != "srv-0" {
		t.Errorf("plan[0] server = %s, want current srv-0", plan[0].Server.Name)
	}
	if plan[1].Credential.Provenance != domain.ProvenancePool || plan[1].Server.Name != "srv-0" {
		t.Errorf("plan[1] must be a pool credential on the current server, got %s@%s",
			plan[1].Credential.Provenance, plan[1].Server.Name)
	}

	// All current-server attempts come before any alternate-server attempt.
	seenAlternate := false
	for i, pair := range plan {
		if pair.Server.Name != "srv-0" {
			seenAlternate = true
		} else if seenAlternate {
			t.Errorf("plan[%d] targets the current server after an alternate", i)
		}
	}
}

func TestBuild_NoDuplicatePairs(t *testing.T) {
	store := credstore.Static{
		User: personalCred("tok-personal"),
		PoolTokens: []domain.Credential{
			poolCred("tok-pool-a", 1),
			poolCred("tok-pool-b", 2),
			poolCred("tok-pool-c", 3),
		},
	}
	p := NewPlanner(store, testDirectory(4, 7), defaultFailover(), rand.New(rand.NewSource(7)))

	plan, err := p.Build(domain.ServiceImage, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := make(map[string]bool)
	for _, pair := range plan {
		if seen[pair.Key()] {
			t.Errorf("duplicate pair %s in plan", pair.Key())
		}
		seen[pair.Key()] = true
	}
}

func TestBuild_StrictExact(t *testing.T) {
	store := credstore.Static{
		PoolTokens: []domain.Credential{poolCred("tok-pool-a", 1)},
	}
	p := NewPlanner(store, testDirectory(3, 1), defaultFailover(), rand.New(rand.NewSource(1)))

	supplied := &domain.Credential{Token: "tok-supplied"}
	plan, err := p.Build(domain.ServiceImage, supplied, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(plan) != 1 {
		t.Fatalf("exact strict plan must contain exactly the supplied credential, got %d entries", len(plan))
	}
	if plan[0].Credential.Token != "tok-supplied" ||
		plan[0].Credential.Provenance != domain.ProvenanceSpecific {
		t.Errorf("unexpected pair: %+v", plan[0])
	}
}

func TestBuild_StrictWithFallback(t *testing.T) {
	store := credstore.Static{
		PoolTokens: []domain.Credential{
			poolCred("tok-pool-a", 1),
			poolCred("tok-pool-b", 2),
		},
	}
	p := NewPlanner(store, testDirectory(3, 1), defaultFailover(), rand.New(rand.NewSource(1)))

	supplied := &domain.Credential{Token: "tok-supplied"}
	plan, err := p.Build(domain.ServiceImage, supplied, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(plan) != 3 {
		t.Fatalf("expected supplied + 2 pool fallbacks, got %d entries", len(plan))
	}
	if plan[0].Credential.Token != "tok-supplied" {
		t.Errorf("plan[0] must be the supplied credential")
	}
	for i, pair := range plan {
		if pair.Server.Name != "srv-0" {
			t.Errorf("plan[%d] strict fallback must stay on the current server, got %s", i, pair.Server.Name)
		}
	}
}

func TestBuild_StrictFallbackBound(t *testing.T) {
	var pool []domain.Credential
	for i := 0; i < 9; i++ {
		pool = append(pool, poolCred(fmt.Sprintf("tok-pool-%d", i), i))
	}
	store := credstore.Static{PoolTokens: pool}
	p := NewPlanner(store, testDirectory(2, 1), defaultFailover(), rand.New(rand.NewSource(1)))

	plan, err := p.Build(domain.ServiceImage, &domain.Credential{Token: "tok-supplied"}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan) != 6 {
		t.Errorf("expected 1 supplied + 5 fallbacks, got %d", len(plan))
	}
}

func TestBuild_BackupServers(t *testing.T) {
	store := credstore.Static{
		User: personalCred("tok-personal"),
		PoolTokens: []domain.Credential{
			poolCred("tok-pool-a", 1),
			poolCred("tok-pool-b", 2),
		},
	}
	p := NewPlanner(store, testDirectory(5, 3), defaultFailover(), rand.New(rand.NewSource(3)))

	plan, err := p.Build(domain.ServiceImage, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	servers := make(map[string]bool)
	for _, pair := range plan {
		servers[pair.Server.Name] = true
	}

	// current + BackupServers alternates
	if len(servers) != 3 {
		t.Errorf("expected attempts across 3 servers, got %d (%v)", len(servers), servers)
	}
	if !servers["srv-0"] {
		t.Error("plan must include the current server")
	}
}

func TestBuild_Empty_PreconditionError(t *testing.T) {
	p := NewPlanner(credstore.Static{}, testDirectory(3, 1), defaultFailover(), rand.New(rand.NewSource(1)))

	_, err := p.Build(domain.ServiceImage, nil, false)
	if !errors.Is(err, domain.ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials, got %v", err)
	}
}

func TestBuild_DeterministicWithSeed(t *testing.T) {
	store := credstore.Static{
		User: personalCred("tok-personal"),
		PoolTokens: []domain.Credential{
			poolCred("tok-pool-a", 1),
			poolCred("tok-pool-b", 2),
			poolCred("tok-pool-c", 3),
			poolCred("tok-pool-d", 4),
		},
	}

	build := func() []domain.AttemptPair {
		p := NewPlanner(store, testDirectory(5, 99), defaultFailover(), rand.New(rand.NewSource(99)))
		plan, err := p.Build(domain.ServiceImage, nil, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return plan
	}

	p1, p2 := build(), build()
	if len(p1) != len(p2) {
		t.Fatalf("plans differ in length: %d vs %d", len(p1), len(p2))
	}
	for i := range p1 {
		if p1[i].Key() != p2[i].Key() {
			t.Fatalf("same seed produced different plans at %d: %s vs %s", i, p1[i].Key(), p2[i].Key())
		}
	}
}
