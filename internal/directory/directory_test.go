package directory

import (
	"math/rand"
	"testing"

	"github.com/vietddude/genrelay/internal/core/config"
	"github.com/vietddude/genrelay/internal/core/domain"
)

func testServices(n int) map[domain.ServiceType]config.ServiceConfig {
	svc := config.ServiceConfig{Default: "srv-0"}
	for i := 0; i < n; i++ {
		svc.Servers = append(svc.Servers, config.ServerConfig{
			Name: "srv-" + string(rune('0'+i)),
			URL:  "https://srv-" + string(rune('0'+i)) + ".example.com",
		})
	}
	return map[domain.ServiceType]config.ServiceConfig{
		domain.ServiceImage: svc,
	}
}

func TestCurrent_Default(t *testing.T) {
	d := New(testServices(3), rand.New(rand.NewSource(1)))

	cur, err := d.Current(domain.ServiceImage)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cur.Name != "srv-0" {
		t.Errorf("expected default srv-0, got %s", cur.Name)
	}
}

func TestCurrent_Override(t *testing.T) {
	d := New(testServices(3), rand.New(rand.NewSource(1)))

	d.SetOverride(domain.ServiceImage, "srv-2")
	cur, err := d.Current(domain.ServiceImage)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cur.Name != "srv-2" {
		t.Errorf("expected override srv-2, got %s", cur.Name)
	}

	// Clearing the override falls back to the default.
	d.SetOverride(domain.ServiceImage, "")
	cur, _ = d.Current(domain.ServiceImage)
	if cur.Name != "srv-0" {
		t.Errorf("expected srv-0 after clearing override, got %s", cur.Name)
	}
}

func TestCurrent_NoServers(t *testing.T) {
	d := New(nil, rand.New(rand.NewSource(1)))

	if _, err := d.Current(domain.ServiceVideo); err == nil {
		t.Error("expected error for unconfigured service")
	}
}

func TestAlternates_ExcludesCurrent(t *testing.T) {
	d := New(testServices(4), rand.New(rand.NewSource(1)))

	cur, _ := d.Current(domain.ServiceImage)
	alts := d.Alternates(domain.ServiceImage, cur)

	if len(alts) != 3 {
		t.Fatalf("expected 3 alternates, got %d", len(alts))
	}
	for _, a := range alts {
		if a.Name == cur.Name {
			t.Errorf("alternates must not contain the current server %s", cur.Name)
		}
	}
}

func TestAlternates_DeterministicWithSeed(t *testing.T) {
	d1 := New(testServices(5), rand.New(rand.NewSource(42)))
	d2 := New(testServices(5), rand.New(rand.NewSource(42)))

	cur, _ := d1.Current(domain.ServiceImage)
	a1 := d1.Alternates(domain.ServiceImage, cur)
	a2 := d2.Alternates(domain.ServiceImage, cur)

	for i := range a1 {
		if a1[i].Name != a2[i].Name {
			t.Fatalf("same seed produced different orders: %v vs %v", a1, a2)
		}
	}
}
