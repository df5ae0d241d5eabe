package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestParsePlans_BuiltInCatalog(t *testing.T) {
	plans, err := ParsePlans(defaultPlans)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(plans) != 3 {
		t.Fatalf("plans = %d, want 3", len(plans))
	}
	popular := 0
	for _, p := range plans {
		if p.Popular {
			popular++
		}
		if p.Status == "" {
			t.Errorf("plan %s has no status", p.Name)
		}
	}
	if popular != 1 {
		t.Errorf("popular plans = %d, want 1", popular)
	}
}

func TestParsePlans_Rejects(t *testing.T) {
	cases := map[string]string{
		"duplicate": "plans:\n  - {name: A, price: 1, duration: 30}\n  - {name: A, price: 2, duration: 30}\n",
		"no name":   "plans:\n  - {price: 1, duration: 30}\n",
		"bad yaml":  "plans: [",
	}
	for name, doc := range cases {
		if _, err := ParsePlans([]byte(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestSeedPlans_IsIdempotentAndKeepsPopularChoice(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	if err := e.subs.SeedPlans(ctx, ""); err != nil {
		t.Fatalf("seed: %v", err)
	}
	plans, _ := e.subs.Plans(ctx, false)
	if len(plans) != 3 {
		t.Fatalf("plans = %d, want 3", len(plans))
	}
	var starter string
	for _, p := range plans {
		if p.Popular && p.Name != "Professional" {
			t.Errorf("popular = %s, want Professional", p.Name)
		}
		if p.Name == "Starter" {
			starter = p.ExternalID
		}
	}

	// An operator's choice survives a reseed.
	if err := e.subs.MakePopular(ctx, starter); err != nil {
		t.Fatal(err)
	}
	if err := e.subs.SeedPlans(ctx, ""); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	plans, _ = e.subs.Plans(ctx, false)
	if len(plans) != 3 {
		t.Errorf("plans after reseed = %d, want 3", len(plans))
	}
	for _, p := range plans {
		if p.Popular != (p.Name == "Starter") {
			t.Errorf("plan %s popular = %v", p.Name, p.Popular)
		}
	}
}

func TestSeedPlans_FromFile(t *testing.T) {
	e := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "plans.yaml")
	doc := "plans:\n  - name: Solo\n    price: 5\n    duration: 30\n    popular: true\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := e.subs.SeedPlans(context.Background(), path); err != nil {
		t.Fatalf("seed: %v", err)
	}
	plans, _ := e.subs.Plans(context.Background(), true)
	if len(plans) != 1 || plans[0].Name != "Solo" || !plans[0].Popular {
		t.Errorf("plans = %+v", plans)
	}

	if err := e.subs.SeedPlans(context.Background(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
