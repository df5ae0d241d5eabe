package service

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Strob0t/PropertyHub/internal/domain/subscription"
)

//go:embed plans.yaml
var defaultPlans []byte

type planCatalog struct {
	Plans []subscription.Plan `yaml:"plans"`
}

// ParsePlans decodes a plan catalog and validates every entry.
func ParsePlans(data []byte) ([]subscription.Plan, error) {
	var cat planCatalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse plan catalog: %w", err)
	}
	seen := make(map[string]bool, len(cat.Plans))
	for i := range cat.Plans {
		p := &cat.Plans[i]
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("plan %d: %w", i, err)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("plan %q listed twice", p.Name)
		}
		seen[p.Name] = true
		if p.Status == "" {
			p.Status = subscription.PlanActive
		}
	}
	return cat.Plans, nil
}

// SeedPlans upserts the plan catalog from path, or the built-in catalog when
// path is empty. The first plan flagged popular is made the popular plan
// only when no plan is popular yet.
func (s *SubscriptionService) SeedPlans(ctx context.Context, path string) error {
	data := defaultPlans
	if path != "" {
		b, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
		if err != nil {
			return fmt.Errorf("read plan catalog: %w", err)
		}
		data = b
	}
	plans, err := ParsePlans(data)
	if err != nil {
		return err
	}

	existing, err := s.store.ListPlans(ctx, false)
	if err != nil {
		return fmt.Errorf("list plans: %w", err)
	}
	havePopular := false
	for _, p := range existing {
		havePopular = havePopular || p.Popular
	}

	for i := range plans {
		p := &plans[i]
		if err := s.store.UpsertPlanByName(ctx, p); err != nil {
			return err
		}
		if p.Popular && !havePopular {
			if err := s.store.MakePlanPopular(ctx, p.ExternalID); err != nil {
				return fmt.Errorf("mark plan popular: %w", err)
			}
			havePopular = true
		}
	}
	s.log.Info("plan catalog seeded", zap.Int("plans", len(plans)))
	return nil
}
