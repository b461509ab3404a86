// Package grouping assembles linked pipeline records into order groups
package grouping

import (
	"context"
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/fingerprint"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Input holds the results of both primary linking passes.
//
// SalesLogistics has logistics records as sources and sales records as targets.
// LogisticsShipping has shipping records as sources and logistics records as targets.
type Input struct {
	SalesLogistics    *matching.LinkResult
	LogisticsShipping *matching.LinkResult
}

// Builder turns link results into order groups
type Builder struct {
	logger ectologger.Logger
	ids    *fingerprint.IDGenerator
}

// NewBuilder creates a new Builder
func NewBuilder(logger ectologger.Logger, ids *fingerprint.IDGenerator) *Builder {
	if ids == nil {
		ids = fingerprint.NewIDGenerator(fingerprint.IDStrategyDeterministic)
	}
	return &Builder{logger: logger, ids: ids}
}

// Build creates one group per transaction. Every input record lands in exactly one group:
//   - each sales/logistics match, with the logistics record's shipping match folded in
//   - each unmatched sales record alone
//   - each unmatched logistics record, with its shipping match if it has one
//   - each shipping record not folded into a logistics group, alone
func (b *Builder) Build(ctx context.Context, in Input) ([]*models.OrderGroup, error) {
	ctx, span := tracing.StartSpan(ctx, "grouping.Builder.Build")
	defer span.End()

	log := b.logger.WithContext(ctx)

	if in.SalesLogistics == nil || in.LogisticsShipping == nil {
		return nil, invariantError("both link results are required")
	}

	shippingByLogistics := in.LogisticsShipping.ByTarget()
	folded := make(map[string]struct{}, len(shippingByLogistics))

	var groups []*models.OrderGroup

	for _, m := range in.SalesLogistics.Matches {
		g := &models.OrderGroup{
			Sales:       m.Target.Deal,
			Logistics:   m.Source.Deal,
			Confidence:  confidence(m.Score),
			MatchDetail: detail(models.PipelinePairSalesLogistics, m),
		}
		if ship, ok := shippingByLogistics[m.Source.ID()]; ok {
			g.Shipping = ship.Source.Deal
			g.MatchDetail += "; " + detail(models.PipelinePairLogisticsShipping, ship)
			folded[ship.Source.ID()] = struct{}{}
		}
		groups = append(groups, g)
	}

	for _, sale := range in.SalesLogistics.UnmatchedTargets {
		groups = append(groups, &models.OrderGroup{
			Sales:       sale.Deal,
			MatchDetail: "unmatched",
		})
	}

	for _, logi := range in.SalesLogistics.UnmatchedSources {
		g := &models.OrderGroup{
			Logistics:   logi.Deal,
			MatchDetail: "unmatched",
		}
		if ship, ok := shippingByLogistics[logi.ID()]; ok {
			g.Shipping = ship.Source.Deal
			g.Confidence = confidence(ship.Score)
			g.MatchDetail = detail(models.PipelinePairLogisticsShipping, ship)
			folded[ship.Source.ID()] = struct{}{}
		}
		groups = append(groups, g)
	}

	for _, m := range in.LogisticsShipping.Matches {
		if _, ok := folded[m.Source.ID()]; ok {
			continue
		}
		// Its logistics record never reached the sales pass; keep the shipping record
		groups = append(groups, &models.OrderGroup{
			Shipping:    m.Source.Deal,
			MatchDetail: "unmatched",
		})
	}

	for _, ship := range in.LogisticsShipping.UnmatchedSources {
		groups = append(groups, &models.OrderGroup{
			Shipping:    ship.Deal,
			MatchDetail: "unmatched",
		})
	}

	counts := make(map[string]int)
	for _, g := range groups {
		g.ID = b.ids.New("order_group", dealID(g.Sales), dealID(g.Logistics), dealID(g.Shipping))
		if err := g.Validate(); err != nil {
			log.WithError(err).Error("Invalid order group")
			return nil, err
		}
		kind := g.Kind()
		counts[string(kind)]++
		metrics.RecordOrderGroup(string(kind))
	}

	tracing.SetCounts(span, counts)
	log.WithFields(map[string]any{
		"groups":  len(groups),
		"by_kind": counts,
	}).Debug("Built order groups")

	return groups, nil
}

func confidence(score float64) float64 {
	return min(max(score/100, 0), 1)
}

func detail(pair models.PipelinePair, m *matching.MatchCandidate) string {
	return fmt.Sprintf("%s(%g): %s", pair, m.Score, strings.Join(m.Details, ", "))
}

func dealID(d *models.Deal) string {
	if d == nil {
		return ""
	}
	return d.ID
}
