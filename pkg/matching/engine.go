// Package matching links records between pipeline stages. The indexer derives identifiers,
// the scorer weighs the evidence for a pair and the linker makes the greedy assignment.
package matching

import (
	"context"
	"sort"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// DefaultMatchThreshold is the minimum score a first-pass link needs
const DefaultMatchThreshold = 60

// LinkSpec describes one linking pass between a source and a target stage
type LinkSpec struct {
	Pair        models.PipelinePair
	SourceStage models.PipelineStage
	TargetStage models.PipelineStage
	SourceField models.TimeField
	TargetField models.TimeField
	Threshold   float64 // Inclusive
}

// SalesLogisticsSpec links logistics records (by creation) to the sales record last modified around then
func SalesLogisticsSpec(threshold float64) LinkSpec {
	return LinkSpec{
		Pair:        models.PipelinePairSalesLogistics,
		SourceStage: models.PipelineStageLogistics,
		TargetStage: models.PipelineStageSales,
		SourceField: models.TimeFieldCreated,
		TargetField: models.TimeFieldUpdated,
		Threshold:   threshold,
	}
}

// LogisticsShippingSpec links shipping records (by creation) to the logistics record last modified around then
func LogisticsShippingSpec(threshold float64) LinkSpec {
	return LinkSpec{
		Pair:        models.PipelinePairLogisticsShipping,
		SourceStage: models.PipelineStageShipping,
		TargetStage: models.PipelineStageLogistics,
		SourceField: models.TimeFieldCreated,
		TargetField: models.TimeFieldUpdated,
		Threshold:   threshold,
	}
}

// LinkResult is the outcome of one linking pass
type LinkResult struct {
	Spec             LinkSpec
	Matches          []*MatchCandidate
	UnmatchedSources []*IndexedRecord
	UnmatchedTargets []*IndexedRecord
}

// ByTarget returns the accepted matches keyed by target id
func (r *LinkResult) ByTarget() map[string]*MatchCandidate {
	out := make(map[string]*MatchCandidate, len(r.Matches))
	for _, m := range r.Matches {
		out[m.Target.ID()] = m
	}
	return out
}

// BySource returns the accepted matches keyed by source id
func (r *LinkResult) BySource() map[string]*MatchCandidate {
	out := make(map[string]*MatchCandidate, len(r.Matches))
	for _, m := range r.Matches {
		out[m.Source.ID()] = m
	}
	return out
}

// Linker performs greedy chronological bipartite matching between two stages
type Linker struct {
	logger ectologger.Logger
	scorer *Scorer
}

// NewLinker creates a new Linker
func NewLinker(logger ectologger.Logger, scorer *Scorer) *Linker {
	return &Linker{logger: logger, scorer: scorer}
}

// Link assigns each source record at most one target.
//
// Sources are processed by ascending creation time and each decision is final: a target
// claimed by an earlier source is unavailable to later ones. Targets are tracked by record,
// so two records sharing a deal id are still claimed and reported separately. Candidates come only from
// the phone and secondary id indexes, never a full cross product. The claimed set lives
// only for the duration of this call.
func (l *Linker) Link(ctx context.Context, sources, targets []*IndexedRecord, spec LinkSpec) *LinkResult {
	ctx, span := tracing.StartSpan(ctx, "matching.Linker.Link")
	defer span.End()

	log := l.logger.WithContext(ctx).WithFields(map[string]any{
		"pair":    spec.Pair,
		"sources": len(sources),
		"targets": len(targets),
	})

	index := NewTargetIndex(targets, false)
	claimed := make(map[*IndexedRecord]struct{})

	ordered := make([]*IndexedRecord, len(sources))
	copy(ordered, sources)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Deal.CreatedAt.Before(ordered[j].Deal.CreatedAt)
	})

	result := &LinkResult{Spec: spec}
	for _, src := range ordered {
		var best *MatchCandidate
		for _, tgt := range index.Candidates(src) {
			if _, taken := claimed[tgt]; taken {
				continue
			}
			c := l.scorer.Score(src, tgt, spec.SourceField, spec.TargetField, ScoreModeStrict)
			if c.Score < spec.Threshold {
				continue
			}
			if c.Better(best) {
				best = c
			}
		}

		if best == nil {
			result.UnmatchedSources = append(result.UnmatchedSources, src)
			continue
		}

		claimed[best.Target] = struct{}{}
		result.Matches = append(result.Matches, best)
	}

	for _, tgt := range targets {
		if _, taken := claimed[tgt]; !taken {
			result.UnmatchedTargets = append(result.UnmatchedTargets, tgt)
		}
	}

	scores := make([]float64, len(result.Matches))
	for i, m := range result.Matches {
		scores[i] = m.Score
	}
	metrics.RecordLink(string(spec.Pair), len(result.Matches), len(result.UnmatchedSources), scores)
	tracing.SetCounts(span, map[string]int{
		"matches":           len(result.Matches),
		"unmatched_sources": len(result.UnmatchedSources),
		"unmatched_targets": len(result.UnmatchedTargets),
	})

	log.WithFields(map[string]any{
		"matches":           len(result.Matches),
		"unmatched_sources": len(result.UnmatchedSources),
		"unmatched_targets": len(result.UnmatchedTargets),
	}).Debug("Linked pipeline stages")

	return result
}
