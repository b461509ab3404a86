// Package rematch re-scores records the primary pass left unmatched and ranks suggestions for review
package rematch

import (
	"context"
	"sort"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const (
	DefaultAutoMatchAbove = 55
	DefaultReviewFrom     = 35
	DefaultTopN           = 3
)

// Config holds the recommendation tiers
type Config struct {
	AutoMatchAbove float64 // Best score strictly above this is auto_match
	ReviewFrom     float64 // Best score at or above this is review
	TopN           int
}

// DefaultConfig returns the standard tiers
func DefaultConfig() Config {
	return Config{
		AutoMatchAbove: DefaultAutoMatchAbove,
		ReviewFrom:     DefaultReviewFrom,
		TopN:           DefaultTopN,
	}
}

// Input is the full record sets plus the primary pass results
type Input struct {
	Sales             []*matching.IndexedRecord
	Logistics         []*matching.IndexedRecord
	Shipping          []*matching.IndexedRecord
	SalesLogistics    *matching.LinkResult
	LogisticsShipping *matching.LinkResult
}

// direction is one unmatched set re-scored against a full opposing set
type direction struct {
	pair        models.PipelinePair
	targetStage models.PipelineStage
	sourceField models.TimeField
	targetField models.TimeField
	unmatched   []*matching.IndexedRecord
	targets     []*matching.IndexedRecord
	claimed     map[string]*matching.MatchCandidate // Primary pass matches keyed by target id
}

// Engine produces rematch suggestions. It never changes primary pass output.
type Engine struct {
	logger ectologger.Logger
	scorer *matching.Scorer
	cfg    Config
}

// NewEngine creates a new rematch Engine using scorer in relaxed mode
func NewEngine(logger ectologger.Logger, scorer *matching.Scorer, cfg Config) *Engine {
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultTopN
	}
	return &Engine{logger: logger, scorer: scorer, cfg: cfg}
}

// Suggest ranks candidates for every unmatched record in three directions:
// logistics to sales, sales to logistics and shipping to logistics.
func (e *Engine) Suggest(ctx context.Context, in Input) []*models.RematchSuggestion {
	ctx, span := tracing.StartSpan(ctx, "rematch.Engine.Suggest")
	defer span.End()

	log := e.logger.WithContext(ctx)

	var directions []direction
	if sl := in.SalesLogistics; sl != nil {
		directions = append(directions,
			direction{
				pair:        models.PipelinePairSalesLogistics,
				targetStage: models.PipelineStageSales,
				sourceField: models.TimeFieldCreated,
				targetField: models.TimeFieldUpdated,
				unmatched:   sl.UnmatchedSources,
				targets:     in.Sales,
				claimed:     sl.ByTarget(),
			},
			direction{
				pair:        models.PipelinePairSalesLogistics,
				targetStage: models.PipelineStageLogistics,
				sourceField: models.TimeFieldUpdated,
				targetField: models.TimeFieldCreated,
				unmatched:   sl.UnmatchedTargets,
				targets:     in.Logistics,
				claimed:     sl.BySource(),
			},
		)
	}
	if ls := in.LogisticsShipping; ls != nil {
		directions = append(directions, direction{
			pair:        models.PipelinePairLogisticsShipping,
			targetStage: models.PipelineStageLogistics,
			sourceField: models.TimeFieldCreated,
			targetField: models.TimeFieldUpdated,
			unmatched:   ls.UnmatchedSources,
			targets:     in.Logistics,
			claimed:     ls.ByTarget(),
		})
	}

	var suggestions []*models.RematchSuggestion
	counts := make(map[string]int)
	for _, d := range directions {
		index := matching.NewTargetIndex(d.targets, true)
		for _, rec := range d.unmatched {
			s := e.suggest(rec, index, d)
			suggestions = append(suggestions, s)
			counts[string(s.Recommendation)]++
			if s.Conflict {
				counts["conflicts"]++
			}
			metrics.RecordRematch(string(s.Recommendation), s.Conflict)
		}
	}

	tracing.SetCounts(span, counts)
	log.WithFields(map[string]any{
		"suggestions":     len(suggestions),
		"recommendations": counts,
	}).Debug("Generated rematch suggestions")

	return suggestions
}

func (e *Engine) suggest(rec *matching.IndexedRecord, index *matching.TargetIndex, d direction) *models.RematchSuggestion {
	var scored []*matching.MatchCandidate
	for _, tgt := range index.Candidates(rec) {
		scored = append(scored, e.scorer.Score(rec, tgt, d.sourceField, d.targetField, matching.ScoreModeRelaxed))
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Better(scored[j])
	})
	if len(scored) > e.cfg.TopN {
		scored = scored[:e.cfg.TopN]
	}

	s := &models.RematchSuggestion{
		Pair:           d.pair,
		Record:         rec.Ref(),
		TargetStage:    d.targetStage,
		Candidates:     make([]models.RematchCandidate, 0, len(scored)),
		Recommendation: models.RecommendationTrulyUnmatched,
	}
	for _, c := range scored {
		_, taken := d.claimed[c.Target.ID()]
		s.Candidates = append(s.Candidates, models.RematchCandidate{
			Deal:             c.Target.Ref(),
			Score:            c.Score,
			Details:          c.Details,
			TimeDeltaSeconds: c.TimeDeltaSeconds,
			AlreadyMatched:   taken,
		})
	}
	if len(s.Candidates) == 0 {
		return s
	}

	best := s.Candidates[0]
	s.Best = &best
	s.Recommendation = e.tier(best.Score)
	if best.AlreadyMatched {
		// Claimed targets need a human to adjudicate; never auto-accept them
		s.Conflict = true
		if s.Recommendation == models.RecommendationAutoMatch {
			s.Recommendation = models.RecommendationReview
		}
	}
	return s
}

func (e *Engine) tier(score float64) models.Recommendation {
	switch {
	case score > e.cfg.AutoMatchAbove:
		return models.RecommendationAutoMatch
	case score >= e.cfg.ReviewFrom:
		return models.RecommendationReview
	default:
		return models.RecommendationTrulyUnmatched
	}
}
