// Package processor runs a full reconciliation over one deal snapshot.
// Stages run strictly forward: partition, index, link, group, cluster, report, rematch.
package processor

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/clustering"
	"github.com/Ramsey-B/clover/pkg/criteria"
	"github.com/Ramsey-B/clover/pkg/extractor"
	"github.com/Ramsey-B/clover/pkg/fingerprint"
	"github.com/Ramsey-B/clover/pkg/grouping"
	"github.com/Ramsey-B/clover/pkg/ingest"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/rematch"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Options configures every stage of a run
type Options struct {
	Indexer        matching.IndexerConfig
	Weights        matching.ScoreWeights
	OverrideMode   matching.OverrideMode
	MatchThreshold float64
	Rematch        rematch.Config
	Partition      ingest.PartitionConfig
	FieldMap       ingest.FieldMap
	TimeLayouts    []string
	IDStrategy     fingerprint.IDStrategy
	Exclude        *criteria.Filter // Raw records matching this filter are dropped before decoding
}

// DefaultOptions returns the standard engine settings
func DefaultOptions() Options {
	return Options{
		Indexer:        matching.DefaultIndexerConfig(),
		Weights:        matching.DefaultScoreWeights(),
		OverrideMode:   matching.OverrideModeMax,
		MatchThreshold: matching.DefaultMatchThreshold,
		Rematch:        rematch.DefaultConfig(),
		Partition:      ingest.DefaultPartitionConfig(),
		FieldMap:       ingest.DefaultFieldMap(),
		IDStrategy:     fingerprint.IDStrategyDeterministic,
	}
}

// Processor wires the engine stages together. It holds no state between runs.
type Processor struct {
	logger      ectologger.Logger
	opts        Options
	decoder     *ingest.Decoder
	partitioner *ingest.Partitioner
	indexer     *matching.Indexer
	linker      *matching.Linker
	builder     *grouping.Builder
	clusterer   *clustering.Clusterer
	rematcher   *rematch.Engine
}

// NewProcessor creates a new Processor
func NewProcessor(logger ectologger.Logger, opts Options) (*Processor, error) {
	indexer, err := matching.NewIndexer(opts.Indexer)
	if err != nil {
		return nil, err
	}

	scorer := matching.NewScorer(opts.Weights, opts.OverrideMode)
	ids := fingerprint.NewIDGenerator(opts.IDStrategy)

	return &Processor{
		logger:      logger,
		opts:        opts,
		decoder:     ingest.NewDecoder(logger, opts.FieldMap, extractor.New(opts.TimeLayouts...)),
		partitioner: ingest.NewPartitioner(logger, opts.Partition),
		indexer:     indexer,
		linker:      matching.NewLinker(logger, scorer),
		builder:     grouping.NewBuilder(logger, ids),
		clusterer:   clustering.NewClusterer(logger, indexer, ids),
		rematcher:   rematch.NewEngine(logger, scorer, opts.Rematch),
	}, nil
}

// RunRecords drops excluded raw records, decodes the rest and runs them
func (p *Processor) RunRecords(ctx context.Context, records []map[string]any) (*models.RunResult, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.RunRecords")
	defer span.End()

	kept := records
	excluded := 0
	if !p.opts.Exclude.Empty() {
		kept = make([]map[string]any, 0, len(records))
		for _, r := range records {
			if p.opts.Exclude.Matches(r) {
				excluded++
				continue
			}
			kept = append(kept, r)
		}
		metrics.RecordSkipped("excluded", excluded)
	}

	deals, rejected := p.decoder.Decode(ctx, kept)
	result, err := p.Run(ctx, deals)
	if err != nil {
		return nil, err
	}
	result.Stats.Excluded = excluded
	result.Stats.Rejected = rejected
	return result, nil
}

// Run reconciles one snapshot of deals. The deals are not modified.
func (p *Processor) Run(ctx context.Context, deals []models.Deal) (*models.RunResult, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.Run")
	defer span.End()

	start := time.Now()
	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"deals": len(deals),
	})

	result := &models.RunResult{Fingerprint: fingerprint.ForBatch(deals)}
	log = log.WithFields(map[string]any{"fingerprint": result.Fingerprint})

	part := p.partitioner.Partition(ctx, deals)

	sales := p.indexer.IndexAll(part.Sales, models.PipelineStageSales)
	logistics := p.indexer.IndexAll(part.Logistics, models.PipelineStageLogistics)
	shipping := p.indexer.IndexAll(part.Shipping, models.PipelineStageShipping)

	salesLogistics := p.linker.Link(ctx, logistics, sales, matching.SalesLogisticsSpec(p.opts.MatchThreshold))
	logisticsShipping := p.linker.Link(ctx, shipping, logistics, matching.LogisticsShippingSpec(p.opts.MatchThreshold))

	groups, err := p.builder.Build(ctx, grouping.Input{
		SalesLogistics:    salesLogistics,
		LogisticsShipping: logisticsShipping,
	})
	if err != nil {
		log.WithError(err).Error("Failed to build order groups")
		return nil, err
	}

	contacts, err := p.clusterer.Cluster(ctx, groups)
	if err != nil {
		log.WithError(err).Error("Failed to cluster contacts")
		return nil, err
	}

	result.OrderGroups = groups
	result.Contacts = contacts
	result.Unmatched = p.unmatchedReport(groups, salesLogistics, logisticsShipping)
	result.Rematch = p.rematcher.Suggest(ctx, rematch.Input{
		Sales:             sales,
		Logistics:         logistics,
		Shipping:          shipping,
		SalesLogistics:    salesLogistics,
		LogisticsShipping: logisticsShipping,
	})
	result.Stats = buildStats(part, result, salesLogistics, logisticsShipping)

	elapsed := time.Since(start)
	metrics.RecordRun(elapsed.Seconds())

	log.WithFields(map[string]any{
		"order_groups": len(groups),
		"contacts":     len(contacts),
		"suggestions":  len(result.Rematch),
		"duration_ms":  elapsed.Milliseconds(),
	}).Info("Reconciliation run complete")

	return result, nil
}

// unmatchedReport lists each pass's residuals and the groups with no identifier at all
func (p *Processor) unmatchedReport(groups []*models.OrderGroup, passes ...*matching.LinkResult) models.UnmatchedReport {
	report := models.UnmatchedReport{
		Pairs:         make([]models.PairUnmatched, 0, len(passes)),
		NoIdentifiers: []models.NoIdentifierGroup{},
	}

	for _, r := range passes {
		report.Pairs = append(report.Pairs, models.PairUnmatched{
			Pair:            r.Spec.Pair,
			SourceStage:     r.Spec.SourceStage,
			TargetStage:     r.Spec.TargetStage,
			UnmatchedSource: refs(r.UnmatchedSources),
			UnmatchedTarget: refs(r.UnmatchedTargets),
		})
	}

	for _, g := range groups {
		rec := p.indexer.Index(g.RepresentativeDeal(), g.RepresentativeStage())
		if rec.HasIdentifier() {
			continue
		}
		report.NoIdentifiers = append(report.NoIdentifiers, models.NoIdentifierGroup{
			GroupID: g.ID,
			Kind:    g.Kind(),
			Deal:    rec.Ref(),
		})
	}

	return report
}

func refs(records []*matching.IndexedRecord) []models.DealRef {
	out := make([]models.DealRef, len(records))
	for i, r := range records {
		out[i] = r.Ref()
	}
	return out
}

func buildStats(part *models.DealPartition, result *models.RunResult, passes ...*matching.LinkResult) models.RunStats {
	stats := models.RunStats{
		Sales:            len(part.Sales),
		Logistics:        len(part.Logistics),
		Shipping:         len(part.Shipping),
		Skipped:          part.Skipped,
		Unclassified:     part.Unclassified,
		Duplicates:       part.Duplicates,
		Matches:          make(map[models.PipelinePair]int, len(passes)),
		GroupsByKind:     make(map[models.OrderGroupKind]int),
		ContactsByMethod: make(map[models.MatchMethod]int),
		Recommendations:  make(map[models.Recommendation]int),
	}
	for _, r := range passes {
		stats.Matches[r.Spec.Pair] += len(r.Matches)
	}
	for _, g := range result.OrderGroups {
		stats.GroupsByKind[g.Kind()]++
	}
	for _, c := range result.Contacts {
		stats.ContactsByMethod[c.MatchMethod]++
	}
	for _, s := range result.Rematch {
		stats.Recommendations[s.Recommendation]++
	}
	return stats
}
