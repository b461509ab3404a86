package ingest

import (
	"context"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// PartitionConfig controls how deals are split into stages
type PartitionConfig struct {
	// ExpectedPipeline is the top-level pipeline tag to keep; empty keeps every deal
	ExpectedPipeline string
	// SubPipelines maps sub-pipeline labels to stages; labels compare case and accent insensitive
	SubPipelines map[string]models.PipelineStage
	// StageAliases maps duplicate stage spellings to their canonical label
	StageAliases map[string]string
}

// DefaultPartitionConfig accepts every pipeline and the plain stage names as sub-pipelines
func DefaultPartitionConfig() PartitionConfig {
	return PartitionConfig{
		SubPipelines: map[string]models.PipelineStage{
			string(models.PipelineStageSales):     models.PipelineStageSales,
			string(models.PipelineStageLogistics): models.PipelineStageLogistics,
			string(models.PipelineStageShipping):  models.PipelineStageShipping,
		},
		StageAliases: normalizers.DefaultStageAliases(),
	}
}

// Partitioner splits a deal batch by pipeline stage
type Partitioner struct {
	logger       ectologger.Logger
	expected     string
	subPipelines map[string]models.PipelineStage
	stages       *normalizers.StageNormalizer
}

// NewPartitioner creates a new Partitioner
func NewPartitioner(logger ectologger.Logger, cfg PartitionConfig) *Partitioner {
	subs := make(map[string]models.PipelineStage, len(cfg.SubPipelines))
	for label, stage := range cfg.SubPipelines {
		subs[labelKey(label)] = stage
	}
	return &Partitioner{
		logger:       logger,
		expected:     labelKey(cfg.ExpectedPipeline),
		subPipelines: subs,
		stages:       normalizers.NewStageNormalizer(cfg.StageAliases),
	}
}

// Partition copies every kept deal into its stage with the stage label normalized.
// Deals from another pipeline are skipped and deals with an unknown sub-pipeline are
// counted as unclassified; neither is an error. A deal id seen twice in the same stage
// keeps its first record and counts the rest as duplicates. The input slice is not modified.
func (p *Partitioner) Partition(ctx context.Context, deals []models.Deal) *models.DealPartition {
	ctx, span := tracing.StartSpan(ctx, "ingest.Partitioner.Partition")
	defer span.End()

	log := p.logger.WithContext(ctx)

	part := &models.DealPartition{}
	seen := make(map[models.PipelineStage]map[string]struct{}, 3)
	for _, d := range deals {
		if p.expected != "" && labelKey(d.Pipeline) != p.expected {
			part.Skipped++
			continue
		}

		stage, ok := p.subPipelines[labelKey(d.SubPipeline)]
		if !ok {
			part.Unclassified++
			log.WithFields(map[string]any{
				"deal_id":      d.ID,
				"sub_pipeline": d.SubPipeline,
			}).Debug("Deal has an unknown sub-pipeline")
			continue
		}

		if seen[stage] == nil {
			seen[stage] = make(map[string]struct{})
		}
		if _, dup := seen[stage][d.ID]; dup {
			part.Duplicates++
			log.WithFields(map[string]any{
				"deal_id": d.ID,
				"stage":   stage,
			}).Warn("Dropping deal with a repeated id")
			continue
		}
		seen[stage][d.ID] = struct{}{}

		d.Stage = p.stages.Normalize(d.Stage)
		switch stage {
		case models.PipelineStageSales:
			part.Sales = append(part.Sales, d)
		case models.PipelineStageLogistics:
			part.Logistics = append(part.Logistics, d)
		case models.PipelineStageShipping:
			part.Shipping = append(part.Shipping, d)
		}
	}

	metrics.RecordIngest(string(models.PipelineStageSales), len(part.Sales))
	metrics.RecordIngest(string(models.PipelineStageLogistics), len(part.Logistics))
	metrics.RecordIngest(string(models.PipelineStageShipping), len(part.Shipping))
	metrics.RecordSkipped("pipeline_mismatch", part.Skipped)
	metrics.RecordSkipped("unclassified", part.Unclassified)
	metrics.RecordSkipped("duplicate_id", part.Duplicates)

	counts := map[string]int{
		"sales":        len(part.Sales),
		"logistics":    len(part.Logistics),
		"shipping":     len(part.Shipping),
		"skipped":      part.Skipped,
		"unclassified": part.Unclassified,
		"duplicates":   part.Duplicates,
	}
	tracing.SetCounts(span, counts)
	log.WithFields(map[string]any{
		"deals":  len(deals),
		"counts": counts,
	}).Info("Partitioned deals by pipeline stage")

	return part
}

func labelKey(label string) string {
	return strings.ToLower(strings.TrimSpace(normalizers.FoldAccents(label)))
}
