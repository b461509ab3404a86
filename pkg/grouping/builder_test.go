package grouping

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/fingerprint"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/models"
)

var baseTime = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func deal(id, name, phone string) models.Deal {
	return models.Deal{ID: id, Name: name, Phone: phone, CreatedAt: baseTime, UpdatedAt: baseTime}
}

type fixture struct {
	sales, logistics, shipping []models.Deal
	input                      Input
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		sales: []models.Deal{
			deal("s1", "Juan Perez", "3001111111"),
			deal("s2", "Laura Diaz", "3002222222"),
			deal("s4", "Pedro Ruiz", "3004444444"),
		},
		logistics: []models.Deal{
			deal("l1", "Juan Perez", "3001111111"),
			deal("l2", "Laura Diaz", "3002222222"),
			deal("l3", "Marta Rios", "3003333333"),
			deal("l5", "Sin Telefono", ""),
		},
		shipping: []models.Deal{
			deal("sh1", "Juan Perez", "3001111111"),
			deal("sh3", "Marta Rios", "3003333333"),
			deal("sh6", "Carlos Mora", "3006666666"),
		},
	}

	ix, err := matching.NewIndexer(matching.DefaultIndexerConfig())
	require.NoError(t, err)
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	linker := matching.NewLinker(logger, matching.NewScorer(matching.DefaultScoreWeights(), matching.OverrideModeMax))

	sales := ix.IndexAll(f.sales, models.PipelineStageSales)
	logistics := ix.IndexAll(f.logistics, models.PipelineStageLogistics)
	shipping := ix.IndexAll(f.shipping, models.PipelineStageShipping)

	ctx := context.Background()
	f.input = Input{
		SalesLogistics:    linker.Link(ctx, logistics, sales, matching.SalesLogisticsSpec(matching.DefaultMatchThreshold)),
		LogisticsShipping: linker.Link(ctx, shipping, logistics, matching.LogisticsShippingSpec(matching.DefaultMatchThreshold)),
	}
	return f
}

func newTestBuilder() *Builder {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewBuilder(logger, fingerprint.NewIDGenerator(fingerprint.IDStrategyDeterministic))
}

func groupsByRepresentative(groups []*models.OrderGroup) map[string]*models.OrderGroup {
	out := make(map[string]*models.OrderGroup, len(groups))
	for _, g := range groups {
		out[g.RepresentativeDeal().ID] = g
	}
	return out
}

func TestBuilder_Build(t *testing.T) {
	f := newFixture(t)

	groups, err := newTestBuilder().Build(context.Background(), f.input)
	require.NoError(t, err)
	require.Len(t, groups, 6)

	byRep := groupsByRepresentative(groups)

	tests := []struct {
		rep        string
		kind       models.OrderGroupKind
		logistics  string
		shipping   string
		confidence float64
	}{
		{rep: "s1", kind: models.OrderGroupKindFull, logistics: "l1", shipping: "sh1", confidence: 0.75},
		{rep: "s2", kind: models.OrderGroupKindSalesLogistics, logistics: "l2", confidence: 0.75},
		{rep: "s4", kind: models.OrderGroupKindSalesOnly},
		{rep: "l3", kind: models.OrderGroupKindLogisticsShipping, logistics: "l3", shipping: "sh3", confidence: 0.75},
		{rep: "l5", kind: models.OrderGroupKindLogisticsOnly, logistics: "l5"},
		{rep: "sh6", kind: models.OrderGroupKindShippingOnly, shipping: "sh6"},
	}

	for _, tt := range tests {
		t.Run(tt.rep, func(t *testing.T) {
			g, ok := byRep[tt.rep]
			require.True(t, ok)
			assert.Equal(t, tt.kind, g.Kind())
			assert.Equal(t, tt.logistics, dealID(g.Logistics))
			assert.Equal(t, tt.shipping, dealID(g.Shipping))
			assert.InDelta(t, tt.confidence, g.Confidence, 1e-9)
			assert.NotEmpty(t, g.ID)
			assert.NotEmpty(t, g.MatchDetail)
		})
	}

	assert.Contains(t, byRep["s1"].MatchDetail, "sales_logistics(75): phone exact, name exact")
	assert.Contains(t, byRep["s1"].MatchDetail, "logistics_shipping(75)")
	assert.Equal(t, "unmatched", byRep["s4"].MatchDetail)
}

func TestBuilder_PartitionCompleteness(t *testing.T) {
	f := newFixture(t)

	groups, err := newTestBuilder().Build(context.Background(), f.input)
	require.NoError(t, err)

	var want, got []string
	for _, set := range [][]models.Deal{f.sales, f.logistics, f.shipping} {
		for _, d := range set {
			want = append(want, d.ID)
		}
	}
	for _, g := range groups {
		for _, d := range g.Deals() {
			got = append(got, d.ID)
		}
	}

	assert.ElementsMatch(t, want, got)
}

func TestBuilder_DeterministicIDs(t *testing.T) {
	f := newFixture(t)
	b := newTestBuilder()

	first, err := b.Build(context.Background(), f.input)
	require.NoError(t, err)
	second, err := b.Build(context.Background(), f.input)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.False(t, seen[first[i].ID], "duplicate id %s", first[i].ID)
		seen[first[i].ID] = true
	}
}

func TestBuilder_OrphanShippingMatchKept(t *testing.T) {
	f := newFixture(t)
	// drop l3 from the sales pass so its shipping match has no logistics group to join
	sl := *f.input.SalesLogistics
	sl.UnmatchedSources = nil
	for _, r := range f.input.SalesLogistics.UnmatchedSources {
		if r.ID() != "l3" {
			sl.UnmatchedSources = append(sl.UnmatchedSources, r)
		}
	}

	groups, err := newTestBuilder().Build(context.Background(), Input{SalesLogistics: &sl, LogisticsShipping: f.input.LogisticsShipping})
	require.NoError(t, err)

	byRep := groupsByRepresentative(groups)
	require.Contains(t, byRep, "sh3")
	assert.Equal(t, models.OrderGroupKindShippingOnly, byRep["sh3"].Kind())
}

func TestBuilder_MissingInput(t *testing.T) {
	_, err := newTestBuilder().Build(context.Background(), Input{SalesLogistics: &matching.LinkResult{}})

	require.Error(t, err)
	assert.True(t, httperror.IsHTTPError(err))
	assert.Equal(t, http.StatusInternalServerError, httperror.GetStatusCode(err))
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 0.6, confidence(60))
	assert.Equal(t, 1.0, confidence(115))
	assert.Equal(t, 0.0, confidence(-5))
}
