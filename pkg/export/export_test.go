package export

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Ramsey-B/clover/pkg/models"
)

func testResult() *models.RunResult {
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	sale := &models.Deal{ID: "S1", Name: "Juan Perez", Stage: "Pendiente de Envio", CreatedAt: created}
	logistics := &models.Deal{ID: "L1", Name: "Juan Perez", CreatedAt: created.Add(time.Hour)}
	walkIn := &models.Deal{ID: "S3", Name: "Cliente Mostrador", CreatedAt: created}

	full := &models.OrderGroup{
		ID: "g1", Sales: sale, Logistics: logistics,
		Confidence: 0.75, MatchDetail: "phone(50): +573001234567", ContactID: "c1",
	}
	lonely := &models.OrderGroup{ID: "g2", Sales: walkIn, MatchDetail: "unmatched", ContactID: "c2"}

	return &models.RunResult{
		Fingerprint: "abc",
		Contacts: []*models.NormalizedContact{
			{
				ID: "c1", Name: "Juan Perez", Phone: "+573001234567",
				Addresses:      []models.ContactAddress{{Address: "Cra 7 # 45-10", City: "Bogota"}},
				OrderCount:     1,
				FirstOrderDate: created,
				LastOrderDate:  created,
				MatchMethod:    models.MatchMethodPhone,
				OrderGroupIDs:  []string{"g1"},
			},
			{ID: "c2", Name: "Cliente Mostrador", OrderCount: 1, MatchMethod: models.MatchMethodNone, OrderGroupIDs: []string{"g2"}},
		},
		OrderGroups: []*models.OrderGroup{full, lonely},
		Unmatched: models.UnmatchedReport{
			Pairs: []models.PairUnmatched{{
				Pair:            models.PipelinePairSalesLogistics,
				UnmatchedTarget: []models.DealRef{models.NewDealRef(walkIn, models.PipelineStageSales, "")},
			}},
			NoIdentifiers: []models.NoIdentifierGroup{{
				GroupID: "g2",
				Kind:    models.OrderGroupKindSalesOnly,
				Deal:    models.NewDealRef(walkIn, models.PipelineStageSales, ""),
			}},
		},
		Rematch: []*models.RematchSuggestion{
			{
				Pair:           models.PipelinePairSalesLogistics,
				Record:         models.NewDealRef(walkIn, models.PipelineStageSales, ""),
				Recommendation: models.RecommendationTrulyUnmatched,
			},
		},
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, testResult()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "abc", decoded["fingerprint"])
	assert.Len(t, decoded["contacts"], 2)
	assert.Len(t, decoded["order_groups"], 2)
}

func TestWriteWorkbook(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, testResult()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetContacts, SheetOrderGroups, SheetUnmatched, SheetNoIdentifiers, SheetRematch}, f.GetSheetList())

	contacts, err := f.GetRows(SheetContacts)
	require.NoError(t, err)
	require.Len(t, contacts, 3)
	assert.Equal(t, "id", contacts[0][0])
	assert.Equal(t, []string{"c1", "Juan Perez", "+573001234567"}, contacts[1][:3])
	assert.Equal(t, "Cra 7 # 45-10, Bogota", contacts[1][8])
	assert.Equal(t, "2025-03-01T09:00:00Z", contacts[1][10])

	groups, err := f.GetRows(SheetOrderGroups)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, []string{"g1", "sales_logistics", "c1", "S1", "L1", ""}, groups[1][:6])
	assert.Equal(t, "0.75", groups[1][6])
	assert.Equal(t, "unmatched", groups[2][7])

	unmatched, err := f.GetRows(SheetUnmatched)
	require.NoError(t, err)
	require.Len(t, unmatched, 2)
	assert.Equal(t, []string{"sales_logistics", "target", "sales", "S3"}, unmatched[1][:4])

	noIDs, err := f.GetRows(SheetNoIdentifiers)
	require.NoError(t, err)
	require.Len(t, noIDs, 2)
	assert.Equal(t, "g2", noIDs[1][0])

	rematch, err := f.GetRows(SheetRematch)
	require.NoError(t, err)
	require.Len(t, rematch, 2)
	assert.Equal(t, "truly_unmatched", rematch[1][3])
}

func TestWrite_UnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Write(&buf, Format("csv"), testResult()))
}
