package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/pkg/export"
	"github.com/Ramsey-B/clover/pkg/logging"
)

const records = `[
  {"id": "S1", "name": "Juan Perez", "phone": "3001234567", "pipeline": "Ventas", "sub_pipeline": "sales", "created_at": "2025-03-01T09:00:00Z", "updated_at": "2025-03-01T09:10:00Z"},
  {"id": "L1", "name": "Juan Perez", "phone": "300 123 4567", "pipeline": "Ventas", "sub_pipeline": "logistics", "created_at": "2025-03-01T09:30:00Z"}
]`

func testConfig() config.Config {
	return config.Config{
		AppName:               "clover",
		LogLevel:              "info",
		OTLPProtocol:          "grpc",
		ExpectedPipeline:      "Ventas",
		SalesSubPipelines:     []string{"sales"},
		LogisticsSubPipelines: []string{"logistics"},
		ShippingSubPipelines:  []string{"shipping"},
		PhoneCountryCode:      "57",
		PhoneNationalLength:   10,
		PhoneMobilePrefixes:   []string{"3"},
		PhoneLossyFallback:    true,
		PhoneTailDigits:       8,
		MatchThreshold:        60,
		OverrideMode:          "max",
		RematchAutoMatchAbove: 55,
		RematchReviewFrom:     35,
		RematchTopN:           3,
		IDStrategy:            "deterministic",
	}
}

func TestRun_JSONToStdout(t *testing.T) {
	var out bytes.Buffer
	flags := runFlags{input: "-", output: "-"}

	err := run(context.Background(), logging.Nop(), testConfig(), flags, strings.NewReader(records), &out)
	require.NoError(t, err)

	var result struct {
		OrderGroups []struct {
			Confidence float64 `json:"confidence"`
		} `json:"order_groups"`
		Contacts []map[string]any `json:"contacts"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	require.Len(t, result.OrderGroups, 1)
	// phone exact + name exact + temporal(<1h)
	assert.InDelta(t, 0.75, result.OrderGroups[0].Confidence, 1e-9)
	assert.Len(t, result.Contacts, 1)
}

func TestRun_StdoutStaysValidJSONWithLogging(t *testing.T) {
	logger, err := logging.New("debug", false, "clover")
	require.NoError(t, err)

	var out bytes.Buffer
	flags := runFlags{input: "-", output: "-"}
	require.NoError(t, run(context.Background(), logger, testConfig(), flags, strings.NewReader(records), &out))

	var result map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Contains(t, result, "order_groups")
}

func TestRun_WorkbookFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "deals.json")
	output := filepath.Join(dir, "result.xlsx")
	require.NoError(t, os.WriteFile(input, []byte(records), 0o600))

	flags := runFlags{input: input, output: output}
	require.NoError(t, run(context.Background(), logging.Nop(), testConfig(), flags, nil, nil))

	f, err := excelize.OpenFile(output)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(export.SheetOrderGroups)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "sales_logistics", rows[1][1])
}

func TestRun_MissingInput(t *testing.T) {
	flags := runFlags{input: filepath.Join(t.TempDir(), "missing.json"), output: "-"}
	err := run(context.Background(), logging.Nop(), testConfig(), flags, nil, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestOutputFormat(t *testing.T) {
	assert.Equal(t, export.FormatExcel, outputFormat("", "out.XLSX"))
	assert.Equal(t, export.FormatJSON, outputFormat("", "-"))
	assert.Equal(t, export.FormatExcel, outputFormat("XLSX", "-"))
}

func TestNewRootCommand(t *testing.T) {
	root := NewRootCommand()
	cmd, _, err := root.Find([]string{"run"})
	require.NoError(t, err)
	assert.Equal(t, "run", cmd.Name())
	assert.NotNil(t, cmd.Flags().Lookup("input"))
	assert.NotNil(t, root.PersistentFlags().Lookup("env"))
}
