package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/fingerprint"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/models"
)

func validConfig() Config {
	return Config{
		AppName:               "clover",
		LogLevel:              "info",
		OTLPProtocol:          "grpc",
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

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "unknown override mode", mutate: func(c *Config) { c.OverrideMode = "sum" }, wantErr: true},
		{name: "unknown id strategy", mutate: func(c *Config) { c.IDStrategy = "sequential" }, wantErr: true},
		{name: "threshold over 100", mutate: func(c *Config) { c.MatchThreshold = 101 }, wantErr: true},
		{name: "review tier above auto match", mutate: func(c *Config) { c.RematchReviewFrom = 60 }, wantErr: true},
		{name: "non numeric country code", mutate: func(c *Config) { c.PhoneCountryCode = "+57" }, wantErr: true},
		{name: "signed country code", mutate: func(c *Config) { c.PhoneCountryCode = "-57" }, wantErr: true},
		{name: "non numeric mobile prefix", mutate: func(c *Config) { c.PhoneMobilePrefixes = []string{"+3"} }, wantErr: true},
		{name: "bad stage alias", mutate: func(c *Config) { c.StageAliases = []string{"Empacado"} }, wantErr: true},
		{name: "unknown otlp protocol", mutate: func(c *Config) { c.OTLPProtocol = "udp" }, wantErr: true},
		{name: "bad exclude criteria", mutate: func(c *Config) { c.ExcludeCriteria = `{"stage": {"$like": "x"}}` }, wantErr: true},
		{name: "empty list entries", mutate: func(c *Config) { c.StageAliases = []string{""}; c.TimeLayouts = []string{""} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_EngineOptions(t *testing.T) {
	cfg := validConfig()
	cfg.ExpectedPipeline = "Ventas"
	cfg.LogisticsSubPipelines = []string{"Logística", " bodega "}
	cfg.StageAliases = []string{"Empacado =Empaque"}
	cfg.OverrideMode = "replace"
	cfg.IDStrategy = "random"
	cfg.MatchThreshold = 65
	cfg.RematchTopN = 5
	cfg.ExcludeCriteria = `{"stage": "Cancelado"}`

	opts, err := cfg.EngineOptions()
	require.NoError(t, err)

	assert.Equal(t, "Ventas", opts.Partition.ExpectedPipeline)
	assert.Equal(t, models.PipelineStageLogistics, opts.Partition.SubPipelines["Logística"])
	assert.Equal(t, models.PipelineStageLogistics, opts.Partition.SubPipelines["bodega"])
	assert.Equal(t, models.PipelineStageSales, opts.Partition.SubPipelines["sales"])
	assert.Len(t, opts.Partition.SubPipelines, 4)
	assert.Equal(t, "Empaque", opts.Partition.StageAliases["Empacado"])

	assert.Equal(t, matching.OverrideModeReplace, opts.OverrideMode)
	assert.Equal(t, fingerprint.IDStrategyRandom, opts.IDStrategy)
	assert.Equal(t, 65.0, opts.MatchThreshold)
	assert.Equal(t, 5, opts.Rematch.TopN)
	assert.Equal(t, "57", opts.Indexer.PhoneRules.CountryCode)
	assert.Empty(t, opts.TimeLayouts)
	assert.True(t, opts.Exclude.Matches(map[string]any{"stage": "Cancelado"}))
}

func TestLoad(t *testing.T) {
	t.Setenv("MATCH_THRESHOLD", "70")
	t.Setenv("OVERRIDE_MODE", "replace")
	t.Setenv("EXPECTED_PIPELINE", "Ventas")

	cfg, err := Load("testdata/missing.env")
	require.NoError(t, err)

	assert.Equal(t, 70.0, cfg.MatchThreshold)
	assert.Equal(t, "replace", cfg.OverrideMode)
	assert.Equal(t, "Ventas", cfg.ExpectedPipeline)
	assert.Equal(t, 3, cfg.RematchTopN)
	assert.Equal(t, "deterministic", cfg.IDStrategy)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("OVERRIDE_MODE", "sum")

	_, err := Load("testdata/missing.env")
	assert.Error(t, err)
}

func TestConfig_TracingConfig(t *testing.T) {
	cfg := validConfig()
	cfg.OTLPEndpoint = "collector:4318"
	cfg.OTLPProtocol = "http"

	tc := cfg.TracingConfig()
	assert.Equal(t, "clover", tc.ServiceName)
	assert.Equal(t, "collector:4318", tc.Endpoint)
	assert.Equal(t, "http", tc.Protocol)
}
