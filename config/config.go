package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/Gobusters/ectoenv"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/Ramsey-B/clover/pkg/criteria"
	"github.com/Ramsey-B/clover/pkg/fingerprint"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/processor"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

type Config struct {
	AppName    string `env:"APP_NAME" env-default:"clover"`
	LogLevel   string `env:"LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
	PrettyLogs bool   `env:"PRETTY_LOGS" env-default:"false"`

	// Tracing
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:""` // Empty disables span export
	OTLPProtocol string `env:"OTEL_EXPORTER_OTLP_PROTOCOL" env-default:"grpc" validate:"oneof=grpc http"`
	OTLPInsecure bool   `env:"OTEL_EXPORTER_OTLP_INSECURE" env-default:"true"`

	// Partitioning
	ExpectedPipeline      string   `env:"EXPECTED_PIPELINE" env-default:""` // Empty accepts every pipeline
	SalesSubPipelines     []string `env:"SALES_SUB_PIPELINES" env-default:"sales"`
	LogisticsSubPipelines []string `env:"LOGISTICS_SUB_PIPELINES" env-default:"logistics"`
	ShippingSubPipelines  []string `env:"SHIPPING_SUB_PIPELINES" env-default:"shipping"`
	StageAliases          []string `env:"STAGE_ALIASES" env-default:""` // from=to pairs, added to the built-in aliases
	ExcludeCriteria       string   `env:"EXCLUDE_CRITERIA" env-default:""` // JSON criteria; matching raw records are dropped

	// Identifiers
	PhoneCountryCode    string   `env:"PHONE_COUNTRY_CODE" env-default:"57" validate:"required,number"`
	PhoneNationalLength int      `env:"PHONE_NATIONAL_LENGTH" env-default:"10" validate:"gte=4,lte=15"`
	PhoneMobilePrefixes []string `env:"PHONE_MOBILE_PREFIXES" env-default:"3" validate:"dive,number"`
	PhoneLossyFallback  bool     `env:"PHONE_LOSSY_FALLBACK" env-default:"true"`
	PhoneTailDigits     int      `env:"PHONE_TAIL_DIGITS" env-default:"8" validate:"gte=4,lte=15"`
	SecondaryIDPattern  string   `env:"SECONDARY_ID_PATTERN" env-default:""` // Empty uses the built-in chat link pattern

	// Matching
	MatchThreshold        float64 `env:"MATCH_THRESHOLD" env-default:"60" validate:"gte=0,lte=100"`
	OverrideMode          string  `env:"OVERRIDE_MODE" env-default:"max" validate:"oneof=max replace"`
	RematchAutoMatchAbove float64 `env:"REMATCH_AUTO_MATCH_ABOVE" env-default:"55" validate:"gte=0,lte=100"`
	RematchReviewFrom     float64 `env:"REMATCH_REVIEW_FROM" env-default:"35" validate:"gte=0,ltefield=RematchAutoMatchAbove"`
	RematchTopN           int     `env:"REMATCH_TOP_N" env-default:"3" validate:"gte=1,lte=20"`

	// Output
	IDStrategy  string   `env:"ID_STRATEGY" env-default:"deterministic" validate:"oneof=deterministic random"`
	TimeLayouts []string `env:"TIME_LAYOUTS" env-default:""` // Empty uses the extractor defaults
}

// Load reads the optional env files, binds the environment and validates the result.
// A missing env file is not an error.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load env file: %w", err)
	}

	var cfg Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to bind environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations
func (c Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.stageAliases(); err != nil {
		return err
	}
	if _, err := criteria.ParseJSON(c.ExcludeCriteria); err != nil {
		return fmt.Errorf("invalid config: EXCLUDE_CRITERIA: %w", err)
	}
	return nil
}

// EngineOptions converts the config into processor options
func (c Config) EngineOptions() (processor.Options, error) {
	opts := processor.DefaultOptions()

	opts.Indexer.PhoneRules = normalizers.PhoneRules{
		CountryCode:    c.PhoneCountryCode,
		NationalLength: c.PhoneNationalLength,
		MobilePrefixes: compact(c.PhoneMobilePrefixes),
		LossyFallback:  c.PhoneLossyFallback,
	}
	opts.Indexer.PhoneTailDigits = c.PhoneTailDigits
	if c.SecondaryIDPattern != "" {
		opts.Indexer.SecondaryIDPattern = c.SecondaryIDPattern
	}

	opts.MatchThreshold = c.MatchThreshold
	opts.OverrideMode = matching.OverrideMode(c.OverrideMode)
	opts.Rematch.AutoMatchAbove = c.RematchAutoMatchAbove
	opts.Rematch.ReviewFrom = c.RematchReviewFrom
	opts.Rematch.TopN = c.RematchTopN

	opts.Partition.ExpectedPipeline = c.ExpectedPipeline
	opts.Partition.SubPipelines = make(map[string]models.PipelineStage)
	for stage, labels := range map[models.PipelineStage][]string{
		models.PipelineStageSales:     c.SalesSubPipelines,
		models.PipelineStageLogistics: c.LogisticsSubPipelines,
		models.PipelineStageShipping:  c.ShippingSubPipelines,
	} {
		for _, label := range compact(labels) {
			opts.Partition.SubPipelines[label] = stage
		}
	}

	aliases, err := c.stageAliases()
	if err != nil {
		return processor.Options{}, err
	}
	for from, to := range aliases {
		opts.Partition.StageAliases[from] = to
	}

	if opts.Exclude, err = criteria.ParseJSON(c.ExcludeCriteria); err != nil {
		return processor.Options{}, err
	}

	opts.TimeLayouts = compact(c.TimeLayouts)
	opts.IDStrategy = fingerprint.IDStrategy(c.IDStrategy)

	return opts, nil
}

// TracingConfig returns the span exporter settings
func (c Config) TracingConfig() tracing.ExporterConfig {
	return tracing.ExporterConfig{
		ServiceName: c.AppName,
		Endpoint:    c.OTLPEndpoint,
		Protocol:    c.OTLPProtocol,
		Insecure:    c.OTLPInsecure,
	}
}

func (c Config) stageAliases() (map[string]string, error) {
	aliases := make(map[string]string)
	for _, pair := range compact(c.StageAliases) {
		from, to, ok := strings.Cut(pair, "=")
		from, to = strings.TrimSpace(from), strings.TrimSpace(to)
		if !ok || from == "" || to == "" {
			return nil, fmt.Errorf("invalid config: stage alias %q must look like from=to", pair)
		}
		aliases[from] = to
	}
	return aliases, nil
}

// compact trims entries and drops blanks left by empty list defaults
func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
