// Package ingest decodes raw source records into deals and partitions them by pipeline stage
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/extractor"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// FieldMap holds the extractor path of every deal field in a raw record
type FieldMap struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	ChatLink    string `json:"chat_link"`
	Address     string `json:"address"`
	City        string `json:"city"`
	Region      string `json:"region"`
	Amount      string `json:"amount"`
	Stage       string `json:"stage"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
	Pipeline    string `json:"pipeline"`
	SubPipeline string `json:"sub_pipeline"`
}

// DefaultFieldMap maps a flat export where keys equal the deal's json names
func DefaultFieldMap() FieldMap {
	return FieldMap{
		ID:          "id",
		Name:        "name",
		Phone:       "phone",
		Email:       "email",
		ChatLink:    "chat_link",
		Address:     "address",
		City:        "city",
		Region:      "region",
		Amount:      "amount",
		Stage:       "stage",
		CreatedAt:   "created_at",
		UpdatedAt:   "updated_at",
		Pipeline:    "pipeline",
		SubPipeline: "sub_pipeline",
	}
}

// Decoder turns raw records into deals
type Decoder struct {
	logger    ectologger.Logger
	fields    FieldMap
	extractor *extractor.Extractor
}

// NewDecoder creates a new Decoder
func NewDecoder(logger ectologger.Logger, fields FieldMap, ex *extractor.Extractor) *Decoder {
	if ex == nil {
		ex = extractor.New()
	}
	return &Decoder{logger: logger, fields: fields, extractor: ex}
}

// Decode converts every record it can. Records that fail to decode are logged,
// counted and left out; they never abort the batch.
func (d *Decoder) Decode(ctx context.Context, records []map[string]any) ([]models.Deal, int) {
	ctx, span := tracing.StartSpan(ctx, "ingest.Decoder.Decode")
	defer span.End()

	log := d.logger.WithContext(ctx)

	deals := make([]models.Deal, 0, len(records))
	rejected := 0
	for i, raw := range records {
		deal, err := d.DecodeOne(raw)
		if err != nil {
			rejected++
			log.WithError(err).WithField("record_index", i).Warn("Skipping undecodable record")
			continue
		}
		deals = append(deals, deal)
	}

	metrics.RecordSkipped("decode_error", rejected)
	tracing.SetCounts(span, map[string]int{"decoded": len(deals), "rejected": rejected})

	return deals, rejected
}

// DecodeOne converts a single record. Only a missing id or an unreadable
// timestamp or amount is an error; every other field degrades to empty.
func (d *Decoder) DecodeOne(raw map[string]any) (models.Deal, error) {
	var deal models.Deal
	ex := d.extractor

	id, err := ex.ExtractString(raw, d.fields.ID)
	if err != nil {
		return deal, fmt.Errorf("id: %w", err)
	}
	if id == "" {
		return deal, fmt.Errorf("record has no id at %q", d.fields.ID)
	}
	deal.ID = id

	for _, f := range []struct {
		path string
		dst  *string
	}{
		{d.fields.Name, &deal.Name},
		{d.fields.Phone, &deal.Phone},
		{d.fields.Email, &deal.Email},
		{d.fields.ChatLink, &deal.ChatLink},
		{d.fields.Address, &deal.Address},
		{d.fields.City, &deal.City},
		{d.fields.Region, &deal.Region},
		{d.fields.Stage, &deal.Stage},
		{d.fields.Pipeline, &deal.Pipeline},
		{d.fields.SubPipeline, &deal.SubPipeline},
	} {
		if f.path == "" {
			continue
		}
		// A wrong-typed optional field is treated as absent
		if s, err := ex.ExtractString(raw, f.path); err == nil {
			*f.dst = s
		}
	}

	if d.fields.Amount != "" {
		if deal.Amount, err = ex.ExtractFloat(raw, d.fields.Amount); err != nil {
			return deal, fmt.Errorf("deal %s amount: %w", id, err)
		}
	}
	for _, f := range []struct {
		name string
		path string
		dst  *time.Time
	}{
		{"created_at", d.fields.CreatedAt, &deal.CreatedAt},
		{"updated_at", d.fields.UpdatedAt, &deal.UpdatedAt},
	} {
		if f.path == "" {
			continue
		}
		if *f.dst, err = ex.ExtractTime(raw, f.path); err != nil {
			return deal, fmt.Errorf("deal %s %s: %w", id, f.name, err)
		}
	}

	return deal, nil
}
