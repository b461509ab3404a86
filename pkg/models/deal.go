package models

import "time"

// PipelineStage classifies a deal into one of the three reconciled pipelines
type PipelineStage string

const (
	// PipelineStageSales is the sales pipeline (where an order is closed)
	PipelineStageSales PipelineStage = "sales"
	// PipelineStageLogistics is the fulfillment pipeline (where an order is prepared)
	PipelineStageLogistics PipelineStage = "logistics"
	// PipelineStageShipping is the last-mile carrier pipeline
	PipelineStageShipping PipelineStage = "shipping"
)

// TimeField selects which deal timestamp a comparison uses
type TimeField string

const (
	TimeFieldCreated TimeField = "created"
	TimeFieldUpdated TimeField = "updated"
)

// Deal is a raw record from the upstream source system.
// Deals are treated as immutable; the engine only works on its own copies.
type Deal struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone,omitempty"`
	Email       string    `json:"email,omitempty"`
	ChatLink    string    `json:"chat_link,omitempty"` // Messaging deep link carrying the secondary id
	Address     string    `json:"address,omitempty"`
	City        string    `json:"city,omitempty"`
	Region      string    `json:"region,omitempty"`
	Amount      *float64  `json:"amount,omitempty"`
	Stage       string    `json:"stage"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Pipeline    string    `json:"pipeline"`
	SubPipeline string    `json:"sub_pipeline"`
}

// Time returns the timestamp selected by field
func (d *Deal) Time(field TimeField) time.Time {
	if field == TimeFieldUpdated {
		return d.UpdatedAt
	}
	return d.CreatedAt
}

// DealPartition holds the ingested deals split by pipeline stage
type DealPartition struct {
	Sales        []Deal `json:"sales"`
	Logistics    []Deal `json:"logistics"`
	Shipping     []Deal `json:"shipping"`
	Skipped      int    `json:"skipped"`      // Pipeline tag did not match the expected pipeline
	Unclassified int    `json:"unclassified"` // Sub-pipeline did not map to any stage
	Duplicates   int    `json:"duplicates"`   // Repeated deal id within a stage; the first record is kept
}

// Total returns the number of deals kept in the partition
func (p *DealPartition) Total() int {
	return len(p.Sales) + len(p.Logistics) + len(p.Shipping)
}
