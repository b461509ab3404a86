package models

// PipelinePair names the two stages a linking pass tried to connect
type PipelinePair string

const (
	PipelinePairSalesLogistics    PipelinePair = "sales_logistics"
	PipelinePairLogisticsShipping PipelinePair = "logistics_shipping"
)

// DealRef is the traceability summary of a deal used in reports
type DealRef struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Phone string        `json:"phone,omitempty"`
	Stage string        `json:"stage"`
	From  PipelineStage `json:"pipeline_stage"`
}

// NewDealRef summarizes a deal for report output
func NewDealRef(d *Deal, stage PipelineStage, normalizedPhone string) DealRef {
	phone := normalizedPhone
	if phone == "" {
		phone = d.Phone
	}
	return DealRef{ID: d.ID, Name: d.Name, Phone: phone, Stage: d.Stage, From: stage}
}

// PairUnmatched lists the records one linking pass left unmatched
type PairUnmatched struct {
	Pair            PipelinePair  `json:"pair"`
	SourceStage     PipelineStage `json:"source_stage"`
	TargetStage     PipelineStage `json:"target_stage"`
	UnmatchedSource []DealRef     `json:"unmatched_source"`
	UnmatchedTarget []DealRef     `json:"unmatched_target"`
}

// NoIdentifierGroup is a group whose representative deal has neither a phone nor a secondary id
type NoIdentifierGroup struct {
	GroupID string         `json:"group_id"`
	Kind    OrderGroupKind `json:"kind"`
	Deal    DealRef        `json:"deal"`
}

// UnmatchedReport is the traceability output of the primary pass
type UnmatchedReport struct {
	Pairs         []PairUnmatched     `json:"pairs"`
	NoIdentifiers []NoIdentifierGroup `json:"no_identifiers"`
}

// Recommendation is the review tier of a rematch suggestion
type Recommendation string

const (
	RecommendationAutoMatch      Recommendation = "auto_match"
	RecommendationReview         Recommendation = "review"
	RecommendationTrulyUnmatched Recommendation = "truly_unmatched"
)

// RematchCandidate is one scored candidate of the relaxed second pass
type RematchCandidate struct {
	Deal             DealRef  `json:"deal"`
	Score            float64  `json:"score"`
	Details          []string `json:"details"`
	TimeDeltaSeconds float64  `json:"time_delta_seconds"`
	AlreadyMatched   bool     `json:"already_matched"`
}

// RematchSuggestion is the ranked result for one record left unmatched by the primary pass.
// Suggestions never change the primary pass output.
type RematchSuggestion struct {
	Pair           PipelinePair       `json:"pair"`
	Record         DealRef            `json:"record"`
	TargetStage    PipelineStage      `json:"target_stage"`
	Candidates     []RematchCandidate `json:"candidates"`
	Best           *RematchCandidate  `json:"best,omitempty"`
	Recommendation Recommendation     `json:"recommendation"`
	Conflict       bool               `json:"conflict"` // Best candidate is already claimed by the primary pass
}

// RunStats counts what happened during a run
type RunStats struct {
	Sales            int                    `json:"sales"`
	Logistics        int                    `json:"logistics"`
	Shipping         int                    `json:"shipping"`
	Skipped          int                    `json:"skipped"`
	Unclassified     int                    `json:"unclassified"`
	Duplicates       int                    `json:"duplicates"` // Repeated deal ids dropped per stage
	Excluded         int                    `json:"excluded"` // Raw records dropped by the exclusion filter
	Rejected         int                    `json:"rejected"` // Raw records that could not be decoded
	Matches          map[PipelinePair]int   `json:"matches"`
	GroupsByKind     map[OrderGroupKind]int `json:"groups_by_kind"`
	ContactsByMethod map[MatchMethod]int    `json:"contacts_by_method"`
	Recommendations  map[Recommendation]int `json:"recommendations"`
}

// RunResult holds every output artifact of a reconciliation run
type RunResult struct {
	Fingerprint string               `json:"fingerprint"`
	Contacts    []*NormalizedContact `json:"contacts"`
	OrderGroups []*OrderGroup        `json:"order_groups"`
	Unmatched   UnmatchedReport      `json:"unmatched"`
	Rematch     []*RematchSuggestion `json:"rematch"`
	Stats       RunStats             `json:"stats"`
}
