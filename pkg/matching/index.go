package matching

import (
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
)

// DefaultPhoneTailDigits is how many trailing phone digits the relaxed pass compares
const DefaultPhoneTailDigits = 8

// IndexedRecord wraps a deal with the identifiers derived from it.
// The deal itself is never modified.
type IndexedRecord struct {
	Deal        *models.Deal
	Stage       models.PipelineStage
	Phone       string // Normalized phone, "" when unknown
	PhoneTail   string // Last digits of Phone used for partial matching
	SecondaryID string // Numeric chat id, "" when unknown
	NormName    string
	NormAddress string
}

// ID returns the wrapped deal's id
func (r *IndexedRecord) ID() string {
	return r.Deal.ID
}

// Ref returns the report summary of the record
func (r *IndexedRecord) Ref() models.DealRef {
	return models.NewDealRef(r.Deal, r.Stage, r.Phone)
}

// HasIdentifier reports whether the record can be found through any identifier index
func (r *IndexedRecord) HasIdentifier() bool {
	return r.Phone != "" || r.SecondaryID != ""
}

// Indexer derives normalized identifiers for deals
type Indexer struct {
	phoneRules normalizers.PhoneRules
	secondary  *normalizers.SecondaryIDExtractor
	tailDigits int
}

// IndexerConfig configures identifier derivation
type IndexerConfig struct {
	PhoneRules         normalizers.PhoneRules
	SecondaryIDPattern string
	PhoneTailDigits    int
}

// DefaultIndexerConfig returns the default identifier rules
func DefaultIndexerConfig() IndexerConfig {
	return IndexerConfig{
		PhoneRules:         normalizers.DefaultPhoneRules(),
		SecondaryIDPattern: normalizers.DefaultSecondaryIDPattern,
		PhoneTailDigits:    DefaultPhoneTailDigits,
	}
}

// NewIndexer creates an indexer, failing only on an invalid secondary id pattern
func NewIndexer(cfg IndexerConfig) (*Indexer, error) {
	pattern := cfg.SecondaryIDPattern
	if pattern == "" {
		pattern = normalizers.DefaultSecondaryIDPattern
	}
	secondary, err := normalizers.NewSecondaryIDExtractor(pattern)
	if err != nil {
		return nil, err
	}

	tail := cfg.PhoneTailDigits
	if tail <= 0 {
		tail = DefaultPhoneTailDigits
	}

	return &Indexer{
		phoneRules: cfg.PhoneRules,
		secondary:  secondary,
		tailDigits: tail,
	}, nil
}

// Index wraps a single deal
func (ix *Indexer) Index(deal *models.Deal, stage models.PipelineStage) *IndexedRecord {
	phone := ix.phoneRules.Normalize(deal.Phone)
	return &IndexedRecord{
		Deal:        deal,
		Stage:       stage,
		Phone:       phone,
		PhoneTail:   normalizers.PhoneTail(phone, ix.tailDigits),
		SecondaryID: ix.secondary.Extract(deal.ChatLink),
		NormName:    normalizers.NormalizeName(deal.Name),
		NormAddress: normalizers.NormalizeAddress(deal.Address),
	}
}

// IndexAll wraps every deal of a stage, preserving input order
func (ix *Indexer) IndexAll(deals []models.Deal, stage models.PipelineStage) []*IndexedRecord {
	records := make([]*IndexedRecord, len(deals))
	for i := range deals {
		records[i] = ix.Index(&deals[i], stage)
	}
	return records
}

// TargetIndex is a hash index over a target record set
type TargetIndex struct {
	byPhone     map[string][]*IndexedRecord
	byTail      map[string][]*IndexedRecord
	bySecondary map[string][]*IndexedRecord
}

// NewTargetIndex indexes targets by phone and secondary id, and by phone tail when withTail is set
func NewTargetIndex(targets []*IndexedRecord, withTail bool) *TargetIndex {
	idx := &TargetIndex{
		byPhone:     make(map[string][]*IndexedRecord),
		bySecondary: make(map[string][]*IndexedRecord),
	}
	if withTail {
		idx.byTail = make(map[string][]*IndexedRecord)
	}

	for _, t := range targets {
		if t.Phone != "" {
			idx.byPhone[t.Phone] = append(idx.byPhone[t.Phone], t)
		}
		if withTail && t.PhoneTail != "" {
			idx.byTail[t.PhoneTail] = append(idx.byTail[t.PhoneTail], t)
		}
		if t.SecondaryID != "" {
			idx.bySecondary[t.SecondaryID] = append(idx.bySecondary[t.SecondaryID], t)
		}
	}

	return idx
}

// Candidates returns the targets reachable from source through any index,
// de-duplicated by record in discovery order (phone, tail, secondary id).
func (idx *TargetIndex) Candidates(source *IndexedRecord) []*IndexedRecord {
	seen := make(map[*IndexedRecord]struct{})
	var out []*IndexedRecord

	add := func(bucket []*IndexedRecord) {
		for _, t := range bucket {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}

	if source.Phone != "" {
		add(idx.byPhone[source.Phone])
	}
	if idx.byTail != nil && source.PhoneTail != "" {
		add(idx.byTail[source.PhoneTail])
	}
	if source.SecondaryID != "" {
		add(idx.bySecondary[source.SecondaryID])
	}

	return out
}
