// Package clustering groups order groups by customer and materializes one contact per cluster
package clustering

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/fingerprint"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/merging"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const (
	phoneKeyPrefix       = "phone:"
	secondaryIDKeyPrefix = "secondaryId:"
)

// Clusterer builds contacts with union-find over phone and secondary id keys
type Clusterer struct {
	logger  ectologger.Logger
	indexer *matching.Indexer
	ids     *fingerprint.IDGenerator
	merger  *merging.FieldMerger
}

// NewClusterer creates a new Clusterer
func NewClusterer(logger ectologger.Logger, indexer *matching.Indexer, ids *fingerprint.IDGenerator) *Clusterer {
	if ids == nil {
		ids = fingerprint.NewIDGenerator(fingerprint.IDStrategyDeterministic)
	}
	return &Clusterer{
		logger:  logger,
		indexer: indexer,
		ids:     ids,
		merger:  merging.NewFieldMerger(),
	}
}

// member is an order group with the identifiers of its representative deal
type member struct {
	group       *models.OrderGroup
	phone       string
	secondaryID string
}

func (m member) primaryKey() string {
	if m.phone != "" {
		return phoneKeyPrefix + m.phone
	}
	if m.secondaryID != "" {
		return secondaryIDKeyPrefix + m.secondaryID
	}
	return ""
}

// Cluster assigns every group to exactly one contact and stamps group.ContactID.
//
// Two groups share a contact when they are connected through any chain of shared
// phones or secondary ids. Groups without either identifier get a contact of their own.
// Contacts are returned in the order of their first member group.
func (c *Clusterer) Cluster(ctx context.Context, groups []*models.OrderGroup) ([]*models.NormalizedContact, error) {
	ctx, span := tracing.StartSpan(ctx, "clustering.Clusterer.Cluster")
	defer span.End()

	log := c.logger.WithContext(ctx)

	members := make([]member, len(groups))
	keys := newKeySet(len(groups) * 2)
	for i, g := range groups {
		rep := g.RepresentativeDeal()
		if rep == nil {
			return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "order group %s has no deals", g.ID)
		}
		rec := c.indexer.Index(rep, g.RepresentativeStage())
		m := member{group: g, phone: rec.Phone, secondaryID: rec.SecondaryID}
		members[i] = m

		switch {
		case m.phone != "" && m.secondaryID != "":
			keys.union(phoneKeyPrefix+m.phone, secondaryIDKeyPrefix+m.secondaryID)
		case m.phone != "" || m.secondaryID != "":
			keys.id(m.primaryKey())
		}
	}

	var clusters [][]member
	clusterByRoot := make(map[int]int)
	for _, m := range members {
		key := m.primaryKey()
		if key == "" {
			clusters = append(clusters, []member{m})
			continue
		}
		root := keys.root(key)
		idx, ok := clusterByRoot[root]
		if !ok {
			idx = len(clusters)
			clusterByRoot[root] = idx
			clusters = append(clusters, nil)
		}
		clusters[idx] = append(clusters[idx], m)
	}

	contacts := make([]*models.NormalizedContact, 0, len(clusters))
	counts := make(map[string]int)
	conflicts := 0
	for _, cluster := range clusters {
		contact, n := c.materialize(cluster)
		conflicts += n
		for _, m := range cluster {
			m.group.ContactID = contact.ID
		}
		contacts = append(contacts, contact)
		counts[string(contact.MatchMethod)]++
		metrics.RecordContact(string(contact.MatchMethod))
	}

	counts["field_conflicts"] = conflicts
	tracing.SetCounts(span, counts)
	log.WithFields(map[string]any{
		"groups":          len(groups),
		"contacts":        len(contacts),
		"field_conflicts": conflicts,
	}).Debug("Clustered order groups into contacts")

	return contacts, nil
}

// materialize builds the contact of one cluster and returns it with the number of
// fields whose candidate values disagreed
func (c *Clusterer) materialize(cluster []member) (*models.NormalizedContact, int) {
	var deals []*models.Deal
	groupIDs := make([]string, len(cluster))
	hasPhone, hasSecondary := false, false
	var first, last time.Time

	for i, m := range cluster {
		groupIDs[i] = m.group.ID
		deals = append(deals, m.group.Deals()...)
		hasPhone = hasPhone || m.phone != ""
		hasSecondary = hasSecondary || m.secondaryID != ""

		date := m.group.RepresentativeDate()
		if date.IsZero() {
			continue
		}
		if first.IsZero() || date.Before(first) {
			first = date
		}
		if last.IsZero() || date.After(last) {
			last = date
		}
	}

	sort.SliceStable(deals, func(i, j int) bool {
		return deals[i].CreatedAt.After(deals[j].CreatedAt)
	})

	var names, emails, phones, secondaries, streets, cities, regions []merging.FieldValue
	addresses := make([]models.ContactAddress, 0, len(deals))
	for _, d := range deals {
		rec := c.indexer.Index(d, "")
		names = append(names, fieldValue(d, strings.TrimSpace(d.Name)))
		emails = append(emails, fieldValue(d, strings.TrimSpace(d.Email)))
		phones = append(phones, fieldValue(d, rec.Phone))
		secondaries = append(secondaries, fieldValue(d, rec.SecondaryID))
		streets = append(streets, fieldValue(d, d.Address))
		cities = append(cities, fieldValue(d, d.City))
		regions = append(regions, fieldValue(d, d.Region))
		addresses = append(addresses, models.ContactAddress{Address: d.Address, City: d.City, Region: d.Region})
	}

	conflicts := 0
	pick := func(field string, values []merging.FieldValue, strategy merging.Strategy) string {
		v, conflict := c.merger.MergeField(field, values, strategy)
		if conflict != nil {
			conflicts++
		}
		return v
	}

	contact := &models.NormalizedContact{
		ID:          c.ids.New("contact", sortedCopy(groupIDs)...),
		Name:        pick("name", names, merging.StrategyLongest),
		Email:       pick("email", emails, merging.StrategyFirstNonEmpty),
		Phone:       pick("phone", phones, merging.StrategyFirstNonEmpty),
		SecondaryID: pick("secondary_id", secondaries, merging.StrategyFirstNonEmpty),
		Address:     pick("address", streets, merging.StrategyMostRecent),
		City:        pick("city", cities, merging.StrategyMostRecent),
		Region:      pick("region", regions, merging.StrategyMostRecent),
		Addresses: merging.CollectDistinct(addresses,
			models.ContactAddress.Key,
			models.ContactAddress.IsEmpty,
			0),
		OrderCount:     len(cluster),
		FirstOrderDate: first,
		LastOrderDate:  last,
		MatchMethod:    matchMethod(hasPhone, hasSecondary),
		OrderGroupIDs:  groupIDs,
	}

	return contact, conflicts
}

// sortedCopy keeps contact ids independent of group order
func sortedCopy(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}

func fieldValue(d *models.Deal, v string) merging.FieldValue {
	return merging.FieldValue{Value: v, SeenAt: d.CreatedAt, DealID: d.ID}
}

func matchMethod(hasPhone, hasSecondary bool) models.MatchMethod {
	switch {
	case hasPhone && hasSecondary:
		return models.MatchMethodBoth
	case hasPhone:
		return models.MatchMethodPhone
	case hasSecondary:
		return models.MatchMethodSecondaryID
	default:
		return models.MatchMethodNone
	}
}
