package models

import "time"

// MatchMethod records which identifier types tied a contact's orders together
type MatchMethod string

const (
	MatchMethodPhone       MatchMethod = "phone"
	MatchMethodSecondaryID MatchMethod = "secondary_id"
	MatchMethodBoth        MatchMethod = "both"
	MatchMethodNone        MatchMethod = "none"
)

// ContactAddress is one distinct address triple seen for a contact
type ContactAddress struct {
	Address string `json:"address"`
	City    string `json:"city"`
	Region  string `json:"region"`
}

// Key returns the de-duplication key of the triple
func (a ContactAddress) Key() string {
	return a.Address + "|" + a.City + "|" + a.Region
}

// IsEmpty reports whether all parts of the triple are blank
func (a ContactAddress) IsEmpty() bool {
	return a.Address == "" && a.City == "" && a.Region == ""
}

// NormalizedContact is the canonical customer record built from a cluster of order groups
type NormalizedContact struct {
	ID             string           `json:"id"`
	Phone          string           `json:"phone,omitempty"`
	Name           string           `json:"name"`
	Email          string           `json:"email,omitempty"`
	SecondaryID    string           `json:"secondary_id,omitempty"`
	Address        string           `json:"address,omitempty"`
	City           string           `json:"city,omitempty"`
	Region         string           `json:"region,omitempty"`
	Addresses      []ContactAddress `json:"addresses"`
	OrderCount     int              `json:"order_count"`
	FirstOrderDate time.Time        `json:"first_order_date"`
	LastOrderDate  time.Time        `json:"last_order_date"`
	MatchMethod    MatchMethod      `json:"match_method"`
	OrderGroupIDs  []string         `json:"order_group_ids"`
}
