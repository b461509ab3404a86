package models

import (
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
)

// OrderGroupKind describes how an order group was assembled.
// It is derived from which deal slots are filled and never stored separately.
type OrderGroupKind string

const (
	OrderGroupKindFull              OrderGroupKind = "full"
	OrderGroupKindSalesLogistics    OrderGroupKind = "sales_logistics"
	OrderGroupKindLogisticsShipping OrderGroupKind = "logistics_shipping"
	// OrderGroupKindSalesShipping only arises on hand-built groups: the builder never links
	// sales to shipping directly, so shipping always arrives through a logistics record
	OrderGroupKindSalesShipping     OrderGroupKind = "sales_shipping"
	OrderGroupKindSalesOnly         OrderGroupKind = "sales_only"
	OrderGroupKindLogisticsOnly     OrderGroupKind = "logistics_only"
	OrderGroupKindShippingOnly      OrderGroupKind = "shipping_only"
	OrderGroupKindEmpty             OrderGroupKind = "empty"
)

// OrderGroup is one logical customer transaction assembled from up to three pipeline records
type OrderGroup struct {
	ID          string  `json:"id"`
	Sales       *Deal   `json:"sales,omitempty"`
	Logistics   *Deal   `json:"logistics,omitempty"`
	Shipping    *Deal   `json:"shipping,omitempty"`
	Confidence  float64 `json:"confidence"`
	MatchDetail string  `json:"match_detail"`
	ContactID   string  `json:"contact_id,omitempty"`
}

// Kind returns the presence pattern of the group's deal slots
func (g *OrderGroup) Kind() OrderGroupKind {
	switch {
	case g.Sales != nil && g.Logistics != nil && g.Shipping != nil:
		return OrderGroupKindFull
	case g.Sales != nil && g.Logistics != nil:
		return OrderGroupKindSalesLogistics
	case g.Logistics != nil && g.Shipping != nil:
		return OrderGroupKindLogisticsShipping
	case g.Sales != nil && g.Shipping != nil:
		return OrderGroupKindSalesShipping
	case g.Sales != nil:
		return OrderGroupKindSalesOnly
	case g.Logistics != nil:
		return OrderGroupKindLogisticsOnly
	case g.Shipping != nil:
		return OrderGroupKindShippingOnly
	default:
		return OrderGroupKindEmpty
	}
}

// RepresentativeDeal returns the deal that speaks for the group.
// Precedence is sales, then logistics, then shipping.
func (g *OrderGroup) RepresentativeDeal() *Deal {
	switch {
	case g.Sales != nil:
		return g.Sales
	case g.Logistics != nil:
		return g.Logistics
	default:
		return g.Shipping
	}
}

// RepresentativeStage returns the pipeline stage of the representative deal
func (g *OrderGroup) RepresentativeStage() PipelineStage {
	switch {
	case g.Sales != nil:
		return PipelineStageSales
	case g.Logistics != nil:
		return PipelineStageLogistics
	default:
		return PipelineStageShipping
	}
}

// RepresentativeDate is the creation time of the representative deal
func (g *OrderGroup) RepresentativeDate() time.Time {
	d := g.RepresentativeDeal()
	if d == nil {
		return time.Time{}
	}
	return d.CreatedAt
}

// Deals returns the non-nil deals of the group in slot order
func (g *OrderGroup) Deals() []*Deal {
	deals := make([]*Deal, 0, 3)
	for _, d := range []*Deal{g.Sales, g.Logistics, g.Shipping} {
		if d != nil {
			deals = append(deals, d)
		}
	}
	return deals
}

// Validate checks the structural invariants of a group.
// A failure here is a bug in group assembly, not bad input.
func (g *OrderGroup) Validate() error {
	if g.Kind() == OrderGroupKindEmpty {
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "order group %s has no deals", g.ID)
	}
	if g.Confidence < 0 || g.Confidence > 1 {
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "order group %s has confidence %v outside [0,1]", g.ID, g.Confidence)
	}
	return nil
}
