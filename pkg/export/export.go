// Package export writes run results as JSON or as an xlsx workbook
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Ramsey-B/clover/pkg/models"
)

// Format is an output format of a run result
type Format string

const (
	FormatJSON  Format = "json"
	FormatExcel Format = "xlsx"
)

// Sheet names of the workbook, in order
const (
	SheetContacts      = "contacts"
	SheetOrderGroups   = "order_groups"
	SheetUnmatched     = "unmatched"
	SheetNoIdentifiers = "no_identifiers"
	SheetRematch       = "rematch"
)

// Write writes the result in the given format
func Write(w io.Writer, format Format, result *models.RunResult) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, result)
	case FormatExcel:
		return WriteWorkbook(w, result)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// WriteJSON writes the whole result as indented JSON
func WriteJSON(w io.Writer, result *models.RunResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

type sheet struct {
	name    string
	headers []any
	rows    [][]any
}

// WriteWorkbook writes one sheet per reviewable artifact of the result
func WriteWorkbook(w io.Writer, result *models.RunResult) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	sheets := []sheet{
		contactsSheet(result.Contacts),
		orderGroupsSheet(result.OrderGroups),
		unmatchedSheet(result.Unmatched),
		noIdentifiersSheet(result.Unmatched.NoIdentifiers),
		rematchSheet(result.Rematch),
	}

	for i, s := range sheets {
		index, err := f.NewSheet(s.name)
		if err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", s.name, err)
		}
		if i == 0 {
			f.SetActiveSheet(index)
		}
		if err := writeRows(f, s, headerStyle); err != nil {
			return err
		}
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to delete default sheet: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, s sheet, headerStyle int) error {
	if err := f.SetSheetRow(s.name, "A1", &s.headers); err != nil {
		return fmt.Errorf("failed to write headers of %s: %w", s.name, err)
	}
	last, err := excelize.CoordinatesToCellName(len(s.headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(s.name, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style headers of %s: %w", s.name, err)
	}

	for i := range s.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(s.name, cell, &s.rows[i]); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+2, s.name, err)
		}
	}

	return f.SetPanes(s.name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func contactsSheet(contacts []*models.NormalizedContact) sheet {
	s := sheet{
		name: SheetContacts,
		headers: []any{
			"id", "name", "phone", "email", "secondary_id", "address", "city", "region",
			"addresses", "order_count", "first_order_date", "last_order_date", "match_method", "order_group_ids",
		},
	}
	for _, c := range contacts {
		addresses := make([]string, 0, len(c.Addresses))
		for _, a := range c.Addresses {
			addresses = append(addresses, strings.Join(nonEmpty(a.Address, a.City, a.Region), ", "))
		}
		s.rows = append(s.rows, []any{
			c.ID, c.Name, c.Phone, c.Email, c.SecondaryID, c.Address, c.City, c.Region,
			strings.Join(addresses, " | "), c.OrderCount, formatTime(c.FirstOrderDate), formatTime(c.LastOrderDate),
			string(c.MatchMethod), strings.Join(c.OrderGroupIDs, ", "),
		})
	}
	return s
}

func orderGroupsSheet(groups []*models.OrderGroup) sheet {
	s := sheet{
		name: SheetOrderGroups,
		headers: []any{
			"id", "kind", "contact_id", "sales_id", "logistics_id", "shipping_id",
			"confidence", "match_detail", "name", "stage", "date",
		},
	}
	for _, g := range groups {
		var name, stage string
		if rep := g.RepresentativeDeal(); rep != nil {
			name, stage = rep.Name, rep.Stage
		}
		s.rows = append(s.rows, []any{
			g.ID, string(g.Kind()), g.ContactID, dealID(g.Sales), dealID(g.Logistics), dealID(g.Shipping),
			g.Confidence, g.MatchDetail, name, stage, formatTime(g.RepresentativeDate()),
		})
	}
	return s
}

func unmatchedSheet(report models.UnmatchedReport) sheet {
	s := sheet{
		name:    SheetUnmatched,
		headers: []any{"pair", "side", "pipeline_stage", "id", "name", "phone", "stage"},
	}
	for _, p := range report.Pairs {
		for _, ref := range p.UnmatchedSource {
			s.rows = append(s.rows, refRow(p.Pair, "source", ref))
		}
		for _, ref := range p.UnmatchedTarget {
			s.rows = append(s.rows, refRow(p.Pair, "target", ref))
		}
	}
	return s
}

func refRow(pair models.PipelinePair, side string, ref models.DealRef) []any {
	return []any{string(pair), side, string(ref.From), ref.ID, ref.Name, ref.Phone, ref.Stage}
}

func noIdentifiersSheet(groups []models.NoIdentifierGroup) sheet {
	s := sheet{
		name:    SheetNoIdentifiers,
		headers: []any{"group_id", "kind", "deal_id", "name", "stage", "pipeline_stage"},
	}
	for _, g := range groups {
		s.rows = append(s.rows, []any{
			g.GroupID, string(g.Kind), g.Deal.ID, g.Deal.Name, g.Deal.Stage, string(g.Deal.From),
		})
	}
	return s
}

// rematchSheet writes one row per candidate; suggestions without candidates get a single row
func rematchSheet(suggestions []*models.RematchSuggestion) sheet {
	s := sheet{
		name: SheetRematch,
		headers: []any{
			"pair", "record_id", "record_name", "recommendation", "conflict", "rank",
			"candidate_id", "candidate_name", "score", "details", "time_delta_seconds", "already_matched",
		},
	}
	for _, sg := range suggestions {
		head := []any{string(sg.Pair), sg.Record.ID, sg.Record.Name, string(sg.Recommendation), sg.Conflict}
		if len(sg.Candidates) == 0 {
			s.rows = append(s.rows, head)
			continue
		}
		for i, c := range sg.Candidates {
			row := append(append([]any(nil), head...),
				i+1, c.Deal.ID, c.Deal.Name, c.Score, strings.Join(c.Details, ", "), c.TimeDeltaSeconds, c.AlreadyMatched)
			s.rows = append(s.rows, row)
		}
	}
	return s
}

func dealID(d *models.Deal) string {
	if d == nil {
		return ""
	}
	return d.ID
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func nonEmpty(values ...string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
