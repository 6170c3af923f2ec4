package google

import (
	"fmt"
	"sort"
	"strings"

	"billiard/internal/core"
	"billiard/internal/ledger"
	gsheet "google.golang.org/api/sheets/v4"
)

// Sheet layout, one row per player share.
const (
	paidColumn = "J"
	lastColumn = "K"
	paidIndex  = 9 // zero-based index of paidColumn
)

var header = []interface{}{
	"Session ID", "Share ID", "Date", "Session", "Location",
	"Player", "Hours", "Portion", "Amount", "Paid", "Total Cost",
}

func sessionRows(s core.Session) [][]interface{} {
	rows := make([][]interface{}, 0, len(s.Players))
	for _, p := range s.Players {
		rows = append(rows, []interface{}{
			s.ID,
			p.ID,
			s.Date.Key(),
			s.SessionName,
			s.Location,
			p.Name,
			p.Hours,
			p.Portion,
			p.Amount,
			paidCell(p.Paid),
			s.TotalCost,
		})
	}
	return rows
}

func paidCell(paid bool) string {
	if paid {
		return "TRUE"
	}
	return "FALSE"
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

func isHeader(row []string) bool {
	return strings.EqualFold(safeGet(row, 0), fmt.Sprint(header[0]))
}

// rowsForSession returns the zero-based row indexes holding the session.
func rowsForSession(values [][]interface{}, sessionID string) []int {
	var rows []int
	for i, raw := range values {
		if safeGet(toStrings(raw), 0) == sessionID && sessionID != "" {
			rows = append(rows, i)
		}
	}
	return rows
}

// rowForShare returns the zero-based row index of one share, or -1.
func rowForShare(values [][]interface{}, sessionID, shareID string) int {
	for i, raw := range values {
		row := toStrings(raw)
		if safeGet(row, 0) == sessionID && safeGet(row, 1) == shareID {
			return i
		}
	}
	return -1
}

// sessionIDs returns distinct session ids in sheet order, skipping the header.
func sessionIDs(values [][]interface{}) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(values))
	for _, raw := range values {
		row := toStrings(raw)
		id := safeGet(row, 0)
		if id == "" || isHeader(row) {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// paidFlags maps every share row to its paid cell, skipping the header.
func paidFlags(values [][]interface{}) map[ledger.ShareRef]bool {
	out := make(map[ledger.ShareRef]bool, len(values))
	for _, raw := range values {
		row := toStrings(raw)
		ref := ledger.ShareRef{SessionID: safeGet(row, 0), ShareID: safeGet(row, 1)}
		if ref.SessionID == "" || ref.ShareID == "" || isHeader(row) {
			continue
		}
		out[ref] = strings.EqualFold(safeGet(row, paidIndex), paidCell(true))
	}
	return out
}

// deleteRowRequests deletes the given rows bottom-up so earlier indexes stay valid.
func deleteRowRequests(sheetID int64, rows []int) []*gsheet.Request {
	sorted := append([]int(nil), rows...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	reqs := make([]*gsheet.Request, 0, len(sorted))
	for _, r := range sorted {
		reqs = append(reqs, &gsheet.Request{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(r),
					EndIndex:   int64(r + 1),
				},
			},
		})
	}
	return reqs
}
