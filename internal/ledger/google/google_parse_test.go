package google

import (
	"testing"
	"time"

	"billiard/internal/core"
	"billiard/internal/ledger"
)

func testSession() core.Session {
	return core.Session{
		ID:          "s1",
		Date:        core.NewDate(2024, 3, 9),
		SessionName: "Friday",
		Location:    "Kemang",
		TotalCost:   90000,
		CreatedAt:   time.Date(2024, 3, 9, 20, 0, 0, 0, time.UTC),
		Players: []core.PlayerShare{
			{ID: "p1", Name: "Alex", Hours: 1, Portion: 1.0 / 3, Amount: 30000},
			{ID: "p2", Name: "Bo", Hours: 2, Portion: 2.0 / 3, Amount: 60000, Paid: true},
		},
	}
}

func TestSessionRows(t *testing.T) {
	rows := sessionRows(testSession())
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want one per share", len(rows))
	}
	if len(rows[0]) != len(header) {
		t.Fatalf("row has %d cells, header has %d", len(rows[0]), len(header))
	}
	first := toStrings(rows[0])
	if first[0] != "s1" || first[1] != "p1" || first[2] != "2024-03-09" || first[5] != "Alex" || first[9] != "FALSE" {
		t.Fatalf("unexpected first row: %v", first)
	}
	if toStrings(rows[1])[9] != "TRUE" {
		t.Fatalf("paid share should export TRUE, got %v", rows[1][9])
	}
}

func TestRowLookup(t *testing.T) {
	values := [][]interface{}{
		header,
		{"s1", "p1"},
		{"s2", "p3"},
		{"s1", "p2"},
		{},
	}

	rows := rowsForSession(values, "s1")
	if len(rows) != 2 || rows[0] != 1 || rows[1] != 3 {
		t.Fatalf("rowsForSession = %v", rows)
	}
	if got := rowsForSession(values, ""); len(got) != 0 {
		t.Fatalf("empty id should match nothing, got %v", got)
	}
	if got := rowForShare(values, "s1", "p2"); got != 3 {
		t.Fatalf("rowForShare = %d, want 3", got)
	}
	if got := rowForShare(values, "s2", "p1"); got != -1 {
		t.Fatalf("rowForShare of a share in another session = %d", got)
	}

	ids := sessionIDs(values)
	if len(ids) != 2 || ids[0] != "s1" || ids[1] != "s2" {
		t.Fatalf("sessionIDs = %v", ids)
	}
}

func TestPaidFlags(t *testing.T) {
	values := append([][]interface{}{header}, sessionRows(testSession())...)
	values = append(values, []interface{}{"s9"}, []interface{}{"s3", "p1", "", "", "", "", "", "", "", "true"})

	flags := paidFlags(values)
	tests := []struct {
		ref  ledger.ShareRef
		want bool
	}{
		{ledger.ShareRef{SessionID: "s1", ShareID: "p1"}, false},
		{ledger.ShareRef{SessionID: "s1", ShareID: "p2"}, true},
		{ledger.ShareRef{SessionID: "s3", ShareID: "p1"}, true},
	}
	for _, tt := range tests {
		got, ok := flags[tt.ref]
		if !ok || got != tt.want {
			t.Errorf("%+v = %v (present %v), want %v", tt.ref, got, ok, tt.want)
		}
	}
	if len(flags) != 3 {
		t.Errorf("got %d flags, want header and rows without a share id skipped: %v", len(flags), flags)
	}
}

func TestDeleteRowRequests_BottomUp(t *testing.T) {
	reqs := deleteRowRequests(7, []int{1, 5, 3})
	if len(reqs) != 3 {
		t.Fatalf("got %d requests", len(reqs))
	}
	want := []int64{5, 3, 1}
	for i, r := range reqs {
		d := r.DeleteDimension.Range
		if d.SheetId != 7 || d.Dimension != "ROWS" || d.StartIndex != want[i] || d.EndIndex != want[i]+1 {
			t.Fatalf("request %d = %+v", i, d)
		}
	}
}
