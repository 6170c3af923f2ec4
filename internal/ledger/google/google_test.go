package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"billiard/internal/ledger"
)

// fakeSheets emulates the handful of Sheets API calls the client makes.
type fakeSheets struct {
	mu    sync.Mutex
	rows  [][]interface{}
	reads int
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	switch {
	case strings.HasSuffix(path, ":batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, rq := range req.Requests {
			if d := rq.DeleteDimension; d != nil {
				f.rows = append(f.rows[:d.Range.StartIndex], f.rows[d.Range.EndIndex:]...)
			}
		}
		writeJSON(w, map[string]string{"spreadsheetId": "sheet-1"})

	case strings.Contains(path, "/values/"):
		rng := path[strings.Index(path, "/values/")+len("/values/"):]
		switch {
		case strings.HasSuffix(rng, ":append"):
			var vr gsheet.ValueRange
			_ = json.NewDecoder(r.Body).Decode(&vr)
			f.rows = append(f.rows, vr.Values...)
			writeJSON(w, map[string]string{})
		case strings.HasSuffix(rng, ":clear"):
			if len(f.rows) > 1 {
				f.rows = f.rows[:1]
			}
			writeJSON(w, map[string]string{})
		case r.Method == http.MethodPut:
			var vr gsheet.ValueRange
			_ = json.NewDecoder(r.Body).Decode(&vr)
			f.update(rng, vr.Values)
			writeJSON(w, map[string]string{})
		default:
			f.reads++
			writeJSON(w, map[string]interface{}{"range": rng, "values": f.read(rng)})
		}

	default:
		writeJSON(w, map[string]interface{}{
			"sheets": []interface{}{
				map[string]interface{}{"properties": map[string]interface{}{"sheetId": 7, "title": "Sessions"}},
			},
		})
	}
}

func (f *fakeSheets) read(rng string) [][]interface{} {
	if strings.HasSuffix(rng, "A1:K1") {
		if len(f.rows) == 0 {
			return nil
		}
		return f.rows[:1]
	}
	out := make([][]interface{}, len(f.rows))
	for i, row := range f.rows {
		if len(row) > paidIndex+1 {
			row = row[:paidIndex+1]
		}
		out[i] = row
	}
	return out
}

func (f *fakeSheets) update(rng string, values [][]interface{}) {
	if strings.HasSuffix(rng, "A1:K1") {
		if len(f.rows) == 0 {
			f.rows = append(f.rows, values[0])
		}
		return
	}
	cell := rng[strings.Index(rng, "!")+1:]
	col := int(cell[0] - 'A')
	n, _ := strconv.Atoi(cell[1:])
	f.rows[n-1][col] = values[0][0]
}

func (f *fakeSheets) cell(row, col int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fmt.Sprint(f.rows[row][col])
}

func (f *fakeSheets) rowCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newFakeClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("sheets service: %v", err)
	}
	return New(svc, "sheet-1", "Sessions"), fake
}

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")

	_, err := NewFromEnv(context.Background())
	if err == nil {
		t.Fatal("expected error for missing GOOGLE_SPREADSHEET_ID")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewFromEnv_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "test-id")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := NewFromEnv(context.Background())
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewFromEnv_UnreadableCredentialsFile(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "test-id")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "/nonexistent/credentials.json")

	_, err := NewFromEnv(context.Background())
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_NotInitialized(t *testing.T) {
	c := New(nil, "id", "")
	if c.sheetName != defaultSheetName {
		t.Fatalf("default sheet name = %q", c.sheetName)
	}
	if err := c.ExportSession(context.Background(), testSession()); err == nil {
		t.Fatal("expected error without a sheets service")
	}
}

func TestClient_ExportFlow(t *testing.T) {
	ctx := context.Background()
	c, fake := newFakeClient(t)

	if err := c.EnsureHeader(ctx); err != nil {
		t.Fatalf("ensure header: %v", err)
	}
	if err := c.EnsureHeader(ctx); err != nil {
		t.Fatalf("second ensure header: %v", err)
	}
	if fake.rowCount() != 1 {
		t.Fatalf("header written %d times", fake.rowCount())
	}

	s := testSession()
	if err := c.ExportSession(ctx, s); err != nil {
		t.Fatalf("export: %v", err)
	}
	if err := c.ExportSession(ctx, s); err != nil {
		t.Fatalf("re-export: %v", err)
	}
	if fake.rowCount() != 3 {
		t.Fatalf("rows = %d, want header plus two shares", fake.rowCount())
	}

	ids, err := c.ExportedSessionIDs(ctx)
	if err != nil || len(ids) != 1 || ids[0] != "s1" {
		t.Fatalf("exported ids = %v, %v", ids, err)
	}

	if err := c.UpdatePaid(ctx, "s1", "p1", true); err != nil {
		t.Fatalf("update paid: %v", err)
	}
	if got := fake.cell(1, 9); got != "TRUE" {
		t.Fatalf("paid cell = %q", got)
	}
	paid, err := c.ExportedPaid(ctx)
	if err != nil {
		t.Fatalf("exported paid: %v", err)
	}
	if !paid[ledger.ShareRef{SessionID: "s1", ShareID: "p1"}] || len(paid) != 2 {
		t.Fatalf("paid flags after update = %v", paid)
	}
	if err := c.UpdatePaid(ctx, "s1", "nope", true); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("update of unknown share err = %v", err)
	}

	if err := c.RemoveSession(ctx, "s1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if fake.rowCount() != 1 {
		t.Fatalf("rows after remove = %d, want only the header", fake.rowCount())
	}
	if err := c.RemoveSession(ctx, "s1"); err != nil {
		t.Fatalf("removing a missing session should be a no-op: %v", err)
	}
}

func TestClient_ClearAllKeepsHeader(t *testing.T) {
	ctx := context.Background()
	c, fake := newFakeClient(t)

	_ = c.EnsureHeader(ctx)
	_ = c.ExportSession(ctx, testSession())

	if err := c.ClearAll(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if fake.rowCount() != 1 {
		t.Fatalf("rows after clear = %d", fake.rowCount())
	}
	ids, _ := c.ExportedSessionIDs(ctx)
	if len(ids) != 0 {
		t.Fatalf("ids after clear = %v", ids)
	}
}

func TestClient_IDColumnsAreCached(t *testing.T) {
	ctx := context.Background()
	c, fake := newFakeClient(t)

	_, _ = c.ExportedSessionIDs(ctx)
	_, _ = c.ExportedSessionIDs(ctx)

	fake.mu.Lock()
	reads := fake.reads
	fake.mu.Unlock()
	if reads != 1 {
		t.Fatalf("id columns read %d times, want 1", reads)
	}
}
