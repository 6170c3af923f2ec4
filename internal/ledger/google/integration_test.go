//go:build integration

package google

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"billiard/internal/core"
)

// Integration tests require a real spreadsheet and service account.
// Run with: go test -tags=integration ./internal/ledger/google

func TestIntegration_ExportRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	if os.Getenv("GOOGLE_SPREADSHEET_ID") == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := NewFromEnv(ctx)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if err := client.EnsureHeader(ctx); err != nil {
		t.Fatalf("ensure header: %v", err)
	}

	s := testSession()
	s.ID = fmt.Sprintf("it-%d", time.Now().UnixNano())
	s.Players[0].ID = s.ID + "-p1"
	s.Players[1].ID = s.ID + "-p2"
	s.Date = core.Date{Time: time.Now().UTC().Truncate(24 * time.Hour)}

	if err := client.ExportSession(ctx, s); err != nil {
		t.Fatalf("export: %v", err)
	}
	t.Cleanup(func() { _ = client.RemoveSession(context.Background(), s.ID) })

	if err := client.UpdatePaid(ctx, s.ID, s.Players[0].ID, true); err != nil {
		t.Fatalf("update paid: %v", err)
	}

	ids, err := client.ExportedSessionIDs(ctx)
	if err != nil {
		t.Fatalf("list ids: %v", err)
	}
	found := false
	for _, id := range ids {
		found = found || id == s.ID
	}
	if !found {
		t.Fatalf("exported session %s not found in sheet", s.ID)
	}

	if err := client.RemoveSession(ctx, s.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
}
