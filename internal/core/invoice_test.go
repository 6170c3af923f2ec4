package core

import (
	"testing"
	"time"
)

func TestSessionInvoice(t *testing.T) {
	s := Session{
		ID:          "9f3c2a71-0000-4000-8000-000000000000",
		Date:        NewDate(2024, 3, 9),
		SessionName: "Friday league",
		Location:    "Kemang",
	}
	p := PlayerShare{ID: "p1", Name: "alexandra", Hours: 2, Amount: 50000, Paid: true}

	inv := SessionInvoice(s, p)

	if inv.Number != "20240309-9f3c-ALE" {
		t.Fatalf("number = %q", inv.Number)
	}
	if inv.Date != "2024-03-09" || inv.CustomerName != "alexandra" || !inv.IsPaid {
		t.Fatalf("unexpected header: %+v", inv)
	}
	if len(inv.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(inv.Items))
	}
	item := inv.Items[0]
	if item.Description != "Billiard Session Share" || item.Quantity != 2 || item.Price != 25000 || item.Total != 50000 {
		t.Fatalf("item = %+v", item)
	}
	if inv.FileName() != "invoice_alexandra_20240309-9f3c-ALE.pdf" {
		t.Fatalf("file name = %q", inv.FileName())
	}
}

func TestMonthlyInvoice(t *testing.T) {
	r := PlayerRecap{Name: "Bo Lee", TotalAmount: 75000, TotalHours: 3, TotalPaid: 25000}
	issued := time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)

	inv := MonthlyInvoice(r, "2024-03", issued)

	if inv.Number != "MONTHLY-March-2024-BO " {
		t.Fatalf("number = %q", inv.Number)
	}
	if inv.TotalAmount != 50000 || inv.TotalPaid != 25000 || inv.IsPaid {
		t.Fatalf("totals = %+v", inv)
	}
	if inv.SessionName != "Monthly Summary - March 2024" {
		t.Fatalf("session name = %q", inv.SessionName)
	}
	item := inv.Items[0]
	if item.Description != "Billiard Sessions - March 2024" || item.Quantity != 3 || item.Price != 25000 || item.Total != 75000 {
		t.Fatalf("item = %+v", item)
	}
	if inv.FileName() != "invoice_Bo_Lee_"+inv.Number+".pdf" {
		t.Fatalf("file name = %q", inv.FileName())
	}
}

func TestMonthlyInvoice_ZeroHoursUsesOne(t *testing.T) {
	inv := MonthlyInvoice(PlayerRecap{Name: "Cy", TotalAmount: 1000}, "2024-03", time.Now())
	if inv.Items[0].Price != 1000 {
		t.Fatalf("price = %v, want 1000", inv.Items[0].Price)
	}
	if inv.Number != "MONTHLY-March-2024-CY" {
		t.Fatalf("number = %q", inv.Number)
	}
}
