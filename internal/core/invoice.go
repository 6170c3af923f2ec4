package core

import (
	"fmt"
	"strings"
	"time"
)

type (
	InvoiceItem struct {
		Description string  `json:"description"`
		Quantity    float64 `json:"quantity"`
		Price       float64 `json:"price"`
		Total       float64 `json:"total"`
	}

	// Invoice is the data handed to a document renderer.
	Invoice struct {
		Number        string        `json:"invoiceNumber"`
		Date          string        `json:"date"`
		CustomerName  string        `json:"customerName"`
		SessionName   string        `json:"sessionName,omitempty"`
		Location      string        `json:"location,omitempty"`
		DurationHours float64       `json:"durationHours"`
		TotalAmount   float64       `json:"totalAmount"`
		TotalPaid     float64       `json:"totalPaid,omitempty"`
		IsPaid        bool          `json:"isPaid"`
		Items         []InvoiceItem `json:"items"`
	}
)

// SessionInvoice builds the invoice of one player's share in a session.
func SessionInvoice(s Session, p PlayerShare) Invoice {
	number := fmt.Sprintf("%s-%s-%s",
		strings.ReplaceAll(s.Date.Key(), "-", ""),
		prefix(s.ID, 4),
		strings.ToUpper(prefix(p.Name, 3)),
	)
	return Invoice{
		Number:        number,
		Date:          s.Date.Key(),
		CustomerName:  p.Name,
		SessionName:   s.SessionName,
		Location:      s.Location,
		DurationHours: p.Hours,
		TotalAmount:   p.Amount,
		IsPaid:        p.Paid,
		Items: []InvoiceItem{{
			Description: "Billiard Session Share",
			Quantity:    p.Hours,
			Price:       p.Amount / hoursOrOne(p.Hours),
			Total:       p.Amount,
		}},
	}
}

// MonthlyInvoice builds a player's invoice for a month. TotalAmount is what is
// still outstanding; the line item carries the full month amount.
func MonthlyInvoice(r PlayerRecap, monthKey string, issued time.Time) Invoice {
	label := MonthLabel(monthKey)
	number := fmt.Sprintf("MONTHLY-%s-%s",
		strings.Join(strings.Fields(label), "-"),
		strings.ToUpper(prefix(r.Name, 3)),
	)
	return Invoice{
		Number:        number,
		Date:          issued.UTC().Format(time.RFC3339),
		CustomerName:  r.Name,
		SessionName:   "Monthly Summary - " + label,
		DurationHours: r.TotalHours,
		TotalAmount:   r.Outstanding(),
		TotalPaid:     r.TotalPaid,
		IsPaid:        r.IsPaid(),
		Items: []InvoiceItem{{
			Description: "Billiard Sessions - " + label,
			Quantity:    r.TotalHours,
			Price:       r.TotalAmount / hoursOrOne(r.TotalHours),
			Total:       r.TotalAmount,
		}},
	}
}

// FileName is the download name of the rendered invoice.
func (inv Invoice) FileName() string {
	return fmt.Sprintf("invoice_%s_%s.pdf", strings.Join(strings.Fields(inv.CustomerName), "_"), inv.Number)
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}

func hoursOrOne(h float64) float64 {
	if h == 0 {
		return 1
	}
	return h
}
