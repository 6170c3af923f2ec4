package http

import (
	"net/http"

	"billiard/internal/core"
	"billiard/internal/log"
)

type monthSummaryResponse struct {
	core.MonthSummary
	Players []playerRecapView `json:"players"`
	Label   string            `json:"label"`
	Prev    string            `json:"prev"`
	Next    string            `json:"next"`
}

// playerRecapView adds the settlement state a month panel renders per player.
type playerRecapView struct {
	core.PlayerRecap
	IsPaid           bool    `json:"isPaid"`
	Outstanding      float64 `json:"outstanding"`
	TotalAmountLabel string  `json:"totalAmountLabel"`
	OutstandingLabel string  `json:"outstandingLabel"`
}

func newPlayerRecapViews(recaps []core.PlayerRecap) []playerRecapView {
	views := make([]playerRecapView, 0, len(recaps))
	for _, p := range recaps {
		views = append(views, playerRecapView{
			PlayerRecap:      p,
			IsPaid:           p.IsPaid(),
			Outstanding:      p.Outstanding(),
			TotalAmountLabel: core.FormatRupiah(p.TotalAmount),
			OutstandingLabel: core.FormatRupiah(p.Outstanding()),
		})
	}
	return views
}

type calendarResponse struct {
	Month string          `json:"month"`
	Days  []core.DayRecap `json:"days"`
}

// handleMonthSummary returns the month aggregate plus the neighbouring month
// keys used for navigation.
func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	month := r.PathValue("month")

	summary, err := s.svc.MonthSummary(r.Context(), month)
	if err != nil {
		s.writeError(w, r, err, log.OpRead)
		return
	}
	// The key already validated, so shifting cannot fail.
	prev, _ := core.ShiftMonth(month, -1)
	next, _ := core.ShiftMonth(month, 1)

	NewHTMXResponse().
		BodyJSON(monthSummaryResponse{
			MonthSummary: summary,
			Players:      newPlayerRecapViews(summary.Players),
			Label:        core.MonthLabel(month),
			Prev:         prev,
			Next:         next,
		}).
		Write(w)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	month := r.PathValue("month")

	days, err := s.svc.Calendar(r.Context(), month)
	if err != nil {
		s.writeError(w, r, err, log.OpRead)
		return
	}
	if days == nil {
		days = []core.DayRecap{}
	}
	NewHTMXResponse().BodyJSON(calendarResponse{Month: month, Days: days}).Write(w)
}

func (s *Server) handleSessionInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := s.svc.SessionInvoice(r.Context(), r.PathValue("id"), r.PathValue("shareID"))
	if err != nil {
		s.writeError(w, r, err, log.OpRead)
		return
	}
	writeInvoice(w, inv)
}

func (s *Server) handleMonthlyInvoice(w http.ResponseWriter, r *http.Request) {
	name := sanitizeInput(r.PathValue("name"))

	inv, err := s.svc.MonthlyInvoice(r.Context(), r.PathValue("month"), name)
	if err != nil {
		s.writeError(w, r, err, log.OpRead)
		return
	}
	writeInvoice(w, inv)
}

// writeInvoice sends the invoice data with the file name a renderer should
// use for the document.
func writeInvoice(w http.ResponseWriter, inv core.Invoice) {
	NewHTMXResponse().
		Header("X-Invoice-Filename", inv.FileName()).
		BodyJSON(inv).
		Write(w)
}
