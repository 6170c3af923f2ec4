package http

import (
	"fmt"
	"net/http"
	"strings"

	"billiard/internal/core"
	"billiard/internal/log"
)

type previewResponse struct {
	TotalPlayerHours float64     `json:"totalPlayerHours"`
	Shares           []shareView `json:"shares"`
}

// shareView carries the display values of one preview row next to the
// full-precision share.
type shareView struct {
	core.Share
	Percent     float64 `json:"percent"`
	AmountLabel string  `json:"amountLabel"`
	PerHour     float64 `json:"perHour"`
}

func newShareViews(shares []core.Share) []shareView {
	views := make([]shareView, 0, len(shares))
	for _, sh := range shares {
		views = append(views, shareView{
			Share:       sh,
			Percent:     core.PercentOf(sh.Portion),
			AmountLabel: core.FormatRupiah(sh.Amount),
			PerHour:     core.PerHour(sh.Amount, sh.Hours),
		})
	}
	return views
}

// handlePreview returns the live, unrounded cost split.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	players := toPlayerInputs(req.Players)
	shares := s.svc.Preview(float64(req.TotalCost), players)
	NewHTMXResponse().
		BodyJSON(previewResponse{TotalPlayerHours: core.TotalPlayerHours(players), Shares: newShareViews(shares)}).
		Write(w)
}

// handleListSessions returns the whole history, or one day with ?date=.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		sessions []core.Session
		err      error
	)
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		var date core.Date
		date, err = parseDate(raw)
		if err == nil {
			sessions, err = s.svc.Day(ctx, date)
		}
	} else {
		sessions, err = s.svc.History(ctx)
	}
	if err != nil {
		s.writeError(w, r, err, log.OpList)
		return
	}
	if sessions == nil {
		sessions = []core.Session{}
	}
	NewHTMXResponse().BodyJSON(sessions).Write(w)
}

// handleCreateSession validates and persists a session.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req sessionRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}
	draft, err := req.Draft()
	if err != nil {
		s.writeError(w, r, err, log.OpValidate)
		return
	}

	session, err := s.svc.Save(ctx, draft)
	if err != nil {
		s.writeError(w, r, err, log.OpCreate)
		return
	}

	log.NewStructuredLogger(log.FromContext(ctx)).
		LogSessionSaved(ctx, session.ID, session.Date.Key(), session.TotalCost, len(session.Players))

	NewHTMXResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/sessions/"+session.ID).
		TriggerSessionCreated(session.ID, session.Date.MonthKey()).
		TriggerSuccessNotification("Session saved").
		BodyJSON(session).
		Write(w)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.svc.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err, log.OpRead)
		return
	}
	NewHTMXResponse().BodyJSON(session).Write(w)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.svc.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err, log.OpDelete)
		return
	}
	NewHTMXResponse().
		Status(http.StatusNoContent).
		TriggerSessionDeleted(id).
		Write(w)
}

func (s *Server) handleClearSessions(w http.ResponseWriter, r *http.Request) {
	removed, err := s.svc.Clear(r.Context())
	if err != nil {
		s.writeError(w, r, err, log.OpClear)
		return
	}
	NewHTMXResponse().
		TriggerHistoryCleared(removed).
		TriggerSuccessNotification(fmt.Sprintf("Removed %d sessions", removed)).
		BodyJSON(map[string]int64{"removed": removed}).
		Write(w)
}

// handleTogglePaid flips one share's paid flag. The client may send the flag
// it currently shows as currentPaid; otherwise the stored value is used.
func (s *Server) handleTogglePaid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := r.PathValue("id")
	shareID := r.PathValue("shareID")

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	current, ok := parser.GetBool("currentPaid")
	if !ok {
		session, err := s.svc.GetSession(ctx, sessionID)
		if err != nil {
			s.writeError(w, r, err, log.OpToggle)
			return
		}
		share, found := session.Share(shareID)
		if !found {
			NotFoundError("share not found").Write(w)
			return
		}
		current = share.Paid
	}

	paid, err := s.svc.TogglePaid(ctx, sessionID, shareID, current)
	if err != nil {
		s.writeError(w, r, err, log.OpToggle)
		return
	}

	log.NewStructuredLogger(log.FromContext(ctx)).LogPaidToggled(ctx, sessionID, shareID, paid)

	NewHTMXResponse().
		TriggerSharePaid(sessionID, shareID, paid).
		BodyJSON(map[string]interface{}{
			"sessionId": sessionID,
			"shareId":   shareID,
			"paid":      paid,
		}).
		Write(w)
}

// writeError logs unexpected failures and writes the mapped JSON error.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		ctx := r.Context()
		log.NewStructuredLogger(log.FromContext(ctx)).
			LogError(ctx, "Request failed", err, log.ComponentHTTP, operation,
				log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", ""))
	}
	resp := FromError(err)
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		resp.TriggerErrorNotification(errorMessage(status, err))
	}
	resp.Write(w)
}
