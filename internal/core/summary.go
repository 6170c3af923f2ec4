package core

import (
	"sort"
	"strings"
)

type (
	// PlayerRecap accumulates one player's shares across a month.
	// Players are matched by exact, case-sensitive name.
	PlayerRecap struct {
		Name        string  `json:"name"`
		TotalAmount float64 `json:"totalAmount"`
		TotalHours  float64 `json:"totalHours"`
		TotalPaid   float64 `json:"totalPaid"`
	}

	MonthSummary struct {
		Month         string        `json:"month"`
		TotalSessions int           `json:"totalSessions"`
		TotalCost     float64       `json:"totalCost"`
		TotalHours    float64       `json:"totalHours"`
		TotalPaid     float64       `json:"totalPaid"`
		Players       []PlayerRecap `json:"players"`
		Locations     []string      `json:"locations"`
	}

	// DayRecap is the per-day aggregate shown on a calendar cell.
	DayRecap struct {
		Date       string  `json:"date"`
		Sessions   int     `json:"sessions"`
		TotalCost  float64 `json:"totalCost"`
		TotalHours float64 `json:"totalHours"`
	}
)

// IsPaid reports whether the player is settled for the month.
func (p PlayerRecap) IsPaid() bool {
	return p.TotalPaid >= p.TotalAmount
}

// Outstanding is what the player still owes for the month.
func (p PlayerRecap) Outstanding() float64 {
	return p.TotalAmount - p.TotalPaid
}

// Player returns the recap for the given name.
func (m MonthSummary) Player(name string) (PlayerRecap, bool) {
	for _, p := range m.Players {
		if p.Name == name {
			return p, true
		}
	}
	return PlayerRecap{}, false
}

// GroupByDate buckets sessions by their YYYY-MM-DD date. Sessions keep their
// input order inside a bucket; callers pass history sorted by date then
// creation time.
func GroupByDate(sessions []Session) map[string][]Session {
	byDate := make(map[string][]Session)
	for _, s := range sessions {
		key := s.Date.Key()
		byDate[key] = append(byDate[key], s)
	}
	return byDate
}

// SessionsInMonth returns the sessions whose date starts with monthKey (YYYY-MM).
func SessionsInMonth(sessions []Session, monthKey string) []Session {
	var out []Session
	for _, s := range sessions {
		if strings.HasPrefix(s.Date.Key(), monthKey) {
			out = append(out, s)
		}
	}
	return out
}

// SummarizeMonth aggregates the sessions of one month. Player recaps are
// sorted by TotalAmount descending; ties keep first-seen order.
func SummarizeMonth(sessions []Session, monthKey string) MonthSummary {
	summary := MonthSummary{
		Month:     monthKey,
		Players:   []PlayerRecap{},
		Locations: []string{},
	}

	index := make(map[string]int)
	seenLocation := make(map[string]struct{})

	for _, s := range SessionsInMonth(sessions, monthKey) {
		summary.TotalSessions++
		summary.TotalCost += s.TotalCost
		summary.TotalHours += s.TotalHours

		if s.Location != "" {
			if _, ok := seenLocation[s.Location]; !ok {
				seenLocation[s.Location] = struct{}{}
				summary.Locations = append(summary.Locations, s.Location)
			}
		}

		for _, p := range s.Players {
			i, ok := index[p.Name]
			if !ok {
				i = len(summary.Players)
				index[p.Name] = i
				summary.Players = append(summary.Players, PlayerRecap{Name: p.Name})
			}
			recap := &summary.Players[i]
			recap.TotalAmount += p.Amount
			recap.TotalHours += p.Hours
			if p.Paid {
				recap.TotalPaid += p.Amount
				summary.TotalPaid += p.Amount
			}
		}
	}

	sort.SliceStable(summary.Players, func(i, j int) bool {
		return summary.Players[i].TotalAmount > summary.Players[j].TotalAmount
	})

	return summary
}

// CalendarDays returns one recap per day of the month that has sessions,
// in the order days first appear in the input.
func CalendarDays(sessions []Session, monthKey string) []DayRecap {
	days := []DayRecap{}
	index := make(map[string]int)
	for _, s := range SessionsInMonth(sessions, monthKey) {
		key := s.Date.Key()
		i, ok := index[key]
		if !ok {
			i = len(days)
			index[key] = i
			days = append(days, DayRecap{Date: key})
		}
		days[i].Sessions++
		days[i].TotalCost += s.TotalCost
		days[i].TotalHours += s.TotalHours
	}
	return days
}

// NextPaid returns the paid flag a toggle should persist.
func NextPaid(current bool) bool {
	return !current
}
