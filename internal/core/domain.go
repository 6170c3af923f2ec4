package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

type (
	Date struct {
		time.Time
	}

	// PlayerInput is one row of the session form before allocation.
	PlayerInput struct {
		ID    int     `json:"id"`
		Name  string  `json:"name"`
		Hours float64 `json:"hours"`
	}

	// Share is the full-precision allocation of one player, used for previews.
	Share struct {
		ID      int     `json:"id"`
		Name    string  `json:"name"`
		Hours   float64 `json:"hours"`
		Portion float64 `json:"portion"`
		Amount  float64 `json:"amount"`
	}

	// PlayerShare is a persisted share. Amount is rounded to whole currency units.
	PlayerShare struct {
		ID      string  `json:"id"`
		Name    string  `json:"name"`
		Hours   float64 `json:"hours"`
		Portion float64 `json:"portion"`
		Amount  float64 `json:"amount"`
		Paid    bool    `json:"paid"`
	}

	Session struct {
		ID               string        `json:"id"`
		Date             Date          `json:"date"`
		StartTime        string        `json:"startTime,omitempty"`
		TotalHours       float64       `json:"totalHours"`
		TotalCost        float64       `json:"totalCost"`
		TotalPlayerHours float64       `json:"totalPlayerHours"`
		SessionName      string        `json:"sessionName,omitempty"`
		Location         string        `json:"location,omitempty"`
		CreatedAt        time.Time     `json:"createdAt"`
		Players          []PlayerShare `json:"players"`
	}

	// SessionDraft carries the raw form values of a session about to be saved.
	SessionDraft struct {
		Date        Date          `json:"date"`
		StartTime   string        `json:"startTime,omitempty"`
		SessionName string        `json:"sessionName,omitempty"`
		Location    string        `json:"location,omitempty"`
		TotalHours  float64       `json:"totalHours"`
		TotalCost   float64       `json:"totalCost"`
		Players     []PlayerInput `json:"players"`
	}
)

var (
	ErrMissingDate       = errors.New("session date is required")
	ErrInvalidTotalHours = errors.New("total hours must be greater than 0")
	ErrInvalidTotalCost  = errors.New("total cost must be greater than 0")
	ErrNegativeHours     = errors.New("player hours cannot be negative")
	ErrNoPlayerHours     = errors.New("total player hours must be greater than 0")
	ErrNoShares          = errors.New("no players with valid hours")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidMonthKey   = errors.New("invalid month key")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w %q: %v", ErrInvalidDate, s, err)
	}
	return Date{Time: t}, nil
}

// Key formats the date as YYYY-MM-DD.
func (d Date) Key() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// MonthKey formats the date as YYYY-MM.
func (d Date) MonthKey() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(monthLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Key() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DisplayName returns the player's name, or "Player {id}" when left blank.
func (p PlayerInput) DisplayName() string {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Sprintf("Player %d", p.ID)
	}
	return p.Name
}

// Validate checks the guards that must hold before a session is persisted.
// Share availability is checked separately by NewSession.
func (d SessionDraft) Validate() error {
	if d.Date.IsZero() {
		return ErrMissingDate
	}
	if d.TotalHours <= 0 {
		return ErrInvalidTotalHours
	}
	if d.TotalCost <= 0 {
		return ErrInvalidTotalCost
	}
	for _, p := range d.Players {
		if p.Hours < 0 {
			return ErrNegativeHours
		}
	}
	if TotalPlayerHours(d.Players) <= 0 {
		return ErrNoPlayerHours
	}
	return nil
}

// NewSession validates the draft and builds the session to persist.
// Amounts and the total cost are rounded to whole currency units; portions
// keep full precision. ID and CreatedAt are assigned by the store.
func NewSession(d SessionDraft) (Session, error) {
	if err := d.Validate(); err != nil {
		return Session{}, err
	}

	shares := Allocate(d.TotalCost, d.Players)
	if len(shares) == 0 {
		return Session{}, ErrNoShares
	}

	players := make([]PlayerShare, len(shares))
	for i, s := range shares {
		players[i] = PlayerShare{
			Name:    s.Name,
			Hours:   s.Hours,
			Portion: s.Portion,
			Amount:  RoundAmount(s.Amount),
		}
	}

	return Session{
		Date:             d.Date,
		StartTime:        strings.TrimSpace(d.StartTime),
		TotalHours:       d.TotalHours,
		TotalCost:        RoundAmount(d.TotalCost),
		TotalPlayerHours: TotalPlayerHours(d.Players),
		SessionName:      strings.TrimSpace(d.SessionName),
		Location:         strings.TrimSpace(d.Location),
		Players:          players,
	}, nil
}

// Share returns the player share with the given id.
func (s Session) Share(id string) (PlayerShare, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return PlayerShare{}, false
}
