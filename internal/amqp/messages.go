package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType names the change that happened to the session history.
type EventType string

const (
	EventSessionCreated  EventType = "session.created"
	EventSessionDeleted  EventType = "session.deleted"
	EventSessionsCleared EventType = "sessions.cleared"
	EventSharePaid       EventType = "share.paid"
)

// SessionEvent is a lightweight notification about a history change.
// It only carries ids; consumers fetch the full session from the database.
type SessionEvent struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	ShareID   string    `json:"share_id,omitempty"`
	Paid      bool      `json:"paid,omitempty"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

const currentVersion = 1

func newEvent(t EventType, sessionID string) *SessionEvent {
	return &SessionEvent{
		Type:      t,
		SessionID: sessionID,
		Version:   currentVersion,
		Timestamp: time.Now(),
	}
}

func NewSessionCreated(sessionID string) *SessionEvent {
	return newEvent(EventSessionCreated, sessionID)
}

func NewSessionDeleted(sessionID string) *SessionEvent {
	return newEvent(EventSessionDeleted, sessionID)
}

func NewSessionsCleared() *SessionEvent {
	return newEvent(EventSessionsCleared, "")
}

func NewSharePaid(sessionID, shareID string, paid bool) *SessionEvent {
	ev := newEvent(EventSharePaid, sessionID)
	ev.ShareID = shareID
	ev.Paid = paid
	return ev
}

// Validate checks that the event carries the ids its type needs.
func (m *SessionEvent) Validate() error {
	switch m.Type {
	case EventSessionCreated, EventSessionDeleted:
		if m.SessionID == "" {
			return fmt.Errorf("%s event without session id", m.Type)
		}
	case EventSharePaid:
		if m.SessionID == "" || m.ShareID == "" {
			return fmt.Errorf("%s event without session or share id", m.Type)
		}
	case EventSessionsCleared:
	default:
		return fmt.Errorf("unknown event type %q", m.Type)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *SessionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SessionEventFromJSON decodes and validates an event.
func SessionEventFromJSON(data []byte) (*SessionEvent, error) {
	var msg SessionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
