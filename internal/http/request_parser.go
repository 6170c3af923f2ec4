// Package http provides the JSON API of the billiard session splitter.
//
// This file implements utilities for parsing and validating request bodies.
// Numeric form fields arrive either as JSON numbers or as the raw strings a
// browser input produces, so both are accepted.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"billiard/internal/core"
)

// maxBodyBytes caps request bodies; a session with dozens of players stays
// far below it.
const maxBodyBytes = 1 << 20

var errEmptyBody = errors.New("request body is empty")

// flexNumber decodes a JSON number or a numeric string such as "1,5" or
// "2 jam". Unparseable strings decode to 0.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*n = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = flexNumber(core.ParseNumber(s))
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = flexNumber(f)
	return nil
}

type playerRequest struct {
	ID    int        `json:"id"`
	Name  string     `json:"name"`
	Hours flexNumber `json:"hours"`
}

// previewRequest is the body of POST /api/preview.
type previewRequest struct {
	TotalCost flexNumber      `json:"totalCost"`
	Players   []playerRequest `json:"players"`
}

// sessionRequest is the body of POST /api/sessions.
type sessionRequest struct {
	Date        string          `json:"date"`
	StartTime   string          `json:"startTime"`
	SessionName string          `json:"sessionName"`
	Location    string          `json:"location"`
	TotalHours  flexNumber      `json:"totalHours"`
	TotalCost   flexNumber      `json:"totalCost"`
	Players     []playerRequest `json:"players"`
}

func toPlayerInputs(in []playerRequest) []core.PlayerInput {
	out := make([]core.PlayerInput, 0, len(in))
	for i, p := range in {
		id := p.ID
		if id == 0 {
			id = i + 1
		}
		out = append(out, core.PlayerInput{
			ID:    id,
			Name:  sanitizeInput(p.Name),
			Hours: float64(p.Hours),
		})
	}
	return out
}

// Draft converts the request into a session draft. An empty date is left
// zero so validation reports it as missing.
func (r sessionRequest) Draft() (core.SessionDraft, error) {
	draft := core.SessionDraft{
		StartTime:   sanitizeInput(r.StartTime),
		SessionName: sanitizeInput(r.SessionName),
		Location:    sanitizeInput(r.Location),
		TotalHours:  float64(r.TotalHours),
		TotalCost:   float64(r.TotalCost),
		Players:     toPlayerInputs(r.Players),
	}
	if strings.TrimSpace(r.Date) != "" {
		d, err := parseDate(r.Date)
		if err != nil {
			return core.SessionDraft{}, err
		}
		draft.Date = d
	}
	return draft, nil
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return errEmptyBody
	}
	return json.Unmarshal(body, v)
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(trimmed, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(trimmed))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// GetBool returns a boolean field and whether it was present and valid.
func (p *RequestBodyParser) GetBool(key string) (value bool, ok bool) {
	raw := p.Get(key)
	if raw == "" {
		return false, false
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return b, true
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
