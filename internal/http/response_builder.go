// Package http provides the JSON API of the billiard session splitter.
//
// This file implements the Builder Pattern for constructing API responses.
// It provides a fluent API for building HX-Trigger headers so HTMX front
// ends can refresh their panels after a mutation.

package http

import (
	"encoding/json"
	"net/http"
)

// HX-Trigger event names emitted after mutations.
const (
	EventSessionCreated = "session:created"
	EventSessionDeleted = "session:deleted"
	EventHistoryCleared = "history:cleared"
	EventSharePaid      = "share:paid"
)

// HTMXResponseBuilder provides a fluent API for building API responses.
// It encapsulates the construction of HX-Trigger headers and response bodies.
type HTMXResponseBuilder struct {
	triggers   map[string]interface{}
	statusCode int
	body       []byte
	headers    map[string]string
}

// NewHTMXResponse creates a new response builder with default 200 status.
func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		triggers:   make(map[string]interface{}),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named trigger with optional data to the HX-Trigger header.
func (b *HTMXResponseBuilder) Trigger(name string, data interface{}) *HTMXResponseBuilder {
	b.triggers[name] = data
	return b
}

// TriggerSessionCreated adds the session:created trigger with the session's
// id and month so the summary panel can refresh.
func (b *HTMXResponseBuilder) TriggerSessionCreated(id, month string) *HTMXResponseBuilder {
	return b.Trigger(EventSessionCreated, map[string]string{"id": id, "month": month})
}

// TriggerSessionDeleted adds the session:deleted trigger.
func (b *HTMXResponseBuilder) TriggerSessionDeleted(id string) *HTMXResponseBuilder {
	return b.Trigger(EventSessionDeleted, map[string]string{"id": id})
}

// TriggerHistoryCleared adds the history:cleared trigger with the number of
// removed sessions.
func (b *HTMXResponseBuilder) TriggerHistoryCleared(removed int64) *HTMXResponseBuilder {
	return b.Trigger(EventHistoryCleared, map[string]int64{"removed": removed})
}

// TriggerSharePaid adds the share:paid trigger with the new paid flag.
func (b *HTMXResponseBuilder) TriggerSharePaid(sessionID, shareID string, paid bool) *HTMXResponseBuilder {
	return b.Trigger(EventSharePaid, map[string]interface{}{
		"sessionId": sessionID,
		"shareId":   shareID,
		"paid":      paid,
	})
}

// NotificationType represents the type of notification to display.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationWarning NotificationType = "warning"
	NotificationInfo    NotificationType = "info"
)

// TriggerNotification adds a show-notification trigger with the specified parameters.
func (b *HTMXResponseBuilder) TriggerNotification(notifType NotificationType, message string, durationMs int) *HTMXResponseBuilder {
	return b.Trigger("show-notification", map[string]interface{}{
		"type":     string(notifType),
		"message":  message,
		"duration": durationMs,
	})
}

// TriggerSuccessNotification is a convenience method for success notifications.
func (b *HTMXResponseBuilder) TriggerSuccessNotification(message string) *HTMXResponseBuilder {
	return b.TriggerNotification(NotificationSuccess, message, 3000)
}

// TriggerErrorNotification is a convenience method for error notifications.
func (b *HTMXResponseBuilder) TriggerErrorNotification(message string) *HTMXResponseBuilder {
	return b.TriggerNotification(NotificationError, message, 5000)
}

// Header adds a custom header to the response.
func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.headers[name] = value
	return b
}

// BodyJSON encodes v as the response body. Encoding failures turn the
// response into a 500.
func (b *HTMXResponseBuilder) BodyJSON(v interface{}) *HTMXResponseBuilder {
	data, err := json.Marshal(v)
	if err != nil {
		b.statusCode = http.StatusInternalServerError
		data = []byte(`{"error":"internal error"}`)
	}
	b.headers["Content-Type"] = "application/json"
	b.body = append(data, '\n')
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if len(b.triggers) > 0 {
		triggerJSON, err := json.Marshal(b.triggers)
		if err == nil {
			w.Header().Set("HX-Trigger", string(triggerJSON))
		}
	}

	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates a standard JSON error response.
func ErrorResponse(statusCode int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(statusCode).
		BodyJSON(errorBody{Error: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// UnprocessableEntityError creates a 422 Unprocessable Entity error response.
func UnprocessableEntityError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// ForbiddenError creates a 403 Forbidden error response.
func ForbiddenError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusForbidden, message)
}

// FromError maps err to its status code and a JSON error body.
func FromError(err error) *HTMXResponseBuilder {
	status := statusFor(err)
	return ErrorResponse(status, errorMessage(status, err))
}
