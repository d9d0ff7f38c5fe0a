// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing HTMX responses.
// It provides a type-safe, fluent API for building HX-Trigger headers and
// consistent response formatting.

package http

import (
	"encoding/json"
	"html/template"
	"net/http"
)

// HTMXResponseBuilder provides a fluent API for building HTMX responses.
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

// TriggerTransactionCreated adds the transaction:created trigger with the imprest id.
func (b *HTMXResponseBuilder) TriggerTransactionCreated(imprestID string) *HTMXResponseBuilder {
	return b.Trigger("transaction:created", map[string]string{"imprest": imprestID})
}

// TriggerTransactionDeleted adds the transaction:deleted trigger with the imprest id.
func (b *HTMXResponseBuilder) TriggerTransactionDeleted(imprestID string) *HTMXResponseBuilder {
	return b.Trigger("transaction:deleted", map[string]string{"imprest": imprestID})
}

// TriggerImprestCreated adds the imprest:created trigger.
func (b *HTMXResponseBuilder) TriggerImprestCreated() *HTMXResponseBuilder {
	return b.Trigger("imprest:created", struct{}{})
}

// TriggerProposalCreated adds the proposal:created trigger.
func (b *HTMXResponseBuilder) TriggerProposalCreated() *HTMXResponseBuilder {
	return b.Trigger("proposal:created", struct{}{})
}

// TriggerProposalUpdated adds the proposal:updated trigger with the new status.
func (b *HTMXResponseBuilder) TriggerProposalUpdated(proposalID, status string) *HTMXResponseBuilder {
	return b.Trigger("proposal:updated", map[string]string{"id": proposalID, "status": status})
}

// TriggerUserCreated adds the user:created trigger.
func (b *HTMXResponseBuilder) TriggerUserCreated() *HTMXResponseBuilder {
	return b.Trigger("user:created", struct{}{})
}

// Refresh sets the HX-Refresh header so the page re-fetches everything
// from the server after a mutation.
func (b *HTMXResponseBuilder) Refresh() *HTMXResponseBuilder {
	return b.Header("HX-Refresh", "true")
}

// Redirect sets the HX-Redirect header to navigate the page.
func (b *HTMXResponseBuilder) Redirect(location string) *HTMXResponseBuilder {
	return b.Header("HX-Redirect", location)
}

// Header adds a custom header to the response.
func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the response body as bytes.
func (b *HTMXResponseBuilder) Body(content []byte) *HTMXResponseBuilder {
	b.body = content
	return b
}

// BodyString sets the response body as a string.
func (b *HTMXResponseBuilder) BodyString(content string) *HTMXResponseBuilder {
	b.body = []byte(content)
	return b
}

// BodyHTML sets the response body as HTML content.
func (b *HTMXResponseBuilder) BodyHTML(html string) *HTMXResponseBuilder {
	b.headers["Content-Type"] = "text/html; charset=utf-8"
	b.body = []byte(html)
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	// Set custom headers
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	// Build and set HX-Trigger header if there are triggers
	if len(b.triggers) > 0 {
		triggerJSON, err := json.Marshal(b.triggers)
		if err == nil {
			w.Header().Set("HX-Trigger", string(triggerJSON))
		}
	}

	// Write status code and body
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse creates a standard error response with HTML formatting.
// The message is HTML-escaped for safety.
func ErrorResponse(statusCode int, message string) *HTMXResponseBuilder {
	escapedMsg := template.HTMLEscapeString(message)
	return NewHTMXResponse().
		Status(statusCode).
		BodyHTML(`<div class="error">` + escapedMsg + `</div>`)
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
