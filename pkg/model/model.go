// Package model holds the JSON shapes of the contacts API for clients of the service.
package model

import "time"

// Contact is a contact as returned by the API. Optional fields are nil when not set.
type Contact struct {
	Id        string    `json:"id"`
	Owner     string    `json:"owner"`
	Name      string    `json:"name"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Type      *string   `json:"type,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Message is the body of confirmations and of most error responses.
type Message struct {
	Msg string `json:"msg"`
}

// FieldError is one entry of a validation error response.
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

// ValidationErrors is the body of a 400 response to an invalid contact.
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}
