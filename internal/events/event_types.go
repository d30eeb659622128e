package events

import (
	"time"

	"github.com/oakstreet-digital/business-site-backend/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventContactSubmitted     EventType = "contact_submitted"
	EventContactStatusChanged EventType = "contact_status_changed"
	EventContactDeleted       EventType = "contact_deleted"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ContactID string      `json:"contact_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ContactSubmittedPayload payload.
type ContactSubmittedPayload struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
}

// ContactStatusChangedPayload payload.
type ContactStatusChangedPayload struct {
	OldStatus domain.ContactStatus `json:"old_status"`
	NewStatus domain.ContactStatus `json:"new_status"`
}

// ContactDeletedPayload payload.
type ContactDeletedPayload struct {
	Subject string `json:"subject"`
}
