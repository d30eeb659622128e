package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oakstreet-digital/business-site-backend/internal/domain"
	"github.com/oakstreet-digital/business-site-backend/internal/events"
	"github.com/oakstreet-digital/business-site-backend/internal/repository"
	"github.com/oakstreet-digital/business-site-backend/internal/validate"
	"github.com/oakstreet-digital/business-site-backend/pkg/util"
)

// ContactService accepts public submissions and reports aggregate stats.
type ContactService struct {
	contacts   repository.ContactRepository
	dispatcher events.Dispatcher
}

// NewContactService constructs the service.
func NewContactService(contacts repository.ContactRepository, dispatcher events.Dispatcher) *ContactService {
	return &ContactService{contacts: contacts, dispatcher: dispatcher}
}

// SubmitInput describes a contact form submission. Phone is optional.
type SubmitInput struct {
	Name    string
	Email   string
	Phone   string
	Subject string
	Message string
}

type submitValidation struct {
	Name    string `validate:"required"`
	Email   string `validate:"required,email"`
	Subject string `validate:"required"`
	Message string `validate:"required"`
}

// ContactStats aggregates submission counts. ByStatus contains every status
// value, zero-filled.
type ContactStats struct {
	Total    int64
	ByStatus map[domain.ContactStatus]int64
}

// Submit validates and stores a new submission with status "new".
func (s *ContactService) Submit(ctx context.Context, input SubmitInput) (*domain.Contact, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	phone := strings.TrimSpace(input.Phone)
	subject := strings.TrimSpace(input.Subject)
	message := strings.TrimSpace(input.Message)

	if violations := validate.Struct(submitValidation{
		Name:    name,
		Email:   email,
		Subject: subject,
		Message: message,
	}); violations != nil {
		return nil, util.NewValidationError("validation failed", violations)
	}

	contact := &domain.Contact{
		Name:    name,
		Email:   email,
		Subject: subject,
		Message: message,
		Status:  domain.ContactStatusNew,
	}
	if phone != "" {
		contact.Phone = &phone
	}

	if err := s.contacts.Create(ctx, contact); err != nil {
		return nil, util.NewInternalError(err)
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventContactSubmitted,
		ContactID: contact.ID,
		Payload: events.ContactSubmittedPayload{
			Name:    contact.Name,
			Email:   contact.Email,
			Subject: contact.Subject,
		},
	})
	return contact, nil
}

// Stats returns the total submission count and the per-status breakdown.
func (s *ContactService) Stats(ctx context.Context) (*ContactStats, error) {
	total, err := s.contacts.Count(ctx)
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	byStatus, err := s.contacts.CountByStatus(ctx)
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	return &ContactStats{Total: total, ByStatus: byStatus}, nil
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = dispatcher.Publish(ctx, event)
}
