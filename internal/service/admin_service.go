package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/oakstreet-digital/business-site-backend/internal/auth"
	"github.com/oakstreet-digital/business-site-backend/internal/domain"
	"github.com/oakstreet-digital/business-site-backend/internal/events"
	"github.com/oakstreet-digital/business-site-backend/internal/repository"
	"github.com/oakstreet-digital/business-site-backend/pkg/util"
)

// AdminService exposes owner-only operations over submissions and users.
// Every method takes the caller's verified claims explicitly and checks the
// owner role before touching storage.
type AdminService struct {
	contacts   repository.ContactRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
}

// NewAdminService constructs the service.
func NewAdminService(contacts repository.ContactRepository, users repository.UserRepository, dispatcher events.Dispatcher) *AdminService {
	return &AdminService{contacts: contacts, users: users, dispatcher: dispatcher}
}

// ListParams captures admin listing query parameters. Zero values fall back
// to page 1, limit 20, all statuses, no search.
type ListParams struct {
	Page   int
	Limit  int
	Status string
	Search string
}

// Pagination describes the page metadata returned alongside a contact list.
type Pagination struct {
	CurrentPage   int
	TotalPages    int
	TotalContacts int64
	HasNext       bool
	HasPrev       bool
}

// ContactPage bundles a page of contacts with its pagination metadata.
type ContactPage struct {
	Contacts   []domain.Contact
	Pagination Pagination
}

// DashboardStats aggregates the admin dashboard numbers.
type DashboardStats struct {
	TotalContacts  int64
	TotalUsers     int64
	RecentContacts int64
	ByStatus       map[domain.ContactStatus]int64
}

// List returns a filtered, paginated page of submissions, newest first.
func (s *AdminService) List(ctx context.Context, claims *auth.Claims, params ListParams) (*ContactPage, error) {
	if err := auth.RequireRole(claims, domain.RoleOwner); err != nil {
		return nil, err
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	limit := params.Limit
	if limit < 1 {
		limit = 20
	}

	filter := repository.ContactFilter{
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
	if status := strings.TrimSpace(params.Status); status != "" && status != "all" {
		parsed := domain.ContactStatus(status)
		if !parsed.Valid() {
			return nil, util.NewValidationError("validation failed",
				[]string{fmt.Sprintf("status must be one of new, read, replied, closed or all, got %q", status)})
		}
		filter.Status = &parsed
	}
	if search := strings.TrimSpace(params.Search); search != "" {
		filter.Search = &search
	}

	contacts, total, err := s.contacts.List(ctx, filter)
	if err != nil {
		return nil, util.NewInternalError(err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &ContactPage{
		Contacts: contacts,
		Pagination: Pagination{
			CurrentPage:   page,
			TotalPages:    totalPages,
			TotalContacts: total,
			HasNext:       page < totalPages,
			HasPrev:       page > 1,
		},
	}, nil
}

// Get fetches one submission by id.
func (s *AdminService) Get(ctx context.Context, claims *auth.Claims, id string) (*domain.Contact, error) {
	if err := auth.RequireRole(claims, domain.RoleOwner); err != nil {
		return nil, err
	}
	return s.getContact(ctx, id)
}

// UpdateStatus sets a submission's status. Any status may replace any other;
// only enum membership is checked.
func (s *AdminService) UpdateStatus(ctx context.Context, claims *auth.Claims, id, status string) (*domain.Contact, error) {
	if err := auth.RequireRole(claims, domain.RoleOwner); err != nil {
		return nil, err
	}

	newStatus := domain.ContactStatus(strings.TrimSpace(status))
	if !newStatus.Valid() {
		return nil, util.NewValidationError("validation failed",
			[]string{fmt.Sprintf("status must be one of new, read, replied, closed, got %q", status)})
	}

	contact, err := s.getContact(ctx, id)
	if err != nil {
		return nil, err
	}

	oldStatus := contact.Status
	contact.Status = newStatus
	if err := s.updateContact(ctx, contact); err != nil {
		return nil, err
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventContactStatusChanged,
		ContactID: contact.ID,
		Payload: events.ContactStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
		},
	})
	return contact, nil
}

// AddNote appends an administrative note to the submission's message body.
// There is no separate notes entity; the note is concatenated with a
// timestamped separator.
func (s *AdminService) AddNote(ctx context.Context, claims *auth.Claims, id, note string) (*domain.Contact, error) {
	if err := auth.RequireRole(claims, domain.RoleOwner); err != nil {
		return nil, err
	}

	note = strings.TrimSpace(note)
	if note == "" {
		return nil, util.NewValidationError("validation failed", []string{"note is required"})
	}

	contact, err := s.getContact(ctx, id)
	if err != nil {
		return nil, err
	}

	contact.Message = fmt.Sprintf("%s\n\n--- Note (%s) ---\n%s",
		contact.Message, time.Now().Format(time.RFC3339), note)
	if err := s.updateContact(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

// Delete permanently removes a submission. No soft-delete, no undo.
func (s *AdminService) Delete(ctx context.Context, claims *auth.Claims, id string) error {
	if err := auth.RequireRole(claims, domain.RoleOwner); err != nil {
		return err
	}

	contact, err := s.getContact(ctx, id)
	if err != nil {
		return err
	}
	if err := s.contacts.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return util.NewNotFound("contact")
		}
		return util.NewInternalError(err)
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventContactDeleted,
		ContactID: contact.ID,
		Payload:   events.ContactDeletedPayload{Subject: contact.Subject},
	})
	return nil
}

// DashboardStats reports totals for the admin dashboard, including the count
// of submissions created within the trailing seven days.
func (s *AdminService) DashboardStats(ctx context.Context, claims *auth.Claims) (*DashboardStats, error) {
	if err := auth.RequireRole(claims, domain.RoleOwner); err != nil {
		return nil, err
	}

	totalContacts, err := s.contacts.Count(ctx)
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	totalUsers, err := s.users.Count(ctx)
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	recent, err := s.contacts.CountCreatedSince(ctx, time.Now().AddDate(0, 0, -7))
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	byStatus, err := s.contacts.CountByStatus(ctx)
	if err != nil {
		return nil, util.NewInternalError(err)
	}

	return &DashboardStats{
		TotalContacts:  totalContacts,
		TotalUsers:     totalUsers,
		RecentContacts: recent,
		ByStatus:       byStatus,
	}, nil
}

// ListUsers returns every account, newest first. Callers render the public
// projection; password hashes never leave the handler layer.
func (s *AdminService) ListUsers(ctx context.Context, claims *auth.Claims) ([]domain.User, error) {
	if err := auth.RequireRole(claims, domain.RoleOwner); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	return users, nil
}

func (s *AdminService) getContact(ctx context.Context, id string) (*domain.Contact, error) {
	contact, err := s.contacts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("contact")
		}
		return nil, util.NewInternalError(err)
	}
	return contact, nil
}

func (s *AdminService) updateContact(ctx context.Context, contact *domain.Contact) error {
	if err := s.contacts.Update(ctx, contact); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return util.NewNotFound("contact")
		}
		return util.NewInternalError(err)
	}
	return nil
}
