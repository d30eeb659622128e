package domain

import "time"

// ContactStatus enumerates review states for a submission.
type ContactStatus string

const (
	ContactStatusNew     ContactStatus = "new"
	ContactStatusRead    ContactStatus = "read"
	ContactStatusReplied ContactStatus = "replied"
	ContactStatusClosed  ContactStatus = "closed"
)

// ContactStatuses lists every status in display order. Aggregations include
// all four entries even when a count is zero.
var ContactStatuses = []ContactStatus{
	ContactStatusNew,
	ContactStatusRead,
	ContactStatusReplied,
	ContactStatusClosed,
}

// Valid reports whether the status is one of the enumerated values.
func (s ContactStatus) Valid() bool {
	switch s {
	case ContactStatusNew, ContactStatusRead, ContactStatusReplied, ContactStatusClosed:
		return true
	}
	return false
}

// Contact is a contact-form submission created by an unauthenticated visitor.
// Status moves between any two values at the owner's discretion; no transition
// order is enforced.
type Contact struct {
	ID        string
	Name      string
	Email     string
	Phone     *string
	Subject   string
	Message   string
	Status    ContactStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
