package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/oakstreet-digital/business-site-backend/internal/api/dto"
	"github.com/oakstreet-digital/business-site-backend/internal/service"
	"github.com/oakstreet-digital/business-site-backend/pkg/util"
)

// ContactHandler exposes the public contact-form endpoints.
type ContactHandler struct {
	contacts *service.ContactService
}

// NewContactHandler constructs the handler.
func NewContactHandler(contactService *service.ContactService) *ContactHandler {
	return &ContactHandler{contacts: contactService}
}

// Submit handles POST /api/contact/submit.
func (h *ContactHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitContactRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}

	contact, err := h.contacts.Submit(c.UserContext(), service.SubmitInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message":   "Contact form submitted successfully",
		"contactId": contact.ID,
	})
}

// Stats handles GET /api/contact/stats.
func (h *ContactHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.contacts.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"totalContacts":   stats.Total,
		"statusBreakdown": stats.ByStatus,
	})
}
