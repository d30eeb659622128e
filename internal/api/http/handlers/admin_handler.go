package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/oakstreet-digital/business-site-backend/internal/api/dto"
	"github.com/oakstreet-digital/business-site-backend/internal/auth"
	"github.com/oakstreet-digital/business-site-backend/internal/service"
	"github.com/oakstreet-digital/business-site-backend/pkg/util"
)

// AdminHandler exposes the owner-only dashboard endpoints. Claims are pulled
// from the request and handed to the service explicitly; the role check lives
// in the service.
type AdminHandler struct {
	admin *service.AdminService
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: adminService}
}

// List handles GET /api/admin/contacts.
func (h *AdminHandler) List(c *fiber.Ctx) error {
	claims, _ := auth.ClaimsFromContext(c)

	page, err := h.admin.List(c.UserContext(), claims, service.ListParams{
		Page:   queryInt(c, "page", 1),
		Limit:  queryInt(c, "limit", 20),
		Status: c.Query("status"),
		Search: c.Query("search"),
	})
	if err != nil {
		return err
	}

	contacts := make([]dto.ContactResponse, 0, len(page.Contacts))
	for i := range page.Contacts {
		contacts = append(contacts, dto.NewContactResponse(&page.Contacts[i]))
	}
	return c.JSON(fiber.Map{
		"contacts": contacts,
		"pagination": dto.PaginationResponse{
			CurrentPage:   page.Pagination.CurrentPage,
			TotalPages:    page.Pagination.TotalPages,
			TotalContacts: page.Pagination.TotalContacts,
			HasNext:       page.Pagination.HasNext,
			HasPrev:       page.Pagination.HasPrev,
		},
	})
}

// Get handles GET /api/admin/contacts/:id.
func (h *AdminHandler) Get(c *fiber.Ctx) error {
	claims, _ := auth.ClaimsFromContext(c)
	contact, err := h.admin.Get(c.UserContext(), claims, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"contact": dto.NewContactResponse(contact)})
}

// UpdateStatus handles PUT /api/admin/contacts/:id/status.
func (h *AdminHandler) UpdateStatus(c *fiber.Ctx) error {
	claims, _ := auth.ClaimsFromContext(c)

	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}

	if _, err := h.admin.UpdateStatus(c.UserContext(), claims, c.Params("id"), req.Status); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Contact status updated successfully"})
}

// AddNote handles POST /api/admin/contacts/:id/note.
func (h *AdminHandler) AddNote(c *fiber.Ctx) error {
	claims, _ := auth.ClaimsFromContext(c)

	var req dto.AddNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}

	if _, err := h.admin.AddNote(c.UserContext(), claims, c.Params("id"), req.Note); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Note added successfully"})
}

// Delete handles DELETE /api/admin/contacts/:id.
func (h *AdminHandler) Delete(c *fiber.Ctx) error {
	claims, _ := auth.ClaimsFromContext(c)
	if err := h.admin.Delete(c.UserContext(), claims, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Contact deleted successfully"})
}

// Dashboard handles GET /api/admin/dashboard.
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	claims, _ := auth.ClaimsFromContext(c)
	stats, err := h.admin.DashboardStats(c.UserContext(), claims)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"totalContacts":   stats.TotalContacts,
		"totalUsers":      stats.TotalUsers,
		"recentContacts":  stats.RecentContacts,
		"statusBreakdown": stats.ByStatus,
	})
}

// Users handles GET /api/admin/users.
func (h *AdminHandler) Users(c *fiber.Ctx) error {
	claims, _ := auth.ClaimsFromContext(c)
	users, err := h.admin.ListUsers(c.UserContext(), claims)
	if err != nil {
		return err
	}

	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		result = append(result, dto.NewUserResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"users": result})
}

func queryInt(c *fiber.Ctx, key string, def int) int {
	val := c.Query(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
