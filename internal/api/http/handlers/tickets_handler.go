package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticketing/internal/auth"
	"github.com/spec-kit/ticketing/internal/domain"
	"github.com/spec-kit/ticketing/internal/service"
	"github.com/spec-kit/ticketing/internal/web"
	apperrors "github.com/spec-kit/ticketing/pkg/util"
)

// TicketsPath is the list view every dead end falls back to.
const TicketsPath = "/tickets"

// TicketsHandler serves the ticket pages.
type TicketsHandler struct {
	service  *service.TicketService
	policy   auth.ClosePolicy
	tokens   *auth.FormTokens
	renderer *web.Renderer
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, policy auth.ClosePolicy, tokens *auth.FormTokens, renderer *web.Renderer) *TicketsHandler {
	if policy == nil {
		policy = auth.AllowAuthenticated{}
	}
	return &TicketsHandler{service: ticketService, policy: policy, tokens: tokens, renderer: renderer}
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	ctx := c.UserContext()
	filter := domain.ParseStatusFilter(c.Query("status"))

	tickets, err := h.service.ListTickets(ctx, filter)
	if err != nil {
		return err
	}
	stats, err := h.service.Stats(ctx)
	if err != nil {
		return err
	}

	page, err := h.page(c, "Tickets")
	if err != nil {
		return err
	}
	page.Data = fiber.Map{"Tickets": tickets, "Stats": stats, "Filter": filter}
	return h.renderer.Render(c, fiber.StatusOK, "tickets", page)
}

// NewTicketForm GET /ticket_new.
func (h *TicketsHandler) NewTicketForm(c *fiber.Ctx) error {
	return h.renderForm(c, fiber.StatusOK, "", "", "")
}

// CreateTicket POST /ticket_new.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return c.Redirect(auth.LoginPath, fiber.StatusFound)
	}

	title := c.FormValue("title")
	description := c.FormValue("description")
	ticket, err := h.service.CreateTicket(c.UserContext(), *principal, service.TicketCreateInput{
		Title:       title,
		Description: description,
	})
	if err != nil {
		if apperrors.IsCode(err, "VALIDATION_FAILED") {
			de := apperrors.ToDomainError(err)
			return h.renderForm(c, de.HTTPStatus, title, description, de.Message)
		}
		return err
	}

	return c.Redirect(viewPath(ticket.ID), fiber.StatusSeeOther)
}

// GetTicket GET /ticket_view?id=N.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return c.Redirect(auth.LoginPath, fiber.StatusFound)
	}

	id, ok := parseID(c.Query("id"))
	if !ok {
		return c.Redirect(TicketsPath, fiber.StatusFound)
	}

	ticket, err := h.service.GetTicket(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, service.ErrTicketNotFound) {
			return c.Redirect(TicketsPath, fiber.StatusFound)
		}
		return err
	}

	page, err := h.page(c, "Ticket #"+strconv.FormatInt(ticket.ID, 10))
	if err != nil {
		return err
	}
	page.Data = fiber.Map{
		"Ticket":   ticket,
		"CanClose": ticket.IsOpen() && h.policy.CanClose(*principal, &ticket.Ticket),
	}
	return h.renderer.Render(c, fiber.StatusOK, "ticket_view", page)
}

// CloseTicket POST /ticket_close.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return c.Redirect(auth.LoginPath, fiber.StatusFound)
	}

	id, ok := parseID(c.FormValue("ticket_id"))
	if !ok {
		return c.Redirect(TicketsPath, fiber.StatusFound)
	}

	if _, err := h.service.CloseTicket(c.UserContext(), *principal, id); err != nil {
		if errors.Is(err, service.ErrTicketNotFound) {
			return c.Redirect(TicketsPath, fiber.StatusFound)
		}
		return err
	}
	return c.Redirect(viewPath(id), fiber.StatusSeeOther)
}

// RedirectToList answers requests that only make sense as a POST.
func (h *TicketsHandler) RedirectToList(c *fiber.Ctx) error {
	return c.Redirect(TicketsPath, fiber.StatusFound)
}

func (h *TicketsHandler) renderForm(c *fiber.Ctx, status int, title, description, message string) error {
	page, err := h.page(c, "New ticket")
	if err != nil {
		return err
	}
	page.Error = message
	page.Data = fiber.Map{"Title": title, "Description": description}
	return h.renderer.Render(c, status, "ticket_new", page)
}

// page fills the header and a fresh form token for the signed-in user.
func (h *TicketsHandler) page(c *fiber.Ctx, title string) (web.Page, error) {
	page := web.Page{Title: title}
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return page, nil
	}
	page.Viewer = &web.Viewer{Name: principal.Name, Email: principal.Email}

	token, err := h.tokens.Issue(principal.UserID)
	if err != nil {
		return page, err
	}
	page.CSRFToken = token
	return page, nil
}

func viewPath(id int64) string {
	return "/ticket_view?id=" + strconv.FormatInt(id, 10)
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
