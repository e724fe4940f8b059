package api

import (
	"github.com/gofiber/fiber/v2"

	"docchunker/service"
	"docchunker/types"
)

type SessionHandler struct {
	svc *service.Service
}

func NewSessionHandler(svc *service.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

func (h *SessionHandler) HandleGetSession(c *fiber.Ctx) error {
	return c.JSON(h.svc.Session(c.Params("sessionId")))
}

func (h *SessionHandler) HandleGetMessages(c *fiber.Ctx) error {
	return c.JSON(h.svc.Messages(c.Params("sessionId")))
}

func (h *SessionHandler) HandleView(c *fiber.Ctx) error {
	var params types.ViewParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}

	sessionID := c.Params("sessionId")
	if err := h.svc.View(c.UserContext(), sessionID, params.DocumentID); err != nil {
		return err
	}
	return c.JSON(h.svc.Session(sessionID))
}

func (h *SessionHandler) HandleSelect(c *fiber.Ctx) error {
	var params types.SelectionParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}

	sessionID := c.Params("sessionId")
	if err := h.svc.Select(sessionID, params.ChunkIDs, params.Selected); err != nil {
		return err
	}
	return c.JSON(h.svc.Session(sessionID))
}

func (h *SessionHandler) HandleSelectAll(c *fiber.Ctx) error {
	var params types.SelectAllParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	sessionID := c.Params("sessionId")
	if err := h.svc.SelectAll(c.UserContext(), sessionID, params.Selected); err != nil {
		return err
	}
	return c.JSON(h.svc.Session(sessionID))
}
