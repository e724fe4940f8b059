package api

import (
	"github.com/gofiber/fiber/v2"

	"docchunker/service"
	"docchunker/types"
)

type ChatHandler struct {
	svc *service.Service
}

func NewChatHandler(svc *service.Service) *ChatHandler {
	return &ChatHandler{svc: svc}
}

func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var params types.ChatParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}

	resp, err := h.svc.Chat(c.UserContext(), params)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}
