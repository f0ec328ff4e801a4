package handlers

import (
	"strconv"

	"vaultpay/internal/services/creditcard"
	"vaultpay/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type CardHandler struct {
	cardService creditcard.Service
}

func NewCardHandler(cardService creditcard.Service) *CardHandler {
	return &CardHandler{cardService: cardService}
}

func cardIDParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, fiber.ErrBadRequest
	}
	return uint(id), nil
}

// Link tokenizes card details and stores the token. The raw number
// exists only for the duration of this request.
func (h *CardHandler) Link(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		CardNumber  string `json:"card_number"`
		ExpiryMonth string `json:"expiry_month"`
		ExpiryYear  string `json:"expiry_year"`
		CVV         string `json:"cvv"`
		MakeDefault bool   `json:"make_default"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	card, err := h.cardService.LinkCard(c.UserContext(), claims.UserID, creditcard.LinkCardParams{
		CardNumber:  input.CardNumber,
		ExpiryMonth: input.ExpiryMonth,
		ExpiryYear:  input.ExpiryYear,
		CVV:         input.CVV,
		MakeDefault: input.MakeDefault,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Respond(c, fiber.StatusCreated, fiber.Map{"card": cardView(card)})
}

func (h *CardHandler) List(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	cards, err := h.cardService.ListCards(c.UserContext(), claims.UserID)
	if err != nil {
		return serviceError(c, err)
	}
	views := make([]fiber.Map, 0, len(cards))
	for _, card := range cards {
		views = append(views, cardView(card))
	}
	return utils.Success(c, fiber.Map{"cards": views})
}

func (h *CardHandler) Remove(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	cardID, err := cardIDParam(c)
	if err != nil {
		return utils.BadRequest(c, "invalid card id")
	}
	if err := h.cardService.RemoveCard(c.UserContext(), claims.UserID, cardID); err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.Map{"message": "card removed"})
}

func (h *CardHandler) SetDefault(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	cardID, err := cardIDParam(c)
	if err != nil {
		return utils.BadRequest(c, "invalid card id")
	}
	if err := h.cardService.SetDefaultCard(c.UserContext(), claims.UserID, cardID); err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.Map{"message": "default card updated"})
}
