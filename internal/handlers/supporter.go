package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localrally/petitiond/internal/middleware"
	"github.com/localrally/petitiond/internal/services"
	"github.com/localrally/petitiond/internal/types"
	"github.com/localrally/petitiond/internal/utils"
)

// SupporterHandler handles supporter registration and listing routes
type SupporterHandler struct {
	Supporters *services.SupporterService
}

// GetSupporters handles GET /api/v1/petitions/:id/supporters
// @Summary List supporters
// @Description Get all supporters of a petition, most recent pledge first
// @Tags Supporters
// @Produce json
// @Param id path int true "Petition ID"
// @Success 200 {array} services.SupporterView
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /petitions/{id}/supporters [get]
func (h *SupporterHandler) GetSupporters(c *fiber.Ctx) error {
	petitionID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	supporters, err := h.Supporters.List(c.Context(), petitionID)
	if err != nil {
		return respondError(c, err)
	}

	return utils.SuccessResponse(c, supporters, fiber.StatusOK)
}

// AddSupporter handles POST /api/v1/petitions/:id/supporters
// @Summary Support a petition
// @Description Place an immutable pledge at one of the petition's tiers
// @Tags Supporters
// @Accept json
// @Produce json
// @Param id path int true "Petition ID"
// @Param body body object true "Pledge submission"
// @Success 201 {object} map[string]int64
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security ApiKeyAuth
// @Router /petitions/{id}/supporters [post]
func (h *SupporterHandler) AddSupporter(c *fiber.Ctx) error {
	petitionID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var body struct {
		SupportTierID types.FlexInt64 `json:"supportTierId"`
		Message       *string         `json:"message"`
	}
	if err := c.BodyParser(&body); err != nil {
		return respondError(c, types.NewError(types.InvalidRequest, "malformed request body: %v", err))
	}

	supportID, err := h.Supporters.Register(c.Context(), middleware.CallerID(c), petitionID, services.RegisterSupportInput{
		SupportTierID: body.SupportTierID.Int64(),
		Message:       body.Message,
	})
	if err != nil {
		return respondError(c, err)
	}

	return utils.SuccessResponse(c, fiber.Map{"supportId": supportID}, fiber.StatusCreated)
}
