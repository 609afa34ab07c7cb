package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localrally/petitiond/internal/middleware"
	"github.com/localrally/petitiond/internal/services"
	"github.com/localrally/petitiond/internal/types"
	"github.com/localrally/petitiond/internal/utils"
)

// SupportTierHandler handles support tier lifecycle routes
type SupportTierHandler struct {
	Tiers *services.TierService
}

// AddSupportTier handles PUT /api/v1/petitions/:id/supportTiers
// @Summary Add a support tier
// @Description Append a tier to a petition owned by the caller; at most three tiers
// @Tags SupportTiers
// @Accept json
// @Produce json
// @Param id path int true "Petition ID"
// @Param body body object true "Tier content"
// @Success 201 {object} map[string]int64
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security ApiKeyAuth
// @Router /petitions/{id}/supportTiers [put]
func (h *SupportTierHandler) AddSupportTier(c *fiber.Ctx) error {
	petitionID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var body tierSpecBody
	if err := c.BodyParser(&body); err != nil {
		return respondError(c, types.NewError(types.InvalidRequest, "malformed request body: %v", err))
	}

	tierID, err := h.Tiers.Add(c.Context(), middleware.CallerID(c), petitionID, services.TierSpec{
		Title:       body.Title,
		Description: body.Description,
		Cost:        body.Cost,
	})
	if err != nil {
		return respondError(c, err)
	}

	return utils.SuccessResponse(c, fiber.Map{"supportTierId": tierID}, fiber.StatusCreated)
}

// EditSupportTier handles PATCH /api/v1/petitions/:id/supportTiers/:tierId
// @Summary Edit a support tier
// @Description Partially update a tier; fails once the tier has supporters
// @Tags SupportTiers
// @Accept json
// @Produce json
// @Param id path int true "Petition ID"
// @Param tierId path int true "Support tier ID"
// @Param body body object true "Fields to change"
// @Success 200
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security ApiKeyAuth
// @Router /petitions/{id}/supportTiers/{tierId} [patch]
func (h *SupportTierHandler) EditSupportTier(c *fiber.Ctx) error {
	petitionID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	tierID, err := pathID(c, "tierId")
	if err != nil {
		return respondError(c, err)
	}

	var body services.TierPatch
	if err := c.BodyParser(&body); err != nil {
		return respondError(c, types.NewError(types.InvalidRequest, "malformed request body: %v", err))
	}

	if err := h.Tiers.Edit(c.Context(), middleware.CallerID(c), petitionID, tierID, body); err != nil {
		return respondError(c, err)
	}

	return utils.SuccessResponse(c, fiber.Map{"message": "Support tier updated"}, fiber.StatusOK)
}

// DeleteSupportTier handles DELETE /api/v1/petitions/:id/supportTiers/:tierId
// @Summary Delete a support tier
// @Description Remove a tier; fails once it has supporters or is the only tier left
// @Tags SupportTiers
// @Produce json
// @Param id path int true "Petition ID"
// @Param tierId path int true "Support tier ID"
// @Success 200
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security ApiKeyAuth
// @Router /petitions/{id}/supportTiers/{tierId} [delete]
func (h *SupportTierHandler) DeleteSupportTier(c *fiber.Ctx) error {
	petitionID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	tierID, err := pathID(c, "tierId")
	if err != nil {
		return respondError(c, err)
	}

	if err := h.Tiers.Delete(c.Context(), middleware.CallerID(c), petitionID, tierID); err != nil {
		return respondError(c, err)
	}

	return utils.SuccessResponse(c, fiber.Map{"message": "Support tier deleted"}, fiber.StatusOK)
}
