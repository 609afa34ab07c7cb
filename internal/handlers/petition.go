package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localrally/petitiond/internal/middleware"
	"github.com/localrally/petitiond/internal/services"
	"github.com/localrally/petitiond/internal/types"
	"github.com/localrally/petitiond/internal/utils"
)

// PetitionHandler handles petition collection and lifecycle routes
type PetitionHandler struct {
	Petitions *services.PetitionService
}

// tierSpecBody is one support tier as submitted in a request body.
type tierSpecBody struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Cost        float64 `json:"cost"`
}

func tierSpecs(bodies []tierSpecBody) []services.TierSpec {
	if bodies == nil {
		return nil
	}
	specs := make([]services.TierSpec, len(bodies))
	for i, b := range bodies {
		specs[i] = services.TierSpec{Title: b.Title, Description: b.Description, Cost: b.Cost}
	}
	return specs
}

// ListPetitions handles GET /api/v1/petitions
// @Summary List petitions
// @Description Filter, sort and paginate petitions
// @Tags Petitions
// @Produce json
// @Param q query string false "Substring match against the petition description"
// @Param categoryIds query string false "Category ids, repeatable or comma-separated"
// @Param ownerId query int false "Only petitions owned by this user"
// @Param supportingCost query number false "Only petitions with a tier at or below this cost"
// @Param supporterId query int false "Only petitions supported by this user"
// @Param sortBy query string false "Sort order" Enums(ALPHABETICAL_ASC, ALPHABETICAL_DESC, COST_ASC, COST_DESC, CREATED_ASC, CREATED_DESC)
// @Param startIndex query int false "Zero-based page offset"
// @Param count query int false "Page size"
// @Success 200 {object} services.PetitionList
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /petitions [get]
func (h *PetitionHandler) ListPetitions(c *fiber.Ctx) error {
	params := services.ListParams{
		Q:              queryParam(c, "q"),
		CategoryIDs:    parseCategoryIDs(c),
		OwnerID:        queryParam(c, "ownerId"),
		SupportingCost: queryParam(c, "supportingCost"),
		SupporterID:    queryParam(c, "supporterId"),
		SortBy:         queryParam(c, "sortBy"),
		StartIndex:     queryParam(c, "startIndex"),
		Count:          queryParam(c, "count"),
	}

	result, err := h.Petitions.List(c.Context(), params)
	if err != nil {
		return respondError(c, err)
	}

	return utils.SuccessResponse(c, result, fiber.StatusOK)
}

// GetPetition handles GET /api/v1/petitions/:id
// @Summary Get a petition
// @Description Get the full petition aggregate: fields, tiers and supporter totals
// @Tags Petitions
// @Produce json
// @Param id path int true "Petition ID"
// @Success 200 {object} services.PetitionDetail
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /petitions/{id} [get]
func (h *PetitionHandler) GetPetition(c *fiber.Ctx) error {
	petitionID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	detail, err := h.Petitions.Get(c.Context(), petitionID)
	if err != nil {
		return respondError(c, err)
	}

	return utils.SuccessResponse(c, detail, fiber.StatusOK)
}

// GetCategories handles GET /api/v1/petitions/categories
// @Summary List categories
// @Description Get all petition categories
// @Tags Petitions
// @Produce json
// @Success 200 {array} models.Category
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /petitions/categories [get]
func (h *PetitionHandler) GetCategories(c *fiber.Ctx) error {
	categories, err := h.Petitions.Categories(c.Context())
	if err != nil {
		return respondError(c, err)
	}

	return utils.SuccessResponse(c, categories, fiber.StatusOK)
}

// CreatePetition handles POST /api/v1/petitions
// @Summary Create a petition
// @Description Create a petition with one to three support tiers
// @Tags Petitions
// @Accept json
// @Produce json
// @Param body body object true "Petition submission"
// @Success 201 {object} map[string]int64
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security ApiKeyAuth
// @Router /petitions [post]
func (h *PetitionHandler) CreatePetition(c *fiber.Ctx) error {
	var body struct {
		Title        string          `json:"title"`
		Description  string          `json:"description"`
		CategoryID   types.FlexInt64 `json:"categoryId"`
		SupportTiers []tierSpecBody  `json:"supportTiers"`
	}
	if err := c.BodyParser(&body); err != nil {
		return respondError(c, types.NewError(types.InvalidRequest, "malformed request body: %v", err))
	}

	petitionID, err := h.Petitions.Create(c.Context(), middleware.CallerID(c), services.CreatePetitionInput{
		Title:        body.Title,
		Description:  body.Description,
		CategoryID:   body.CategoryID.Int64(),
		SupportTiers: tierSpecs(body.SupportTiers),
	})
	if err != nil {
		return respondError(c, err)
	}

	return utils.SuccessResponse(c, fiber.Map{"petitionId": petitionID}, fiber.StatusCreated)
}

// UpdatePetition handles PATCH /api/v1/petitions/:id
// @Summary Update a petition
// @Description Partially update a petition owned by the caller
// @Tags Petitions
// @Accept json
// @Produce json
// @Param id path int true "Petition ID"
// @Param body body object true "Fields to change"
// @Success 200
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security ApiKeyAuth
// @Router /petitions/{id} [patch]
func (h *PetitionHandler) UpdatePetition(c *fiber.Ctx) error {
	petitionID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var body struct {
		Title        *string          `json:"title"`
		Description  *string          `json:"description"`
		CategoryID   *types.FlexInt64 `json:"categoryId"`
		SupportTiers []tierSpecBody   `json:"supportTiers"`
	}
	if err := c.BodyParser(&body); err != nil {
		return respondError(c, types.NewError(types.InvalidRequest, "malformed request body: %v", err))
	}

	in := services.UpdatePetitionInput{
		Title:        body.Title,
		Description:  body.Description,
		SupportTiers: tierSpecs(body.SupportTiers),
	}
	if body.CategoryID != nil {
		categoryID := body.CategoryID.Int64()
		in.CategoryID = &categoryID
	}

	if err := h.Petitions.Update(c.Context(), middleware.CallerID(c), petitionID, in); err != nil {
		return respondError(c, err)
	}

	return utils.SuccessResponse(c, fiber.Map{"message": "Petition updated"}, fiber.StatusOK)
}

// DeletePetition handles DELETE /api/v1/petitions/:id
// @Summary Delete a petition
// @Description Delete a petition owned by the caller; fails once it has supporters
// @Tags Petitions
// @Produce json
// @Param id path int true "Petition ID"
// @Success 200
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security ApiKeyAuth
// @Router /petitions/{id} [delete]
func (h *PetitionHandler) DeletePetition(c *fiber.Ctx) error {
	petitionID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	if err := h.Petitions.Delete(c.Context(), middleware.CallerID(c), petitionID); err != nil {
		return respondError(c, err)
	}

	return utils.SuccessResponse(c, fiber.Map{"message": "Petition deleted"}, fiber.StatusOK)
}
