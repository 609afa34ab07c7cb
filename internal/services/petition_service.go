package services

import (
	"context"
	"errors"
	"time"

	"github.com/localrally/petitiond/internal/models"
	"github.com/localrally/petitiond/internal/store"
	"github.com/localrally/petitiond/internal/types"
)

// PetitionService enforces petition lifecycle invariants: global title
// uniqueness, category existence, the 1..3 tier bound, owner-only
// mutation and the supporter lock on deletion.
type PetitionService struct {
	Store store.Store
}

// CreatePetitionInput is the full submission for a new petition.
type CreatePetitionInput struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	CategoryID   int64      `json:"categoryId"`
	SupportTiers []TierSpec `json:"supportTiers"`
}

// UpdatePetitionInput is a partial update; nil fields keep their prior
// values. A non-nil SupportTiers slice replaces the petition's tier set.
type UpdatePetitionInput struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	CategoryID   *int64     `json:"categoryId"`
	SupportTiers []TierSpec `json:"supportTiers"`
}

// SupporterRef is the supporter projection inside a petition aggregate.
type SupporterRef struct {
	SupportID int64 `json:"supportId"`
	UserID    int64 `json:"supporterId"`
}

// PetitionDetail is the single aggregate view of a petition: its fields,
// its tiers ordered by id, and its supporters, each exactly once.
type PetitionDetail struct {
	PetitionID         int64                `json:"petitionId"`
	Title              string               `json:"title"`
	Description        string               `json:"description"`
	CategoryID         int64                `json:"categoryId"`
	OwnerID            int64                `json:"ownerId"`
	OwnerFirstName     string               `json:"ownerFirstName"`
	OwnerLastName      string               `json:"ownerLastName"`
	CreationDate       time.Time            `json:"creationDate"`
	NumberOfSupporters int                  `json:"numberOfSupporters"`
	MoneyRaised        float64              `json:"moneyRaised"`
	SupportTiers       []models.SupportTier `json:"supportTiers"`
	Supporters         []SupporterRef       `json:"supporters"`
}

// List compiles raw filter parameters and returns one page of distinct
// matching petitions plus the pre-page total. Pure read.
func (s *PetitionService) List(ctx context.Context, params ListParams) (*PetitionList, error) {
	req, err := ParseListRequest(params)
	if err != nil {
		return nil, err
	}

	rows, err := s.Store.WithContext(ctx).SearchPetitions(req.Query)
	if err != nil {
		return nil, fault("PetitionService.List", err)
	}

	return &PetitionList{
		Count:     len(rows),
		Petitions: page(rows, req.StartIndex, req.Count),
	}, nil
}

// Get returns the aggregate view of one petition.
func (s *PetitionService) Get(ctx context.Context, petitionID int64) (*PetitionDetail, error) {
	petition, err := s.Store.WithContext(ctx).PetitionDetail(petitionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, types.NewError(types.NotFound, "petition %d not found", petitionID)
		}
		return nil, fault("PetitionService.Get", err)
	}

	costByTier := make(map[int64]float64, len(petition.SupportTiers))
	for _, tier := range petition.SupportTiers {
		costByTier[tier.ID] = tier.Cost
	}

	detail := &PetitionDetail{
		PetitionID:         petition.ID,
		Title:              petition.Title,
		Description:        petition.Description,
		CategoryID:         petition.CategoryID,
		OwnerID:            petition.OwnerID,
		OwnerFirstName:     petition.Owner.FirstName,
		OwnerLastName:      petition.Owner.LastName,
		CreationDate:       petition.CreationDate,
		NumberOfSupporters: len(petition.Supporters),
		SupportTiers:       petition.SupportTiers,
		Supporters:         make([]SupporterRef, 0, len(petition.Supporters)),
	}
	for _, sup := range petition.Supporters {
		detail.MoneyRaised += costByTier[sup.SupportTierID]
		detail.Supporters = append(detail.Supporters, SupporterRef{SupportID: sup.ID, UserID: sup.UserID})
	}
	return detail, nil
}

// Categories returns the immutable category reference data.
func (s *PetitionService) Categories(ctx context.Context) ([]models.Category, error) {
	cats, err := s.Store.WithContext(ctx).Categories()
	if err != nil {
		return nil, fault("PetitionService.Categories", err)
	}
	return cats, nil
}

// Create persists a new petition and its initial tier set in one
// transaction and returns the new petition id.
func (s *PetitionService) Create(ctx context.Context, callerID int64, in CreatePetitionInput) (int64, error) {
	if err := validateTitle(in.Title); err != nil {
		return 0, err
	}
	if err := validateDescription(in.Description); err != nil {
		return 0, err
	}
	if err := validateTierSet(in.SupportTiers); err != nil {
		return 0, err
	}

	var petitionID int64
	err := s.Store.WithContext(ctx).Atomically(func(tx store.Store) error {
		taken, err := tx.PetitionTitleTaken(in.Title, 0)
		if err != nil {
			return fault("PetitionService.Create", err)
		}
		if taken {
			return types.NewError(types.Conflict, "petition title %q already exists", in.Title)
		}

		exists, err := tx.CategoryExists(in.CategoryID)
		if err != nil {
			return fault("PetitionService.Create", err)
		}
		if !exists {
			return types.NewError(types.InvalidRequest, "category %d does not exist", in.CategoryID)
		}

		petition := models.Petition{
			Title:        in.Title,
			Description:  in.Description,
			CategoryID:   in.CategoryID,
			OwnerID:      callerID,
			CreationDate: time.Now().UTC(),
		}
		for _, spec := range in.SupportTiers {
			petition.SupportTiers = append(petition.SupportTiers, models.SupportTier{
				Title:       spec.Title,
				Description: spec.Description,
				Cost:        spec.Cost,
			})
		}
		if err := tx.CreatePetition(&petition); err != nil {
			// A concurrent create won the title between the uniqueness
			// check and the insert.
			if errors.Is(err, store.ErrDuplicate) {
				return types.NewError(types.Conflict, "petition title %q already exists", in.Title)
			}
			return fault("PetitionService.Create", err)
		}
		petitionID = petition.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return petitionID, nil
}

// Update applies a partial petition update. All checks run before any
// write, inside one transaction. Resubmitting the petition's own title is
// a no-op, not a conflict. A supplied tier set replaces the petition's
// tiers wholesale and is refused while the petition has supporters.
func (s *PetitionService) Update(ctx context.Context, callerID, petitionID int64, in UpdatePetitionInput) error {
	return s.Store.WithContext(ctx).Atomically(func(tx store.Store) error {
		petition, err := authorizePetitionMutation(tx, callerID, petitionID)
		if err != nil {
			return err
		}

		fields := map[string]interface{}{}

		if in.Title != nil {
			if err := validateTitle(*in.Title); err != nil {
				return err
			}
			if *in.Title != petition.Title {
				taken, err := tx.PetitionTitleTaken(*in.Title, petitionID)
				if err != nil {
					return fault("PetitionService.Update", err)
				}
				if taken {
					return types.NewError(types.Conflict, "petition title %q already exists", *in.Title)
				}
				fields["title"] = *in.Title
			}
		}

		if in.Description != nil {
			if err := validateDescription(*in.Description); err != nil {
				return err
			}
			fields["description"] = *in.Description
		}

		if in.CategoryID != nil {
			exists, err := tx.CategoryExists(*in.CategoryID)
			if err != nil {
				return fault("PetitionService.Update", err)
			}
			if !exists {
				return types.NewError(types.InvalidRequest, "category %d does not exist", *in.CategoryID)
			}
			fields["category_id"] = *in.CategoryID
		}

		if in.SupportTiers != nil {
			if err := validateTierSet(in.SupportTiers); err != nil {
				return err
			}
			supporters, err := tx.SupporterCountForPetition(petitionID)
			if err != nil {
				return fault("PetitionService.Update", err)
			}
			if supporters > 0 {
				return types.NewError(types.Forbidden, "support tiers are locked once a petition has supporters")
			}
		}

		if err := tx.UpdatePetition(petitionID, fields); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return types.NewError(types.Conflict, "petition title %q already exists", *in.Title)
			}
			return fault("PetitionService.Update", err)
		}
		if in.SupportTiers != nil {
			if err := replaceTierSet(tx, petitionID, in.SupportTiers); err != nil {
				return err
			}
		}
		return nil
	})
}

// replaceTierSet overwrites the petition's tiers with the supplied specs:
// existing tiers are rewritten in id order, extra specs become new tiers,
// surplus tiers are removed. Only reachable when the petition has zero
// supporters.
func replaceTierSet(tx store.Store, petitionID int64, specs []TierSpec) error {
	tiers, err := tx.TiersForPetition(petitionID)
	if err != nil {
		return fault("replaceTierSet", err)
	}
	for i, spec := range specs {
		if i < len(tiers) {
			err = tx.UpdateTier(tiers[i].ID, map[string]interface{}{
				"title":       spec.Title,
				"description": spec.Description,
				"cost":        spec.Cost,
			})
		} else {
			err = tx.CreateTier(&models.SupportTier{
				PetitionID:  petitionID,
				Title:       spec.Title,
				Description: spec.Description,
				Cost:        spec.Cost,
			})
		}
		if err != nil {
			return fault("replaceTierSet", err)
		}
	}
	for i := len(specs); i < len(tiers); i++ {
		if err := tx.DeleteTier(tiers[i].ID); err != nil {
			return fault("replaceTierSet", err)
		}
	}
	return nil
}

// Delete removes a petition and its tiers. Petitions with supporters are
// permanent.
func (s *PetitionService) Delete(ctx context.Context, callerID, petitionID int64) error {
	return s.Store.WithContext(ctx).Atomically(func(tx store.Store) error {
		if _, err := authorizePetitionMutation(tx, callerID, petitionID); err != nil {
			return err
		}
		supporters, err := tx.SupporterCountForPetition(petitionID)
		if err != nil {
			return fault("PetitionService.Delete", err)
		}
		if supporters > 0 {
			return types.NewError(types.Forbidden, "petition %d has supporters and cannot be deleted", petitionID)
		}
		if err := tx.DeletePetition(petitionID); err != nil {
			return fault("PetitionService.Delete", err)
		}
		return nil
	})
}
