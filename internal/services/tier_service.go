package services

import (
	"context"
	"errors"

	"github.com/localrally/petitiond/internal/models"
	"github.com/localrally/petitiond/internal/store"
	"github.com/localrally/petitiond/internal/types"
)

// TierService enforces the per-tier lifecycle rules: the 3-tier cap, the
// 1-tier floor, intra-petition title uniqueness and the supporter lock.
type TierService struct {
	Store store.Store
}

// TierPatch is a partial tier edit; nil fields keep their prior values.
type TierPatch struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Cost        *float64 `json:"cost"`
}

// Add appends a tier to a petition and returns the new tier id. Fails
// Forbidden once the petition already has three tiers.
func (s *TierService) Add(ctx context.Context, callerID, petitionID int64, spec TierSpec) (int64, error) {
	var tierID int64
	err := s.Store.WithContext(ctx).Atomically(func(tx store.Store) error {
		if _, err := authorizePetitionMutation(tx, callerID, petitionID); err != nil {
			return err
		}
		if err := validateTierSpec(spec); err != nil {
			return err
		}

		tiers, err := tx.TiersForPetition(petitionID)
		if err != nil {
			return fault("TierService.Add", err)
		}
		if len(tiers) >= maxTiers {
			return types.NewError(types.Forbidden, "petition %d already has the maximum of %d support tiers", petitionID, maxTiers)
		}
		for _, tier := range tiers {
			if tier.Title == spec.Title {
				return types.NewError(types.Conflict, "support tier title %q already exists on petition %d", spec.Title, petitionID)
			}
		}

		tier := models.SupportTier{
			PetitionID:  petitionID,
			Title:       spec.Title,
			Description: spec.Description,
			Cost:        spec.Cost,
		}
		if err := tx.CreateTier(&tier); err != nil {
			return fault("TierService.Add", err)
		}
		tierID = tier.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return tierID, nil
}

// Edit applies a partial update to one tier. A tier with supporters is
// frozen regardless of which fields change.
func (s *TierService) Edit(ctx context.Context, callerID, petitionID, tierID int64, patch TierPatch) error {
	return s.Store.WithContext(ctx).Atomically(func(tx store.Store) error {
		if _, err := authorizePetitionMutation(tx, callerID, petitionID); err != nil {
			return err
		}

		tier, err := tx.TierByID(petitionID, tierID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return types.NewError(types.NotFound, "support tier %d not found on petition %d", tierID, petitionID)
			}
			return fault("TierService.Edit", err)
		}

		supporters, err := tx.SupporterCountForTier(tierID)
		if err != nil {
			return fault("TierService.Edit", err)
		}
		if supporters > 0 {
			return types.NewError(types.Forbidden, "support tier %d has supporters and cannot be edited", tierID)
		}

		fields := map[string]interface{}{}

		if patch.Title != nil {
			if err := validateTitle(*patch.Title); err != nil {
				return err
			}
			if *patch.Title != tier.Title {
				siblings, err := tx.TiersForPetition(petitionID)
				if err != nil {
					return fault("TierService.Edit", err)
				}
				for _, sib := range siblings {
					if sib.ID != tierID && sib.Title == *patch.Title {
						return types.NewError(types.Conflict, "support tier title %q already exists on petition %d", *patch.Title, petitionID)
					}
				}
				fields["title"] = *patch.Title
			}
		}
		if patch.Description != nil {
			if err := validateDescription(*patch.Description); err != nil {
				return err
			}
			fields["description"] = *patch.Description
		}
		if patch.Cost != nil {
			if err := validateCost(*patch.Cost); err != nil {
				return err
			}
			fields["cost"] = *patch.Cost
		}

		if err := tx.UpdateTier(tierID, fields); err != nil {
			return fault("TierService.Edit", err)
		}
		return nil
	})
}

// Delete removes one tier. Refused while the tier has supporters or when
// it is the petition's only tier.
func (s *TierService) Delete(ctx context.Context, callerID, petitionID, tierID int64) error {
	return s.Store.WithContext(ctx).Atomically(func(tx store.Store) error {
		if _, err := authorizePetitionMutation(tx, callerID, petitionID); err != nil {
			return err
		}

		if _, err := tx.TierByID(petitionID, tierID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return types.NewError(types.NotFound, "support tier %d not found on petition %d", tierID, petitionID)
			}
			return fault("TierService.Delete", err)
		}

		supporters, err := tx.SupporterCountForTier(tierID)
		if err != nil {
			return fault("TierService.Delete", err)
		}
		if supporters > 0 {
			return types.NewError(types.Forbidden, "support tier %d has supporters and cannot be deleted", tierID)
		}

		tiers, err := tx.TiersForPetition(petitionID)
		if err != nil {
			return fault("TierService.Delete", err)
		}
		if len(tiers) <= minTiers {
			return types.NewError(types.Forbidden, "cannot delete the only support tier of petition %d", petitionID)
		}

		if err := tx.DeleteTier(tierID); err != nil {
			return fault("TierService.Delete", err)
		}
		return nil
	})
}
