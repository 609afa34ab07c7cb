package services

import (
	"context"
	"errors"
	"time"

	"github.com/localrally/petitiond/internal/models"
	"github.com/localrally/petitiond/internal/store"
	"github.com/localrally/petitiond/internal/types"
)

// SupporterService records pledges. A pledge is immutable and permanent;
// once placed it locks its tier and petition against destructive edits.
type SupporterService struct {
	Store store.Store
}

// RegisterSupportInput is a pledge submission.
type RegisterSupportInput struct {
	SupportTierID int64   `json:"supportTierId"`
	Message       *string `json:"message"`
}

// SupporterView is one pledge in a petition's supporter list.
type SupporterView struct {
	SupportID          int64     `json:"supportId"`
	SupportTierID      int64     `json:"supportTierId"`
	Message            *string   `json:"message"`
	SupporterID        int64     `json:"supporterId"`
	SupporterFirstName string    `json:"supporterFirstName"`
	SupporterLastName  string    `json:"supporterLastName"`
	Timestamp          time.Time `json:"timestamp"`
}

// List returns all supporters of a petition, most recent pledge first.
// Pure read.
func (s *SupporterService) List(ctx context.Context, petitionID int64) ([]SupporterView, error) {
	st := s.Store.WithContext(ctx)
	if _, err := st.PetitionByID(petitionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, types.NewError(types.NotFound, "petition %d not found", petitionID)
		}
		return nil, fault("SupporterService.List", err)
	}

	supporters, err := st.SupportersForPetition(petitionID)
	if err != nil {
		return nil, fault("SupporterService.List", err)
	}

	views := make([]SupporterView, 0, len(supporters))
	for _, sup := range supporters {
		views = append(views, SupporterView{
			SupportID:          sup.ID,
			SupportTierID:      sup.SupportTierID,
			Message:            sup.Message,
			SupporterID:        sup.UserID,
			SupporterFirstName: sup.User.FirstName,
			SupporterLastName:  sup.User.LastName,
			Timestamp:          sup.Timestamp,
		})
	}
	return views, nil
}

// Register places a pledge on one tier of one petition and returns the
// new pledge id. A user pledges a given tier at most once and never on
// their own petition.
func (s *SupporterService) Register(ctx context.Context, callerID, petitionID int64, in RegisterSupportInput) (int64, error) {
	var supportID int64
	err := s.Store.WithContext(ctx).Atomically(func(tx store.Store) error {
		petition, err := tx.PetitionByIDForUpdate(petitionID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return types.NewError(types.NotFound, "petition %d not found", petitionID)
			}
			return fault("SupporterService.Register", err)
		}

		if _, err := tx.UserByID(callerID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return types.NewError(types.NotFound, "user %d not found", callerID)
			}
			return fault("SupporterService.Register", err)
		}

		if _, err := tx.TierByID(petitionID, in.SupportTierID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return types.NewError(types.InvalidRequest, "supportTierId %d is not a tier of petition %d", in.SupportTierID, petitionID)
			}
			return fault("SupporterService.Register", err)
		}

		pledged, err := tx.HasPledge(callerID, in.SupportTierID)
		if err != nil {
			return fault("SupporterService.Register", err)
		}
		if pledged {
			return types.NewError(types.Forbidden, "user %d already supports tier %d", callerID, in.SupportTierID)
		}

		if petition.OwnerID == callerID {
			return types.NewError(types.Forbidden, "owners cannot support their own petition")
		}

		if in.Message != nil {
			if err := validateMessage(*in.Message); err != nil {
				return err
			}
		}

		supporter := models.Supporter{
			PetitionID:    petitionID,
			SupportTierID: in.SupportTierID,
			UserID:        callerID,
			Message:       in.Message,
			Timestamp:     time.Now().UTC(),
		}
		if err := tx.CreateSupporter(&supporter); err != nil {
			// A concurrent pledge on the same tier won between the
			// HasPledge check and the insert.
			if errors.Is(err, store.ErrDuplicate) {
				return types.NewError(types.Forbidden, "user %d already supports tier %d", callerID, in.SupportTierID)
			}
			return fault("SupporterService.Register", err)
		}
		supportID = supporter.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return supportID, nil
}
