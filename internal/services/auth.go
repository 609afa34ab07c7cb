package services

import (
	"errors"
	"log"

	"github.com/localrally/petitiond/internal/models"
	"github.com/localrally/petitiond/internal/store"
	"github.com/localrally/petitiond/internal/types"
)

// fault logs a repository failure and hides it behind a generic
// unavailable condition. Business errors never come through here.
func fault(op string, err error) *types.DomainError {
	log.Printf("repository failure in %s: %v", op, err)
	return types.NewError(types.Fault, "service unavailable")
}

// authorizePetitionMutation is the single ownership gate for every
// petition-scoped mutation. It locks and returns the petition row so the
// caller's later invariant checks and writes see a stable view. Must run
// inside Atomically.
func authorizePetitionMutation(st store.Store, callerID, petitionID int64) (*models.Petition, error) {
	petition, err := st.PetitionByIDForUpdate(petitionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, types.NewError(types.NotFound, "petition %d not found", petitionID)
		}
		return nil, fault("authorizePetitionMutation", err)
	}
	if petition.OwnerID != callerID {
		return nil, types.NewError(types.Forbidden, "caller does not own petition %d", petitionID)
	}
	return petition, nil
}
