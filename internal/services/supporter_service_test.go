package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/localrally/petitiond/internal/services"
	"github.com/localrally/petitiond/internal/store"
	"github.com/localrally/petitiond/internal/types"
)

func TestRegisterSupport(t *testing.T) {
	st, db := setupTestStore(t)
	svc := supporterService(st)

	p := createPetition(t, db, 1, 1, "Save the harbour", 5, 20)

	supportID, err := svc.Register(context.Background(), 2, p.ID, services.RegisterSupportInput{
		SupportTierID: p.SupportTiers[0].ID,
		Message:       strPtr("Good luck!"),
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if supportID == 0 {
		t.Fatal("Expected a non-zero support id")
	}

	views, err := svc.List(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("Expected 1 supporter, got %d", len(views))
	}
	v := views[0]
	if v.SupportID != supportID || v.SupporterID != 2 || v.SupportTierID != p.SupportTiers[0].ID {
		t.Errorf("Unexpected view: %+v", v)
	}
	if v.SupporterFirstName != "Bob" || v.SupporterLastName != "Baker" {
		t.Errorf("Expected supporter names resolved, got %s %s", v.SupporterFirstName, v.SupporterLastName)
	}
	if v.Message == nil || *v.Message != "Good luck!" {
		t.Errorf("Expected message preserved, got %v", v.Message)
	}
}

func TestRegisterSupportWithoutMessage(t *testing.T) {
	st, db := setupTestStore(t)
	svc := supporterService(st)

	p := createPetition(t, db, 1, 1, "Save the harbour", 5)

	if _, err := svc.Register(context.Background(), 2, p.ID, services.RegisterSupportInput{SupportTierID: p.SupportTiers[0].ID}); err != nil {
		t.Fatalf("Register without message failed: %v", err)
	}

	views, _ := svc.List(context.Background(), p.ID)
	if len(views) != 1 || views[0].Message != nil {
		t.Errorf("Expected one pledge with nil message, got %+v", views)
	}
}

func TestRegisterSupportSelfSupport(t *testing.T) {
	st, db := setupTestStore(t)
	svc := supporterService(st)

	p := createPetition(t, db, 1, 1, "Save the harbour", 5)

	_, err := svc.Register(context.Background(), 1, p.ID, services.RegisterSupportInput{SupportTierID: p.SupportTiers[0].ID})
	if !types.IsKind(err, types.Forbidden) {
		t.Fatalf("Expected Forbidden for self-support, got %v", err)
	}
}

func TestRegisterSupportDuplicatePledge(t *testing.T) {
	st, db := setupTestStore(t)
	svc := supporterService(st)

	p := createPetition(t, db, 1, 1, "Save the harbour", 5, 20)

	in := services.RegisterSupportInput{SupportTierID: p.SupportTiers[0].ID}
	if _, err := svc.Register(context.Background(), 2, p.ID, in); err != nil {
		t.Fatalf("First pledge failed: %v", err)
	}
	if _, err := svc.Register(context.Background(), 2, p.ID, in); !types.IsKind(err, types.Forbidden) {
		t.Fatalf("Expected Forbidden for second pledge on the same tier, got %v", err)
	}

	// The same user may still pledge a different tier
	if _, err := svc.Register(context.Background(), 2, p.ID, services.RegisterSupportInput{SupportTierID: p.SupportTiers[1].ID}); err != nil {
		t.Fatalf("Pledge on second tier failed: %v", err)
	}
}

// pledgeCheckBypass drops the duplicate-pledge pre-check, standing in
// for a concurrent pledge that lands between the check and the insert.
type pledgeCheckBypass struct {
	store.Store
}

func (s pledgeCheckBypass) HasPledge(int64, int64) (bool, error) {
	return false, nil
}

func (s pledgeCheckBypass) WithContext(ctx context.Context) store.Store {
	return pledgeCheckBypass{s.Store.WithContext(ctx)}
}

func (s pledgeCheckBypass) Atomically(fn func(store.Store) error) error {
	return s.Store.Atomically(func(tx store.Store) error {
		return fn(pledgeCheckBypass{tx})
	})
}

func TestRegisterSupportPledgeRaceLoserForbidden(t *testing.T) {
	st, db := setupTestStore(t)

	p := createPetition(t, db, 1, 1, "Save the harbour", 5)
	pledge(t, db, p.ID, p.SupportTiers[0].ID, 2)

	svc := &services.SupporterService{Store: pledgeCheckBypass{st}}
	_, err := svc.Register(context.Background(), 2, p.ID, services.RegisterSupportInput{
		SupportTierID: p.SupportTiers[0].ID,
	})
	if !types.IsKind(err, types.Forbidden) {
		t.Fatalf("Expected Forbidden from the duplicate insert, got %v", err)
	}
}

func TestRegisterSupportBadReferences(t *testing.T) {
	st, db := setupTestStore(t)
	svc := supporterService(st)

	p := createPetition(t, db, 1, 1, "Save the harbour", 5)
	other := createPetition(t, db, 2, 1, "Fund the shelter", 10)

	if _, err := svc.Register(context.Background(), 2, 999, services.RegisterSupportInput{SupportTierID: 1}); !types.IsKind(err, types.NotFound) {
		t.Fatalf("Expected NotFound for missing petition, got %v", err)
	}

	// A tier of another petition is an invalid reference, not a not-found
	_, err := svc.Register(context.Background(), 3, p.ID, services.RegisterSupportInput{SupportTierID: other.SupportTiers[0].ID})
	if !types.IsKind(err, types.InvalidRequest) {
		t.Fatalf("Expected InvalidRequest for foreign tier, got %v", err)
	}

	if _, err := svc.Register(context.Background(), 999, p.ID, services.RegisterSupportInput{SupportTierID: p.SupportTiers[0].ID}); !types.IsKind(err, types.NotFound) {
		t.Fatalf("Expected NotFound for missing user, got %v", err)
	}
}

func TestRegisterSupportMessageValidation(t *testing.T) {
	st, db := setupTestStore(t)
	svc := supporterService(st)

	p := createPetition(t, db, 1, 1, "Save the harbour", 5)

	_, err := svc.Register(context.Background(), 2, p.ID, services.RegisterSupportInput{
		SupportTierID: p.SupportTiers[0].ID,
		Message:       strPtr(""),
	})
	if !types.IsKind(err, types.InvalidRequest) {
		t.Fatalf("Expected InvalidRequest for empty message, got %v", err)
	}
}

func TestListSupportersOrder(t *testing.T) {
	st, db := setupTestStore(t)
	svc := supporterService(st)

	p := createPetition(t, db, 1, 1, "Save the harbour", 5, 20)

	first := pledge(t, db, p.ID, p.SupportTiers[0].ID, 2)
	second := pledge(t, db, p.ID, p.SupportTiers[1].ID, 3)
	db.Table("supporter").Where("id = ?", first.ID).Update("timestamp", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	db.Table("supporter").Where("id = ?", second.ID).Update("timestamp", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))

	views, err := svc.List(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("Expected 2 supporters, got %d", len(views))
	}
	if views[0].SupportID != second.ID || views[1].SupportID != first.ID {
		t.Errorf("Expected most recent pledge first, got %+v", views)
	}
}

func TestListSupportersMissingPetition(t *testing.T) {
	st, _ := setupTestStore(t)

	_, err := supporterService(st).List(context.Background(), 12345)
	if !types.IsKind(err, types.NotFound) {
		t.Fatalf("Expected NotFound, got %v", err)
	}
}
