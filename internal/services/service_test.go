package services_test

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/localrally/petitiond/internal/models"
	"github.com/localrally/petitiond/internal/services"
	"github.com/localrally/petitiond/internal/store"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestStore creates an in-memory SQLite database with the petition
// schema and reference data: three users and three categories.
func setupTestStore(t *testing.T) (store.Store, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Petition{},
		&models.SupportTier{},
		&models.Supporter{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	users := []models.User{
		{Email: "alice@example.com", FirstName: "Alice", LastName: "Archer", Password: "x", AuthToken: strPtr("token-alice")},
		{Email: "bob@example.com", FirstName: "Bob", LastName: "Baker", Password: "x", AuthToken: strPtr("token-bob")},
		{Email: "carol@example.com", FirstName: "Carol", LastName: "Cooper", Password: "x", AuthToken: strPtr("token-carol")},
	}
	if err := db.Create(&users).Error; err != nil {
		t.Fatalf("Failed to seed users: %v", err)
	}

	categories := []models.Category{
		{Name: "Animal Welfare"},
		{Name: "Education"},
		{Name: "Environmental Causes"},
	}
	if err := db.Create(&categories).Error; err != nil {
		t.Fatalf("Failed to seed categories: %v", err)
	}

	return store.New(db), db
}

func strPtr(s string) *string { return &s }

func intPtr(i int64) *int64 { return &i }

func floatPtr(f float64) *float64 { return &f }

// createPetition inserts a petition with the given tiers directly and
// returns it, bypassing the service layer.
func createPetition(t *testing.T, db *gorm.DB, ownerID, categoryID int64, title string, costs ...float64) *models.Petition {
	p := models.Petition{
		Title:        title,
		Description:  "A description of " + title,
		CategoryID:   categoryID,
		OwnerID:      ownerID,
		CreationDate: time.Now().UTC(),
	}
	for i, cost := range costs {
		p.SupportTiers = append(p.SupportTiers, models.SupportTier{
			Title:       title + " tier " + string(rune('A'+i)),
			Description: "tier description",
			Cost:        cost,
		})
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("Failed to create petition %q: %v", title, err)
	}
	return &p
}

// pledge inserts a supporter row directly.
func pledge(t *testing.T, db *gorm.DB, petitionID, tierID, userID int64) *models.Supporter {
	s := models.Supporter{
		PetitionID:    petitionID,
		SupportTierID: tierID,
		UserID:        userID,
		Timestamp:     time.Now().UTC(),
	}
	if err := db.Create(&s).Error; err != nil {
		t.Fatalf("Failed to create supporter: %v", err)
	}
	return &s
}

func petitionService(st store.Store) *services.PetitionService {
	return &services.PetitionService{Store: st}
}

func tierService(st store.Store) *services.TierService {
	return &services.TierService{Store: st}
}

func supporterService(st store.Store) *services.SupporterService {
	return &services.SupporterService{Store: st}
}
