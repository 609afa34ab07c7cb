package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/localrally/petitiond/internal/handlers"
	"github.com/localrally/petitiond/internal/identity"
	"github.com/localrally/petitiond/internal/middleware"
	"github.com/localrally/petitiond/internal/models"
	"github.com/localrally/petitiond/internal/services"
	"github.com/localrally/petitiond/internal/store"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestApp builds the API surface over an in-memory SQLite database
// with token credential resolution, the way cmd/server wires it.
func setupTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
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

	aliceToken := "token-alice"
	bobToken := "token-bob"
	users := []models.User{
		{Email: "alice@example.com", FirstName: "Alice", LastName: "Archer", Password: "x", AuthToken: &aliceToken},
		{Email: "bob@example.com", FirstName: "Bob", LastName: "Baker", Password: "x", AuthToken: &bobToken},
	}
	if err := db.Create(&users).Error; err != nil {
		t.Fatalf("Failed to seed users: %v", err)
	}
	if err := db.Create(&models.Category{Name: "Education"}).Error; err != nil {
		t.Fatalf("Failed to seed category: %v", err)
	}

	st := store.New(db)
	auth := middleware.RequireAuth(&identity.TokenResolver{Store: st})

	app := fiber.New(fiber.Config{ErrorHandler: testErrorHandler})
	api := app.Group("/api/v1")

	petitionHandler := &handlers.PetitionHandler{Petitions: &services.PetitionService{Store: st}}
	tierHandler := &handlers.SupportTierHandler{Tiers: &services.TierService{Store: st}}
	supporterHandler := &handlers.SupporterHandler{Supporters: &services.SupporterService{Store: st}}

	api.Get("/petitions", petitionHandler.ListPetitions)
	api.Post("/petitions", auth, petitionHandler.CreatePetition)
	api.Get("/petitions/categories", petitionHandler.GetCategories)
	api.Get("/petitions/:id", petitionHandler.GetPetition)
	api.Patch("/petitions/:id", auth, petitionHandler.UpdatePetition)
	api.Delete("/petitions/:id", auth, petitionHandler.DeletePetition)
	api.Put("/petitions/:id/supportTiers", auth, tierHandler.AddSupportTier)
	api.Patch("/petitions/:id/supportTiers/:tierId", auth, tierHandler.EditSupportTier)
	api.Delete("/petitions/:id/supportTiers/:tierId", auth, tierHandler.DeleteSupportTier)
	api.Get("/petitions/:id/supporters", supporterHandler.GetSupporters)
	api.Post("/petitions/:id/supporters", auth, supporterHandler.AddSupporter)

	return app, db
}

// testErrorHandler mirrors the server's error handler closely enough for
// classified errors raised by the auth middleware.
func testErrorHandler(c *fiber.Ctx, err error) error {
	if e, ok := err.(*fiber.Error); ok {
		return c.Status(e.Code).JSON(fiber.Map{"message": e.Message})
	}
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": err.Error()})
}

// request executes one JSON request against the app and decodes the
// response body.
func request(t *testing.T, app *fiber.App, method, target, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("X-Authorization", token)
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&result)
	return resp.StatusCode, result
}

func seedPetition(t *testing.T, db *gorm.DB, ownerID int64, title string, costs ...float64) *models.Petition {
	p := models.Petition{
		Title:        title,
		Description:  "A description of " + title,
		CategoryID:   1,
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
		t.Fatalf("Failed to seed petition: %v", err)
	}
	return &p
}

func TestCreatePetitionEndpoint(t *testing.T) {
	app, _ := setupTestApp(t)

	body := map[string]interface{}{
		"title":       "Save the harbour",
		"description": "Stop the dredging consent",
		"categoryId":  1,
		"supportTiers": []map[string]interface{}{
			{"title": "Bronze", "description": "A mention", "cost": 5},
		},
	}

	status, result := request(t, app, "POST", "/api/v1/petitions", "token-alice", body)
	if status != fiber.StatusCreated {
		t.Fatalf("Expected 201, got %d (%v)", status, result)
	}
	if result["petitionId"] == nil {
		t.Fatal("Expected petitionId in response")
	}

	// String-encoded numeric ids are accepted
	body["title"] = "Second petition"
	body["categoryId"] = "1"
	status, _ = request(t, app, "POST", "/api/v1/petitions", "token-alice", body)
	if status != fiber.StatusCreated {
		t.Fatalf("Expected 201 with string categoryId, got %d", status)
	}
}

func TestCreatePetitionEndpointRequiresAuth(t *testing.T) {
	app, _ := setupTestApp(t)

	status, _ := request(t, app, "POST", "/api/v1/petitions", "", map[string]interface{}{})
	if status != fiber.StatusUnauthorized {
		t.Fatalf("Expected 401 without credentials, got %d", status)
	}

	status, _ = request(t, app, "POST", "/api/v1/petitions", "bogus-token", map[string]interface{}{})
	if status != fiber.StatusUnauthorized {
		t.Fatalf("Expected 401 with unknown token, got %d", status)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	app, db := setupTestApp(t)
	seedPetition(t, db, 1, "Save the harbour", 5)

	// Malformed id -> 400
	status, _ := request(t, app, "GET", "/api/v1/petitions/harbour", "", nil)
	if status != fiber.StatusBadRequest {
		t.Errorf("Expected 400 for non-numeric id, got %d", status)
	}

	// Missing petition -> 404
	status, _ = request(t, app, "GET", "/api/v1/petitions/999", "", nil)
	if status != fiber.StatusNotFound {
		t.Errorf("Expected 404, got %d", status)
	}

	// Non-owner mutation -> 403
	status, _ = request(t, app, "PATCH", "/api/v1/petitions/1", "token-bob",
		map[string]interface{}{"title": "Hijacked"})
	if status != fiber.StatusForbidden {
		t.Errorf("Expected 403 for non-owner, got %d", status)
	}

	// Duplicate title -> 403 with conflict type on the wire
	seedPetition(t, db, 2, "Fund the shelter", 10)
	status, result := request(t, app, "PATCH", "/api/v1/petitions/1", "token-alice",
		map[string]interface{}{"title": "Fund the shelter"})
	if status != fiber.StatusForbidden {
		t.Errorf("Expected 403 for duplicate title, got %d", status)
	}
	if result["type"] != "conflict" {
		t.Errorf("Expected conflict type label, got %v", result["type"])
	}

	// Validation failure -> 400
	status, _ = request(t, app, "PATCH", "/api/v1/petitions/1", "token-alice",
		map[string]interface{}{"title": ""})
	if status != fiber.StatusBadRequest {
		t.Errorf("Expected 400 for empty title, got %d", status)
	}
}

func TestListPetitionsEndpoint(t *testing.T) {
	app, db := setupTestApp(t)
	seedPetition(t, db, 1, "Save the harbour", 5, 20)
	seedPetition(t, db, 2, "Fund the shelter", 15)

	status, result := request(t, app, "GET", "/api/v1/petitions", "", nil)
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if result["count"] != float64(2) {
		t.Errorf("Expected count 2, got %v", result["count"])
	}
	petitions, ok := result["petitions"].([]interface{})
	if !ok || len(petitions) != 2 {
		t.Fatalf("Expected 2 petition rows, got %v", result["petitions"])
	}
	row := petitions[0].(map[string]interface{})
	if row["supportingCost"] != float64(5) {
		t.Errorf("Expected supportingCost 5, got %v", row["supportingCost"])
	}

	status, _ = request(t, app, "GET", "/api/v1/petitions?sortBy=NEWEST", "", nil)
	if status != fiber.StatusBadRequest {
		t.Errorf("Expected 400 for bad sortBy, got %d", status)
	}

	// Repeated and comma-separated categoryIds both parse
	status, _ = request(t, app, "GET", "/api/v1/petitions?categoryIds=1,2&categoryIds=3", "", nil)
	if status != fiber.StatusOK {
		t.Errorf("Expected 200 for multi categoryIds, got %d", status)
	}
}

func TestCategoriesEndpoint(t *testing.T) {
	app, _ := setupTestApp(t)

	status, _ := request(t, app, "GET", "/api/v1/petitions/categories", "", nil)
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
}

func TestSupportTierEndpoints(t *testing.T) {
	app, db := setupTestApp(t)
	p := seedPetition(t, db, 1, "Save the harbour", 5)

	status, result := request(t, app, "PUT", "/api/v1/petitions/1/supportTiers", "token-alice",
		map[string]interface{}{"title": "Gold", "description": "A plaque", "cost": 50})
	if status != fiber.StatusCreated {
		t.Fatalf("Expected 201, got %d (%v)", status, result)
	}
	if result["supportTierId"] == nil {
		t.Fatal("Expected supportTierId in response")
	}

	status, _ = request(t, app, "PATCH", "/api/v1/petitions/1/supportTiers/999", "token-alice",
		map[string]interface{}{"cost": 1})
	if status != fiber.StatusNotFound {
		t.Errorf("Expected 404 for missing tier, got %d", status)
	}

	// Deleting down to zero tiers is refused
	firstTier := strconv.FormatInt(p.SupportTiers[0].ID, 10)
	addedTier := strconv.FormatInt(int64(result["supportTierId"].(float64)), 10)
	status, _ = request(t, app, "DELETE", "/api/v1/petitions/1/supportTiers/"+addedTier, "token-alice", nil)
	if status != fiber.StatusOK {
		t.Errorf("Expected 200 deleting the added tier, got %d", status)
	}
	status, _ = request(t, app, "DELETE", "/api/v1/petitions/1/supportTiers/"+firstTier, "token-alice", nil)
	if status != fiber.StatusForbidden {
		t.Errorf("Expected 403 deleting the only tier, got %d", status)
	}
}

func TestSupporterEndpoints(t *testing.T) {
	app, db := setupTestApp(t)
	p := seedPetition(t, db, 1, "Save the harbour", 5)
	tierID := p.SupportTiers[0].ID

	// Owner cannot support their own petition
	status, _ := request(t, app, "POST", "/api/v1/petitions/1/supporters", "token-alice",
		map[string]interface{}{"supportTierId": tierID})
	if status != fiber.StatusForbidden {
		t.Fatalf("Expected 403 for self-support, got %d", status)
	}

	status, result := request(t, app, "POST", "/api/v1/petitions/1/supporters", "token-bob",
		map[string]interface{}{"supportTierId": tierID, "message": "Good luck!"})
	if status != fiber.StatusCreated {
		t.Fatalf("Expected 201, got %d (%v)", status, result)
	}
	if result["supportId"] == nil {
		t.Fatal("Expected supportId in response")
	}

	status, _ = request(t, app, "GET", "/api/v1/petitions/1/supporters", "", nil)
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}

	// The pledge now locks the petition against deletion
	status, _ = request(t, app, "DELETE", "/api/v1/petitions/1", "token-alice", nil)
	if status != fiber.StatusForbidden {
		t.Errorf("Expected 403 deleting a supported petition, got %d", status)
	}
}
