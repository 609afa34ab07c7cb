package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/localrally/petitiond/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/hints"
)

// gormStore implements Store over a *gorm.DB (any of the supported
// dialects from database.Connect).
type gormStore struct {
	db *gorm.DB
}

// New wraps db in the repository port.
func New(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (g *gormStore) WithContext(ctx context.Context) Store {
	return &gormStore{db: g.db.WithContext(ctx)}
}

func (g *gormStore) Atomically(fn func(Store) error) error {
	return g.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// forUpdate applies a row lock on dialects that support SELECT ... FOR
// UPDATE. SQLite serializes writers by itself.
func (g *gormStore) forUpdate(tx *gorm.DB) *gorm.DB {
	if g.db.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func firstOrNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// dupOrErr normalizes unique-index violations across dialects. The
// message checks cover mysql (1062 "Duplicate entry"), sqlite ("UNIQUE
// constraint failed") and postgres ("duplicate key value").
func dupOrErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") {
		return ErrDuplicate
	}
	return err
}

func (g *gormStore) UserByID(id int64) (*models.User, error) {
	var u models.User
	if err := g.db.Where("id = ?", id).First(&u).Error; err != nil {
		return nil, firstOrNotFound(err)
	}
	return &u, nil
}

func (g *gormStore) UserByToken(token string) (*models.User, error) {
	var u models.User
	if err := g.db.Where("auth_token = ?", token).First(&u).Error; err != nil {
		return nil, firstOrNotFound(err)
	}
	return &u, nil
}

func (g *gormStore) UserByEmail(email string) (*models.User, error) {
	var u models.User
	if err := g.db.Where("email = ?", email).First(&u).Error; err != nil {
		return nil, firstOrNotFound(err)
	}
	return &u, nil
}

func (g *gormStore) Categories() ([]models.Category, error) {
	var cats []models.Category
	if err := g.db.Order("id ASC").Find(&cats).Error; err != nil {
		return nil, err
	}
	return cats, nil
}

func (g *gormStore) CategoryExists(id int64) (bool, error) {
	var n int64
	if err := g.db.Model(&models.Category{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (g *gormStore) PetitionByID(id int64) (*models.Petition, error) {
	var p models.Petition
	if err := g.db.Where("id = ?", id).First(&p).Error; err != nil {
		return nil, firstOrNotFound(err)
	}
	return &p, nil
}

func (g *gormStore) PetitionByIDForUpdate(id int64) (*models.Petition, error) {
	var p models.Petition
	if err := g.forUpdate(g.db).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, firstOrNotFound(err)
	}
	return &p, nil
}

func (g *gormStore) PetitionDetail(id int64) (*models.Petition, error) {
	var p models.Petition
	err := g.db.
		Preload("SupportTiers", func(db *gorm.DB) *gorm.DB {
			return db.Order("support_tier.id ASC")
		}).
		Preload("Supporters").
		Preload("Owner").
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, firstOrNotFound(err)
	}
	return &p, nil
}

func (g *gormStore) PetitionTitleTaken(title string, excludeID int64) (bool, error) {
	var n int64
	tx := g.db.Model(&models.Petition{}).Where("title = ?", title)
	if excludeID != 0 {
		tx = tx.Where("id <> ?", excludeID)
	}
	if err := tx.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (g *gormStore) CreatePetition(p *models.Petition) error {
	return dupOrErr(g.db.Create(p).Error)
}

func (g *gormStore) UpdatePetition(id int64, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return dupOrErr(g.db.Model(&models.Petition{}).Where("id = ?", id).Updates(fields).Error)
}

func (g *gormStore) DeletePetition(id int64) error {
	// Tiers cascade with the petition; supporters were verified absent by
	// the caller under the same transaction.
	if err := g.db.Where("petition_id = ?", id).Delete(&models.SupportTier{}).Error; err != nil {
		return err
	}
	return g.db.Where("id = ?", id).Delete(&models.Petition{}).Error
}

// SearchPetitions translates the compiled predicate set into one grouped
// query. Grouping by petition collapses the tier fan-out; the cost and
// supporter predicates run as EXISTS subqueries so they never multiply
// rows. Owner names are resolved in a second lookup to stay
// dialect-portable.
func (g *gormStore) SearchPetitions(q PetitionQuery) ([]PetitionOverview, error) {
	tx := g.db.Model(&models.Petition{}).
		Select("petition.id AS petition_id, petition.title AS title, petition.category_id AS category_id, " +
			"petition.owner_id AS owner_id, petition.creation_date AS creation_date, " +
			"MIN(support_tier.cost) AS supporting_cost").
		Joins("LEFT JOIN support_tier ON support_tier.petition_id = petition.id")

	if g.db.Dialector.Name() == "mysql" {
		tx = tx.Clauses(hints.New("MAX_EXECUTION_TIME(10000)"))
	}

	if q.Q != nil {
		tx = tx.Where("LOWER(petition.description) LIKE ?", "%"+strings.ToLower(*q.Q)+"%")
	}
	if len(q.CategoryIDs) > 0 {
		tx = tx.Where("petition.category_id IN ?", q.CategoryIDs)
	}
	if q.OwnerID != nil {
		tx = tx.Where("petition.owner_id = ?", *q.OwnerID)
	}
	if q.MaxTierCost != nil {
		tx = tx.Where("EXISTS (SELECT 1 FROM support_tier st WHERE st.petition_id = petition.id AND st.cost <= ?)",
			*q.MaxTierCost)
	}
	if q.SupporterID != nil {
		tx = tx.Where("EXISTS (SELECT 1 FROM supporter sp WHERE sp.petition_id = petition.id AND sp.user_id = ?)",
			*q.SupporterID)
	}

	tx = tx.Group("petition.id, petition.title, petition.category_id, petition.owner_id, petition.creation_date").
		Order(orderExpr(q.Sort))

	var rows []PetitionOverview
	if err := tx.Scan(&rows).Error; err != nil {
		return nil, err
	}
	if err := g.fillOwnerNames(rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// orderExpr resolves a sort key to a stable ORDER BY; petition id ascending
// always breaks ties.
func orderExpr(sort SortOrder) string {
	var primary string
	switch sort {
	case SortAlphabeticalAsc:
		primary = "petition.title ASC"
	case SortAlphabeticalDesc:
		primary = "petition.title DESC"
	case SortCostAsc:
		primary = "supporting_cost ASC"
	case SortCostDesc:
		primary = "supporting_cost DESC"
	case SortCreatedDesc:
		primary = "petition.creation_date DESC"
	default:
		primary = "petition.creation_date ASC"
	}
	return fmt.Sprintf("%s, petition.id ASC", primary)
}

func (g *gormStore) fillOwnerNames(rows []PetitionOverview) error {
	if len(rows) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.OwnerID)
	}
	var owners []models.User
	if err := g.db.Where("id IN ?", ids).Find(&owners).Error; err != nil {
		return err
	}
	byID := make(map[int64]models.User, len(owners))
	for _, o := range owners {
		byID[o.ID] = o
	}
	for i := range rows {
		if o, ok := byID[rows[i].OwnerID]; ok {
			rows[i].OwnerFirstName = o.FirstName
			rows[i].OwnerLastName = o.LastName
		}
	}
	return nil
}

func (g *gormStore) TiersForPetition(petitionID int64) ([]models.SupportTier, error) {
	var tiers []models.SupportTier
	if err := g.db.Where("petition_id = ?", petitionID).Order("id ASC").Find(&tiers).Error; err != nil {
		return nil, err
	}
	return tiers, nil
}

func (g *gormStore) TierByID(petitionID, tierID int64) (*models.SupportTier, error) {
	var tier models.SupportTier
	if err := g.db.Where("id = ? AND petition_id = ?", tierID, petitionID).First(&tier).Error; err != nil {
		return nil, firstOrNotFound(err)
	}
	return &tier, nil
}

func (g *gormStore) CreateTier(tier *models.SupportTier) error {
	return g.db.Create(tier).Error
}

func (g *gormStore) UpdateTier(tierID int64, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return g.db.Model(&models.SupportTier{}).Where("id = ?", tierID).Updates(fields).Error
}

func (g *gormStore) DeleteTier(tierID int64) error {
	return g.db.Where("id = ?", tierID).Delete(&models.SupportTier{}).Error
}

func (g *gormStore) SupportersForPetition(petitionID int64) ([]models.Supporter, error) {
	var supporters []models.Supporter
	err := g.db.
		Preload("User").
		Where("petition_id = ?", petitionID).
		Order("timestamp DESC, id DESC").
		Find(&supporters).Error
	if err != nil {
		return nil, err
	}
	return supporters, nil
}

func (g *gormStore) SupporterCountForPetition(petitionID int64) (int64, error) {
	var n int64
	if err := g.db.Model(&models.Supporter{}).Where("petition_id = ?", petitionID).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (g *gormStore) SupporterCountForTier(tierID int64) (int64, error) {
	var n int64
	if err := g.db.Model(&models.Supporter{}).Where("support_tier_id = ?", tierID).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (g *gormStore) HasPledge(userID, tierID int64) (bool, error) {
	var n int64
	err := g.db.Model(&models.Supporter{}).
		Where("user_id = ? AND support_tier_id = ?", userID, tierID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (g *gormStore) CreateSupporter(s *models.Supporter) error {
	return dupOrErr(g.db.Create(s).Error)
}
