package store

import (
	"context"
	"errors"
	"time"

	"github.com/localrally/petitiond/internal/models"
)

// ErrNotFound is returned by point lookups when the record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned by writes that trip a unique index. Callers
// pre-check uniqueness, so this only surfaces when a concurrent writer
// wins the race between the check and the insert.
var ErrDuplicate = errors.New("duplicate key")

// SortOrder enumerates the supported petition list orderings. The primary
// key of each ordering is always tie-broken by ascending petition id.
type SortOrder string

const (
	SortAlphabeticalAsc  SortOrder = "ALPHABETICAL_ASC"
	SortAlphabeticalDesc SortOrder = "ALPHABETICAL_DESC"
	SortCostAsc          SortOrder = "COST_ASC"
	SortCostDesc         SortOrder = "COST_DESC"
	SortCreatedAsc       SortOrder = "CREATED_ASC"
	SortCreatedDesc      SortOrder = "CREATED_DESC"
)

// PetitionQuery is a fully validated predicate set for SearchPetitions.
// Nil fields are absent filters. Q is a case-insensitive substring match
// against the petition description.
type PetitionQuery struct {
	Q           *string
	CategoryIDs []int64
	OwnerID     *int64
	MaxTierCost *float64
	SupporterID *int64
	Sort        SortOrder
}

// PetitionOverview is one deduplicated row of a petition search. The
// supporting cost is the cheapest tier of the petition.
type PetitionOverview struct {
	PetitionID     int64     `gorm:"column:petition_id" json:"petitionId"`
	Title          string    `gorm:"column:title" json:"title"`
	CategoryID     int64     `gorm:"column:category_id" json:"categoryId"`
	OwnerID        int64     `gorm:"column:owner_id" json:"ownerId"`
	OwnerFirstName string    `gorm:"-" json:"ownerFirstName"`
	OwnerLastName  string    `gorm:"-" json:"ownerLastName"`
	CreationDate   time.Time `gorm:"column:creation_date" json:"creationDate"`
	SupportingCost *float64  `gorm:"column:supporting_cost" json:"supportingCost"`
}

// Store is the transactional repository port. All multi-step mutations go
// through Atomically so validation reads and writes share one transaction;
// lookups return ErrNotFound when the record is absent.
type Store interface {
	// WithContext binds request cancellation to subsequent operations.
	WithContext(ctx context.Context) Store
	// Atomically runs fn inside a single transaction. The petition rows
	// read through the *ForUpdate lookups are locked until commit.
	Atomically(fn func(Store) error) error

	UserByID(id int64) (*models.User, error)
	UserByToken(token string) (*models.User, error)
	UserByEmail(email string) (*models.User, error)

	Categories() ([]models.Category, error)
	CategoryExists(id int64) (bool, error)

	PetitionByID(id int64) (*models.Petition, error)
	PetitionByIDForUpdate(id int64) (*models.Petition, error)
	// PetitionDetail loads a petition with its tiers (ordered by id) and
	// supporters.
	PetitionDetail(id int64) (*models.Petition, error)
	PetitionTitleTaken(title string, excludeID int64) (bool, error)
	CreatePetition(p *models.Petition) error
	UpdatePetition(id int64, fields map[string]interface{}) error
	DeletePetition(id int64) error
	SearchPetitions(q PetitionQuery) ([]PetitionOverview, error)

	TiersForPetition(petitionID int64) ([]models.SupportTier, error)
	TierByID(petitionID, tierID int64) (*models.SupportTier, error)
	CreateTier(tier *models.SupportTier) error
	UpdateTier(tierID int64, fields map[string]interface{}) error
	DeleteTier(tierID int64) error

	// SupportersForPetition returns pledges most recent first with the
	// pledging user preloaded.
	SupportersForPetition(petitionID int64) ([]models.Supporter, error)
	SupporterCountForPetition(petitionID int64) (int64, error)
	SupporterCountForTier(tierID int64) (int64, error)
	HasPledge(userID, tierID int64) (bool, error)
	CreateSupporter(s *models.Supporter) error
}
