package models

import (
	"time"
)

// Petition is a fundraising campaign with one owner, a category and
// between one and three support tiers. The title is unique across all
// petitions; owner and creation date never change after creation.
type Petition struct {
	ID            int64     `gorm:"primaryKey;autoIncrement;column:id" json:"petitionId"`
	Title         string    `gorm:"size:128;not null;uniqueIndex" json:"title"`
	Description   string    `gorm:"size:1024;not null" json:"description"`
	CreationDate  time.Time `gorm:"column:creation_date;not null" json:"creationDate"`
	ImageFilename *string   `gorm:"column:image_filename;size:64" json:"-"`
	OwnerID       int64     `gorm:"column:owner_id;not null;index" json:"ownerId"`
	CategoryID    int64     `gorm:"column:category_id;not null;index" json:"categoryId"`

	Owner        User          `gorm:"foreignKey:OwnerID" json:"-"`
	SupportTiers []SupportTier `gorm:"foreignKey:PetitionID" json:"-"`
	Supporters   []Supporter   `gorm:"foreignKey:PetitionID" json:"-"`
}

// SupportTier is a priced pledge level attached to exactly one petition.
// The title is unique within the petition. A tier with supporters is
// frozen against edits and deletion.
type SupportTier struct {
	ID          int64   `gorm:"primaryKey;autoIncrement;column:id" json:"supportTierId"`
	PetitionID  int64   `gorm:"column:petition_id;not null;index" json:"-"`
	Title       string  `gorm:"size:128;not null" json:"title"`
	Description string  `gorm:"size:1024;not null" json:"description"`
	Cost        float64 `gorm:"not null" json:"cost"`
}

// Supporter is a pledge by a user to one tier of one petition. A given
// (user, tier) pair may pledge at most once, and pledges are immutable:
// once placed they are never updated or deleted by this service.
type Supporter struct {
	ID            int64     `gorm:"primaryKey;autoIncrement;column:id" json:"supportId"`
	PetitionID    int64     `gorm:"column:petition_id;not null;index" json:"-"`
	SupportTierID int64     `gorm:"column:support_tier_id;not null;index:idx_supporter_user_tier,unique" json:"supportTierId"`
	UserID        int64     `gorm:"column:user_id;not null;index:idx_supporter_user_tier,unique" json:"supporterId"`
	Message       *string   `gorm:"size:512" json:"message"`
	Timestamp     time.Time `gorm:"column:timestamp;not null" json:"timestamp"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// TableName overrides the table name for Petition
func (Petition) TableName() string {
	return "petition"
}

// TableName overrides the table name for SupportTier
func (SupportTier) TableName() string {
	return "support_tier"
}

// TableName overrides the table name for Supporter
func (Supporter) TableName() string {
	return "supporter"
}
