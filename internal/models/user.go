package models

// User is an account that can own petitions and pledge support.
// Registration, password hashing and token issuance are handled by the
// identity subsystem; this service only reads users for ownership and
// pledge checks.
type User struct {
	ID            int64   `gorm:"primaryKey;autoIncrement;column:id" json:"userId"`
	Email         string  `gorm:"size:256;not null;uniqueIndex" json:"email"`
	FirstName     string  `gorm:"column:first_name;size:64;not null" json:"firstName"`
	LastName      string  `gorm:"column:last_name;size:64;not null" json:"lastName"`
	ImageFilename *string `gorm:"column:image_filename;size:64" json:"-"`
	Password      string  `gorm:"size:256;not null" json:"-"`
	AuthToken     *string `gorm:"column:auth_token;size:256;index" json:"-"`
}

// Category is immutable reference data; every petition references one.
type Category struct {
	ID   int64  `gorm:"primaryKey;autoIncrement;column:id" json:"categoryId"`
	Name string `gorm:"size:64;not null;unique" json:"name"`
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "user"
}

// TableName overrides the table name for Category
func (Category) TableName() string {
	return "category"
}
