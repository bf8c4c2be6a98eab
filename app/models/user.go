package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	ROLE_LEARNER = "Learner"
	ROLE_SCHOLAR = "Scholar"
	ROLE_ADMIN   = "Admin"
)

// User is the account record shared by learners, scholars and admins.
// Account CRUD lives outside this service; the ledger only reads it.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FirstName string    `gorm:"column:fname;type:varchar(50)" json:"fname" validate:"required,min=2,max=50"`
	LastName  string    `gorm:"column:lname;type:varchar(50)" json:"lname" validate:"required,min=2,max=50"`
	Email     string    `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,max=200"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// FullName joins first and last name, skipping empty parts.
func (u *User) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}
