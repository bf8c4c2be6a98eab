package models

import "time"

// ScholarProfile holds the approval state of a scholar and the mirrored
// connected payout account link. The processor is authoritative for the
// account; the columns here are a cache that is refreshed on every live
// status query and cleared when the remote account disappears.
type ScholarProfile struct {
	ID                       uint      `gorm:"primaryKey" json:"id"`
	UserID                   uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	University               string    `gorm:"type:varchar(150)" json:"university"`
	Degree                   string    `gorm:"type:varchar(150)" json:"degree"`
	Approved                 bool      `gorm:"default:false;index" json:"approved"`
	StripeAccountID          *string   `gorm:"type:varchar(191);default:null;index" json:"stripe_account_id,omitempty"`
	StripeOnboardingComplete bool      `gorm:"default:false" json:"stripe_onboarding_complete"`
	StripeDetailsSubmitted   bool      `gorm:"default:false" json:"stripe_details_submitted"`
	CreatedAt                time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (ScholarProfile) TableName() string {
	return "scholar_profile"
}

// ConnectedAccountID returns the linked processor account or "" when the
// scholar has not connected yet.
func (p *ScholarProfile) ConnectedAccountID() string {
	if p == nil || p.StripeAccountID == nil {
		return ""
	}
	return *p.StripeAccountID
}

// HasConnectedAccount reports whether a processor account is linked.
func (p *ScholarProfile) HasConnectedAccount() bool {
	return p.ConnectedAccountID() != ""
}
