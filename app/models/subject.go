package models

import "time"

// Subject is a catalog entry. BundlePrice is stored in minor currency units;
// nil means the platform default price applies.
type Subject struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	Name                 string     `gorm:"type:varchar(200);not null" json:"name"`
	DegreeProgrammes     string     `gorm:"type:text" json:"degree_programmes"`
	BundlePrice          *int64     `gorm:"default:null" json:"bundle_price,omitempty"`
	BundlePriceUpdatedAt *time.Time `gorm:"type:timestamp;default:null" json:"bundle_price_updated_at,omitempty"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// ScholarSubject links a scholar to a subject they teach. A non-nil
// BundlePrice overrides the subject price for this scholar's bundle.
type ScholarSubject struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ScholarUserID uint      `gorm:"not null;index:ux_scholar_subjects_pair,unique,priority:1" json:"scholar_user_id"`
	SubjectID     uint      `gorm:"not null;index:ux_scholar_subjects_pair,unique,priority:2" json:"subject_id"`
	Expertise     string    `gorm:"type:text" json:"expertise"`
	BundlePrice   *int64    `gorm:"default:null" json:"bundle_price,omitempty"`
	Approved      bool      `gorm:"default:false" json:"approved"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}
