package models

import "time"

// Video is a single lesson. Price is in minor currency units and is only
// relevant for legacy per-video sales.
type Video struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ScholarUserID uint      `gorm:"not null;index" json:"scholar_user_id"`
	SubjectID     uint      `gorm:"not null;index" json:"subject_id"`
	Title         string    `gorm:"type:varchar(255);not null" json:"title"`
	Price         int64     `gorm:"default:0" json:"price"`
	IsFree        bool      `gorm:"default:false" json:"is_free"`
	Approved      bool      `gorm:"default:false;index" json:"approved"`
	SequenceIndex int       `gorm:"default:0" json:"sequence_index"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// VideoPurchase is a legacy single-video sale. New sales are bundle
// purchases; these rows are kept for earnings history.
type VideoPurchase struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	BuyerUserID   uint      `gorm:"not null;index" json:"buyer_user_id"`
	VideoID       uint      `gorm:"not null;index" json:"video_id"`
	Amount        int64     `gorm:"not null;default:0" json:"amount"`
	Currency      string    `gorm:"type:varchar(3);default:'EUR'" json:"currency"`
	TransactionID *string   `gorm:"type:varchar(255);default:null" json:"transaction_id,omitempty"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (VideoPurchase) TableName() string {
	return "purchases"
}
