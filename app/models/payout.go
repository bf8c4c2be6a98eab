package models

import "time"

const (
	PayoutStatusPending   = "pending"
	PayoutStatusCompleted = "completed"
	PayoutStatusFailed    = "failed"
)

// Payout is a transfer of money to a scholar's connected account.
// SourceTransactionID links an automatic settlement transfer to the payment
// that funded it and is unique, so one payment yields at most one transfer.
// Manual admin payouts leave it nil.
type Payout struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	ScholarUserID       uint      `gorm:"not null;index:idx_scholar_payouts_scholar_status,priority:1" json:"scholar_user_id"`
	StripeTransferID    string    `gorm:"type:varchar(255);default:''" json:"stripe_transfer_id"`
	SourceTransactionID *string   `gorm:"type:varchar(191);default:null;uniqueIndex" json:"source_transaction_id,omitempty"`
	Amount              int64     `gorm:"not null" json:"amount"`
	Currency            string    `gorm:"type:varchar(3);not null;default:'eur'" json:"currency"`
	Status              string    `gorm:"type:varchar(50);not null;default:'pending';index:idx_scholar_payouts_scholar_status,priority:2" json:"status"`
	Description         string    `gorm:"type:text" json:"description"`
	FailureReason       string    `gorm:"type:text" json:"failure_reason,omitempty"`
	CreatedAt           time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Payout) TableName() string {
	return "scholar_payouts"
}

// IsFinal reports whether the payout may no longer change.
func (p *Payout) IsFinal() bool {
	return p.Status == PayoutStatusCompleted
}
