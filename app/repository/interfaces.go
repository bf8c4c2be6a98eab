package repository

import (
	"context"
	"time"

	"github.com/ManuelReschke/UniClips/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

// PurchaseRepository defines the ledger operations on bundle purchases.
type PurchaseRepository interface {
	// Create inserts the row together with its first charge.
	Create(ctx context.Context, purchase *models.Purchase) error
	// Renew overwrites an expired row and records the new charge. It returns
	// gorm.ErrDuplicatedKey when the row became active again in the meantime
	// or the charge was already recorded.
	Renew(ctx context.Context, purchase *models.Purchase, now time.Time) error
	// GetByCharge finds the purchase any of its charges, current or earlier,
	// settled.
	GetByCharge(ctx context.Context, transactionID string) (*models.Purchase, error)
	GetByTriple(ctx context.Context, buyerID, subjectID, scholarID uint) (*models.Purchase, error)
	ListByBuyer(ctx context.Context, buyerID uint) ([]BuyerPurchase, error)
	HasActiveBundle(ctx context.Context, buyerID, subjectID, scholarID uint, now time.Time) (bool, error)
	CountSales(ctx context.Context, subjectID, scholarID uint) (int64, error)
	ScholarStats(ctx context.Context, scholarID uint, since *time.Time) (models.SalesStats, error)
	ScholarSubjectStats(ctx context.Context, scholarID uint) ([]models.SubjectSalesStats, error)
}

// VideoSalesRepository reads the legacy per-video purchases.
type VideoSalesRepository interface {
	ScholarStats(ctx context.Context, scholarID uint, since *time.Time) (models.SalesStats, error)
	HasPurchased(ctx context.Context, buyerID, videoID uint) (bool, error)
}

// PayoutRepository defines the ledger operations on scholar payouts.
type PayoutRepository interface {
	// Create returns gorm.ErrDuplicatedKey when a payout for the same source
	// transaction already exists.
	Create(ctx context.Context, payout *models.Payout) error
	// UpdateStatus never touches a completed payout and reports whether a
	// row was changed.
	UpdateStatus(ctx context.Context, id uint, status, transferID, failureReason string) (bool, error)
	GetBySourceTransaction(ctx context.Context, transactionID string) (*models.Payout, error)
	List(ctx context.Context, filter PayoutFilter) ([]models.Payout, error)
	CompletedStats(ctx context.Context, scholarID uint) (models.PayoutStats, error)
}

// ScholarRepository reads scholar profiles and maintains the mirrored
// connected-account columns.
type ScholarRepository interface {
	GetProfile(ctx context.Context, userID uint) (*models.ScholarProfile, error)
	ListApproved(ctx context.Context) ([]models.ScholarProfile, error)
	SetConnectedAccount(ctx context.Context, userID uint, accountID string) error
	UpdateAccountFlags(ctx context.Context, userID uint, onboardingComplete, detailsSubmitted bool) error
	ClearConnectedAccount(ctx context.Context, userID uint) error
}

// CatalogRepository resolves sellable bundles and videos.
type CatalogRepository interface {
	ResolveBundle(ctx context.Context, subjectID, scholarID uint) (*Bundle, error)
	GetVideo(ctx context.Context, id uint) (*models.Video, error)
}

// Bundle is the sellable unit (subject, scholar) with its configured price.
type Bundle struct {
	SubjectID   uint
	ScholarID   uint
	SubjectName string
	// Price is the scholar override, then the subject price, nil when neither is set.
	Price *int64
}

// BuyerPurchase is a purchase with its subject name for listings.
type BuyerPurchase struct {
	models.Purchase
	SubjectName string `json:"subject_name"`
}

// PayoutFilter narrows payout listings; zero values match everything.
type PayoutFilter struct {
	ScholarID uint
	Status    string
	Limit     int
}

// Repositories struct holds all repository instances
type Repositories struct {
	User       UserRepository
	Purchase   PurchaseRepository
	VideoSales VideoSalesRepository
	Payout     PayoutRepository
	Scholar    ScholarRepository
	Catalog    CatalogRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:       NewUserRepository(db),
		Purchase:   NewPurchaseRepository(db),
		VideoSales: NewVideoSalesRepository(db),
		Payout:     NewPayoutRepository(db),
		Scholar:    NewScholarRepository(db),
		Catalog:    NewCatalogRepository(db),
	}
}
