// Package earnings reconciles what scholars earned against what was paid out.
package earnings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/UniClips/app/models"
	"github.com/ManuelReschke/UniClips/app/repository"
	"github.com/ManuelReschke/UniClips/internal/pkg/connect"
	"github.com/ManuelReschke/UniClips/internal/pkg/fees"
)

var ErrNotFound = errors.New("scholar not found")

// Report is the earnings summary of one scholar. Amounts are minor units.
// Earnings apply the tiered split to the combined video and bundle history;
// the per-kind and per-subject figures are breakdowns only.
type Report struct {
	ScholarID uint   `json:"scholar_id"`
	Currency  string `json:"currency"`

	Videos  VideoSales  `json:"videos"`
	Bundles BundleSales `json:"bundles"`

	// Combined is the proportional split over every sale of the scholar.
	Combined fees.Aggregate `json:"combined"`

	TotalSales     int64 `json:"total_sales"`
	TotalRevenue   int64 `json:"total_revenue"`
	PlatformFees   int64 `json:"platform_fees"`
	Earnings       int64 `json:"earnings"`
	TotalPaid      int64 `json:"total_paid"`
	PayoutCount    int64 `json:"payout_count"`
	PendingBalance int64 `json:"pending_balance"`
	// Overpaid is how much completed payouts exceed the computed earnings.
	Overpaid int64 `json:"overpaid"`
}

// VideoSales are the legacy per-video purchases under the flat split.
type VideoSales struct {
	fees.Aggregate
	ThisMonth models.SalesStats `json:"this_month"`
}

type BundleSales struct {
	models.SalesStats
	Creator   int64             `json:"creator"`
	Platform  int64             `json:"platform"`
	ThisMonth models.SalesStats `json:"this_month"`
	Subjects  []SubjectEarnings `json:"subjects"`
	// RecordedCreatorShare sums the creator amounts stored per sale. It is
	// exact where Creator is a tier approximation.
	RecordedCreatorShare int64 `json:"recorded_creator_share"`
}

type SubjectEarnings struct {
	SubjectID   uint   `json:"subject_id"`
	SubjectName string `json:"subject_name"`
	fees.Aggregate
	// NextSale is the split the next bundle sale of this subject will get.
	NextSale             fees.Split `json:"next_sale"`
	RecordedCreatorShare int64      `json:"recorded_creator_share"`
}

type Reconciler struct {
	purchases  repository.PurchaseRepository
	videoSales repository.VideoSalesRepository
	payouts    repository.PayoutRepository
	scholars   repository.ScholarRepository
	accounts   *connect.Service
	currency   string
	now        func() time.Time
}

func NewReconciler(repos *repository.Repositories, accounts *connect.Service, currency string) *Reconciler {
	return &Reconciler{
		purchases:  repos.Purchase,
		videoSales: repos.VideoSales,
		payouts:    repos.Payout,
		scholars:   repos.Scholar,
		accounts:   accounts,
		currency:   currency,
		now:        time.Now,
	}
}

// ScholarEarnings computes the earnings report of a scholar. Legacy video
// sales use the flat split, bundle sales the proportional tier split per
// subject. The pending balance never drops below zero.
func (r *Reconciler) ScholarEarnings(ctx context.Context, scholarID uint) (*Report, error) {
	if _, err := r.scholars.GetProfile(ctx, scholarID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load scholar %d: %w", scholarID, err)
	}

	now := r.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	videoTotal, err := r.videoSales.ScholarStats(ctx, scholarID, nil)
	if err != nil {
		return nil, fmt.Errorf("video sales: %w", err)
	}
	videoMonth, err := r.videoSales.ScholarStats(ctx, scholarID, &monthStart)
	if err != nil {
		return nil, fmt.Errorf("video sales this month: %w", err)
	}
	bundleTotal, err := r.purchases.ScholarStats(ctx, scholarID, nil)
	if err != nil {
		return nil, fmt.Errorf("bundle sales: %w", err)
	}
	bundleMonth, err := r.purchases.ScholarStats(ctx, scholarID, &monthStart)
	if err != nil {
		return nil, fmt.Errorf("bundle sales this month: %w", err)
	}
	subjects, err := r.purchases.ScholarSubjectStats(ctx, scholarID)
	if err != nil {
		return nil, fmt.Errorf("bundle sales by subject: %w", err)
	}
	paid, err := r.payouts.CompletedStats(ctx, scholarID)
	if err != nil {
		return nil, fmt.Errorf("payouts: %w", err)
	}

	rep := &Report{
		ScholarID: scholarID,
		Currency:  r.currency,
		Videos: VideoSales{
			Aggregate: fees.Legacy(videoTotal.Count, videoTotal.Revenue),
			ThisMonth: videoMonth,
		},
		Bundles: BundleSales{
			SalesStats: bundleTotal,
			ThisMonth:  bundleMonth,
			Subjects:   make([]SubjectEarnings, 0, len(subjects)),
		},
		TotalPaid:   paid.TotalPaid,
		PayoutCount: paid.PayoutCount,
	}

	for _, st := range subjects {
		agg := fees.Proportional(st.Count, st.Revenue)
		rep.Bundles.Subjects = append(rep.Bundles.Subjects, SubjectEarnings{
			SubjectID:            st.SubjectID,
			SubjectName:          st.SubjectName,
			Aggregate:            agg,
			NextSale:             fees.ForPriorSales(st.Count),
			RecordedCreatorShare: st.RecordedCreatorShare,
		})
		rep.Bundles.Creator += agg.Creator
		rep.Bundles.Platform += agg.Platform
		rep.Bundles.RecordedCreatorShare += st.RecordedCreatorShare
	}

	rep.TotalSales = rep.Videos.Sales + rep.Bundles.Count
	rep.TotalRevenue = rep.Videos.Revenue + rep.Bundles.Revenue
	rep.Combined = fees.Proportional(rep.TotalSales, rep.TotalRevenue)
	rep.Earnings = rep.Combined.Creator
	rep.PlatformFees = rep.Combined.Platform
	rep.PendingBalance, rep.Overpaid = pending(rep.Earnings, rep.TotalPaid)
	return rep, nil
}

func pending(earnings, paid int64) (balance, overpaid int64) {
	if paid > earnings {
		return 0, paid - earnings
	}
	return earnings - paid, 0
}
