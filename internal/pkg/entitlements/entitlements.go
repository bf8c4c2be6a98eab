// Package entitlements decides which videos a user may watch.
package entitlements

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/UniClips/app/models"
	"github.com/ManuelReschke/UniClips/app/repository"
)

var ErrVideoNotFound = errors.New("video not found")

type Reason string

const (
	ReasonFree             Reason = "free"
	ReasonOwner            Reason = "owner"
	ReasonBundle           Reason = "bundle"
	ReasonVideoPurchase    Reason = "video_purchase"
	ReasonPurchaseRequired Reason = "purchase_required"
)

// Access is the outcome of an access check.
type Access struct {
	Allowed   bool   `json:"allowed"`
	Reason    Reason `json:"reason"`
	VideoID   uint   `json:"video_id"`
	SubjectID uint   `json:"subject_id"`
	ScholarID uint   `json:"scholar_id"`
}

type Checker struct {
	catalog    repository.CatalogRepository
	purchases  repository.PurchaseRepository
	videoSales repository.VideoSalesRepository
	now        func() time.Time
}

func NewChecker(repos *repository.Repositories) *Checker {
	return &Checker{
		catalog:    repos.Catalog,
		purchases:  repos.Purchase,
		videoSales: repos.VideoSales,
		now:        time.Now,
	}
}

// VideoAccess grants access to free videos, to the owning scholar, to holders
// of an active bundle for the video's subject and scholar, and to buyers of
// the single video.
func (c *Checker) VideoAccess(ctx context.Context, userID, videoID uint) (*Access, error) {
	video, err := c.catalog.GetVideo(ctx, videoID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVideoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load video %d: %w", videoID, err)
	}

	access := &Access{VideoID: video.ID, SubjectID: video.SubjectID, ScholarID: video.ScholarUserID}
	reason, err := c.reason(ctx, userID, video)
	if err != nil {
		return nil, err
	}
	access.Reason = reason
	access.Allowed = reason != ReasonPurchaseRequired
	return access, nil
}

func (c *Checker) reason(ctx context.Context, userID uint, video *models.Video) (Reason, error) {
	if video.IsFree {
		return ReasonFree, nil
	}
	if userID == 0 {
		return ReasonPurchaseRequired, nil
	}
	if video.ScholarUserID == userID {
		return ReasonOwner, nil
	}

	ok, err := c.purchases.HasActiveBundle(ctx, userID, video.SubjectID, video.ScholarUserID, c.now())
	if err != nil {
		return "", fmt.Errorf("check bundle: %w", err)
	}
	if ok {
		return ReasonBundle, nil
	}

	ok, err = c.videoSales.HasPurchased(ctx, userID, video.ID)
	if err != nil {
		return "", fmt.Errorf("check video purchase: %w", err)
	}
	if ok {
		return ReasonVideoPurchase, nil
	}
	return ReasonPurchaseRequired, nil
}
