// Package repositorytest holds in-memory repositories that enforce the same
// unique constraints as the MySQL schema.
package repositorytest

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/UniClips/app/models"
	"github.com/ManuelReschke/UniClips/app/repository"
)

// Store is a shared in-memory database.
type Store struct {
	mu sync.Mutex

	Users          map[uint]models.User
	Profiles       map[uint]*models.ScholarProfile
	Subjects       map[uint]models.Subject
	ScholarSubject map[[2]uint]models.ScholarSubject
	Videos         map[uint]models.Video
	VideoPurchases []models.VideoPurchase
	Purchases      []*models.Purchase
	Charges        []*models.PurchaseCharge
	Payouts        []*models.Payout

	// BeforeCreatePurchase runs once ahead of the next purchase insert, to
	// let a competing writer win.
	BeforeCreatePurchase func()
	// CreatePayoutErr fails the next payout insert once.
	CreatePayoutErr error
}

func NewStore() *Store {
	return &Store{
		Users:          map[uint]models.User{},
		Profiles:       map[uint]*models.ScholarProfile{},
		Subjects:       map[uint]models.Subject{},
		ScholarSubject: map[[2]uint]models.ScholarSubject{},
		Videos:         map[uint]models.Video{},
	}
}

// Repositories exposes the store through the repository interfaces.
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		User:       userRepo{s},
		Purchase:   purchaseRepo{s},
		VideoSales: videoSalesRepo{s},
		Payout:     payoutRepo{s},
		Scholar:    scholarRepo{s},
		Catalog:    catalogRepo{s},
	}
}

// AddScholar registers an approved scholar; accountID may be empty.
func (s *Store) AddScholar(userID uint, accountID string, onboarded bool) *models.ScholarProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Users[userID] = models.User{ID: userID, FirstName: "Scholar", LastName: "Test", Email: "scholar@example.com"}
	p := &models.ScholarProfile{
		ID:                       userID,
		UserID:                   userID,
		Approved:                 true,
		StripeOnboardingComplete: onboarded,
		StripeDetailsSubmitted:   onboarded,
		User:                     s.Users[userID],
	}
	if accountID != "" {
		id := accountID
		p.StripeAccountID = &id
	}
	s.Profiles[userID] = p
	return p
}

// AddSubject registers a subject with an optional bundle price.
func (s *Store) AddSubject(id uint, name string, price *int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Subjects[id] = models.Subject{ID: id, Name: name, BundlePrice: price}
}

// SetScholarPrice sets a scholar-level bundle price override.
func (s *Store) SetScholarPrice(scholarID, subjectID uint, price *int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ScholarSubject[[2]uint{scholarID, subjectID}] = models.ScholarSubject{
		ScholarUserID: scholarID, SubjectID: subjectID, BundlePrice: price, Approved: true,
	}
}

// SeedSales inserts n historical single purchases of a bundle at amount each.
func (s *Store) SeedSales(subjectID, scholarID uint, n int, amount int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.Purchases = append(s.Purchases, &models.Purchase{
			ID:              uint(len(s.Purchases) + 1),
			BuyerUserID:     uint(100000 + len(s.Purchases)),
			SubjectID:       subjectID,
			ScholarID:       scholarID,
			Amount:          amount,
			Currency:        models.DefaultCurrency,
			LifetimeAmount:  amount,
			Active:          true,
			CreatedAt:       time.Now(),
			LifetimeCreator: amount * 70 / 100,
		})
	}
}

// ChargeCount returns the number of recorded charges.
func (s *Store) ChargeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Charges)
}

// PurchaseCount returns the number of purchase rows.
func (s *Store) PurchaseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Purchases)
}

// AllPayouts returns copies of every payout row.
func (s *Store) AllPayouts() []models.Payout {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Payout, 0, len(s.Payouts))
	for _, p := range s.Payouts {
		out = append(out, *p)
	}
	return out
}

type userRepo struct{ s *Store }

func (r userRepo) GetByID(_ context.Context, id uint) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.Users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

type purchaseRepo struct{ s *Store }

func (r purchaseRepo) Create(_ context.Context, p *models.Purchase) error {
	r.s.mu.Lock()
	before := r.s.BeforeCreatePurchase
	r.s.BeforeCreatePurchase = nil
	r.s.mu.Unlock()
	if before != nil {
		before()
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.Purchases {
		if existing.BuyerUserID == p.BuyerUserID && existing.SubjectID == p.SubjectID && existing.ScholarID == p.ScholarID {
			return gorm.ErrDuplicatedKey
		}
	}
	if r.s.charged(p.TransactionID) {
		return gorm.ErrDuplicatedKey
	}
	p.ID = uint(len(r.s.Purchases) + 1)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	cp := *p
	r.s.Purchases = append(r.s.Purchases, &cp)
	r.s.recordCharge(&cp)
	return nil
}

func (r purchaseRepo) Renew(_ context.Context, p *models.Purchase, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.Purchases {
		if existing.ID != p.ID {
			continue
		}
		if existing.IsActiveAt(now) || r.s.charged(p.TransactionID) {
			return gorm.ErrDuplicatedKey
		}
		*existing = *p
		r.s.recordCharge(existing)
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (r purchaseRepo) GetByCharge(_ context.Context, ref string) (*models.Purchase, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.Charges {
		if c.TransactionID != ref {
			continue
		}
		for _, p := range r.s.Purchases {
			if p.ID == c.PurchaseID {
				cp := *p
				return &cp, nil
			}
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// charged reports whether ref is in the charge ledger. Callers hold mu.
func (s *Store) charged(ref *string) bool {
	if ref == nil {
		return false
	}
	for _, c := range s.Charges {
		if c.TransactionID == *ref {
			return true
		}
	}
	return false
}

// recordCharge appends the row's latest charge. Callers hold mu.
func (s *Store) recordCharge(p *models.Purchase) {
	if p.TransactionID == nil {
		return
	}
	c := p.Charge()
	c.ID = uint(len(s.Charges) + 1)
	c.CreatedAt = time.Now()
	s.Charges = append(s.Charges, c)
}

func (r purchaseRepo) GetByTriple(_ context.Context, buyerID, subjectID, scholarID uint) (*models.Purchase, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.Purchases {
		if p.BuyerUserID == buyerID && p.SubjectID == subjectID && p.ScholarID == scholarID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r purchaseRepo) ListByBuyer(_ context.Context, buyerID uint) ([]repository.BuyerPurchase, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []repository.BuyerPurchase
	for _, p := range r.s.Purchases {
		if p.BuyerUserID == buyerID {
			out = append(out, repository.BuyerPurchase{Purchase: *p, SubjectName: r.s.Subjects[p.SubjectID].Name})
		}
	}
	return out, nil
}

func (r purchaseRepo) HasActiveBundle(_ context.Context, buyerID, subjectID, scholarID uint, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.Purchases {
		if p.BuyerUserID == buyerID && p.SubjectID == subjectID && p.ScholarID == scholarID && p.IsActiveAt(now) {
			return true, nil
		}
	}
	return false, nil
}

func (r purchaseRepo) CountSales(_ context.Context, subjectID, scholarID uint) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, p := range r.s.Purchases {
		if p.SubjectID == subjectID && p.ScholarID == scholarID {
			n += p.SalesCount()
		}
	}
	return n, nil
}

func (r purchaseRepo) ScholarStats(_ context.Context, scholarID uint, since *time.Time) (models.SalesStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var st models.SalesStats
	for _, p := range r.s.Purchases {
		if p.ScholarID != scholarID {
			continue
		}
		if since != nil {
			last := p.CreatedAt
			if p.RenewedAt != nil {
				last = *p.RenewedAt
			}
			if last.Before(*since) {
				continue
			}
			st.Count++
			st.Revenue += p.Amount
			continue
		}
		st.Count += p.SalesCount()
		st.Revenue += p.LifetimeAmount
	}
	return st, nil
}

func (r purchaseRepo) ScholarSubjectStats(_ context.Context, scholarID uint) ([]models.SubjectSalesStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	bySubject := map[uint]*models.SubjectSalesStats{}
	for _, p := range r.s.Purchases {
		if p.ScholarID != scholarID {
			continue
		}
		st, ok := bySubject[p.SubjectID]
		if !ok {
			st = &models.SubjectSalesStats{SubjectID: p.SubjectID, SubjectName: r.s.Subjects[p.SubjectID].Name}
			bySubject[p.SubjectID] = st
		}
		st.Count += p.SalesCount()
		st.Revenue += p.LifetimeAmount
		st.RecordedCreatorShare += p.LifetimeCreator
	}
	out := make([]models.SubjectSalesStats, 0, len(bySubject))
	for _, st := range bySubject {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubjectID < out[j].SubjectID })
	return out, nil
}

type videoSalesRepo struct{ s *Store }

func (r videoSalesRepo) ScholarStats(_ context.Context, scholarID uint, since *time.Time) (models.SalesStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var st models.SalesStats
	for _, vp := range r.s.VideoPurchases {
		v, ok := r.s.Videos[vp.VideoID]
		if !ok || v.ScholarUserID != scholarID {
			continue
		}
		if since != nil && vp.CreatedAt.Before(*since) {
			continue
		}
		st.Count++
		st.Revenue += vp.Amount
	}
	return st, nil
}

func (r videoSalesRepo) HasPurchased(_ context.Context, buyerID, videoID uint) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, vp := range r.s.VideoPurchases {
		if vp.BuyerUserID == buyerID && vp.VideoID == videoID {
			return true, nil
		}
	}
	return false, nil
}

type payoutRepo struct{ s *Store }

func (r payoutRepo) Create(_ context.Context, p *models.Payout) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.CreatePayoutErr; err != nil {
		r.s.CreatePayoutErr = nil
		return err
	}
	if p.SourceTransactionID != nil {
		for _, existing := range r.s.Payouts {
			if existing.SourceTransactionID != nil && *existing.SourceTransactionID == *p.SourceTransactionID {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	p.ID = uint(len(r.s.Payouts) + 1)
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	cp := *p
	r.s.Payouts = append(r.s.Payouts, &cp)
	return nil
}

func (r payoutRepo) UpdateStatus(_ context.Context, id uint, status, transferID, failureReason string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.Payouts {
		if p.ID != id || p.Status == models.PayoutStatusCompleted {
			continue
		}
		p.Status = status
		p.FailureReason = failureReason
		if transferID != "" {
			p.StripeTransferID = transferID
		}
		p.UpdatedAt = time.Now()
		return true, nil
	}
	return false, nil
}

func (r payoutRepo) GetBySourceTransaction(_ context.Context, ref string) (*models.Payout, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.Payouts {
		if p.SourceTransactionID != nil && *p.SourceTransactionID == ref {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r payoutRepo) List(_ context.Context, filter repository.PayoutFilter) ([]models.Payout, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Payout
	for i := len(r.s.Payouts) - 1; i >= 0; i-- {
		p := r.s.Payouts[i]
		if filter.ScholarID != 0 && p.ScholarUserID != filter.ScholarID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, *p)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (r payoutRepo) CompletedStats(_ context.Context, scholarID uint) (models.PayoutStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var st models.PayoutStats
	for _, p := range r.s.Payouts {
		if p.ScholarUserID == scholarID && p.Status == models.PayoutStatusCompleted {
			st.TotalPaid += p.Amount
			st.PayoutCount++
		}
	}
	return st, nil
}

type scholarRepo struct{ s *Store }

func (r scholarRepo) GetProfile(_ context.Context, userID uint) (*models.ScholarProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.Profiles[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r scholarRepo) ListApproved(_ context.Context) ([]models.ScholarProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.ScholarProfile
	for _, p := range r.s.Profiles {
		if p.Approved {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (r scholarRepo) SetConnectedAccount(_ context.Context, userID uint, accountID string) error {
	return r.update(userID, func(p *models.ScholarProfile) {
		id := accountID
		p.StripeAccountID = &id
		p.StripeOnboardingComplete = false
		p.StripeDetailsSubmitted = false
	})
}

func (r scholarRepo) UpdateAccountFlags(_ context.Context, userID uint, onboardingComplete, detailsSubmitted bool) error {
	return r.update(userID, func(p *models.ScholarProfile) {
		p.StripeOnboardingComplete = onboardingComplete
		p.StripeDetailsSubmitted = detailsSubmitted
	})
}

func (r scholarRepo) ClearConnectedAccount(_ context.Context, userID uint) error {
	return r.update(userID, func(p *models.ScholarProfile) {
		p.StripeAccountID = nil
		p.StripeOnboardingComplete = false
		p.StripeDetailsSubmitted = false
	})
}

func (r scholarRepo) update(userID uint, fn func(*models.ScholarProfile)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.Profiles[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	fn(p)
	return nil
}

type catalogRepo struct{ s *Store }

func (r catalogRepo) ResolveBundle(_ context.Context, subjectID, scholarID uint) (*repository.Bundle, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	subject, ok := r.s.Subjects[subjectID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	b := &repository.Bundle{SubjectID: subjectID, ScholarID: scholarID, SubjectName: subject.Name, Price: subject.BundlePrice}
	if link, ok := r.s.ScholarSubject[[2]uint{scholarID, subjectID}]; ok && link.BundlePrice != nil {
		b.Price = link.BundlePrice
	}
	return b, nil
}

func (r catalogRepo) GetVideo(_ context.Context, id uint) (*models.Video, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.Videos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &v, nil
}
