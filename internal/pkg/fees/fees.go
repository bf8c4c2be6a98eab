// Package fees computes the platform/creator revenue split for bundle and
// legacy video sales. All amounts are integer minor currency units.
package fees

// Threshold is the number of lower-tier sales per (subject, scholar) pair.
const Threshold int64 = 100

const (
	LowerTierPlatformPercent = 30
	UpperTierPlatformPercent = 50
	LegacyPlatformPercent    = 15
)

// Split is a percentage pair that always sums to 100.
type Split struct {
	PlatformPercent int `json:"platform_fee_percent"`
	CreatorPercent  int `json:"creator_percent"`
}

// Amounts is a Split applied to a concrete total.
type Amounts struct {
	Total    int64 `json:"total"`
	Platform int64 `json:"platform"`
	Creator  int64 `json:"creator"`
	Split
}

// Aggregate is the creator/platform share of a revenue history.
type Aggregate struct {
	Sales    int64 `json:"sales"`
	Revenue  int64 `json:"revenue"`
	Creator  int64 `json:"creator"`
	Platform int64 `json:"platform"`
	Split
}

var (
	LowerTier        = newSplit(LowerTierPlatformPercent)
	UpperTier        = newSplit(UpperTierPlatformPercent)
	LegacyVideoSplit = newSplit(LegacyPlatformPercent)
)

func newSplit(platform int) Split {
	return Split{PlatformPercent: platform, CreatorPercent: 100 - platform}
}

// ForPriorSales returns the split for the next sale given how many sales were
// already recorded for the pair.
func ForPriorSales(prior int64) Split {
	if prior < Threshold {
		return LowerTier
	}
	return UpperTier
}

// ForSaleNumber returns the split for the n-th sale (1-based), so sale 100 is
// still lower tier and sale 101 is the first upper-tier sale.
func ForSaleNumber(n int64) Split {
	return ForPriorSales(n - 1)
}

// Apply splits total. The platform share is rounded half-up and the creator
// receives the remainder, so the two always add up to total.
func (s Split) Apply(total int64) Amounts {
	platform := percentOf(total, s.PlatformPercent)
	return Amounts{
		Total:    total,
		Platform: platform,
		Creator:  total - platform,
		Split:    s,
	}
}

// Proportional estimates the creator share of a pair's revenue history from
// its sales count alone. Revenue is attributed to the tiers in proportion to
// the number of sales in each, which is exact only while all sales had the
// same price.
func Proportional(totalSales, totalRevenue int64) Aggregate {
	if totalSales <= 0 {
		return Aggregate{Split: LowerTier}
	}
	if totalSales <= Threshold {
		a := LowerTier.Apply(totalRevenue)
		return Aggregate{
			Sales:    totalSales,
			Revenue:  totalRevenue,
			Creator:  a.Creator,
			Platform: a.Platform,
			Split:    LowerTier,
		}
	}

	below := divRoundHalfUp(totalRevenue*Threshold, totalSales)
	above := totalRevenue - below
	creator := percentOf(below, LowerTier.CreatorPercent) + percentOf(above, UpperTier.CreatorPercent)
	return Aggregate{
		Sales:    totalSales,
		Revenue:  totalRevenue,
		Creator:  creator,
		Platform: totalRevenue - creator,
		Split:    UpperTier,
	}
}

// Legacy applies the flat per-video split to a revenue total.
func Legacy(sales, revenue int64) Aggregate {
	a := LegacyVideoSplit.Apply(revenue)
	return Aggregate{
		Sales:    sales,
		Revenue:  revenue,
		Creator:  a.Creator,
		Platform: a.Platform,
		Split:    LegacyVideoSplit,
	}
}

func percentOf(amount int64, percent int) int64 {
	return divRoundHalfUp(amount*int64(percent), 100)
}

// divRoundHalfUp divides rounding .5 away from zero.
func divRoundHalfUp(n, d int64) int64 {
	if d == 0 {
		return 0
	}
	if (n < 0) != (d < 0) {
		return -((abs(n) + abs(d)/2) / abs(d))
	}
	return (abs(n) + abs(d)/2) / abs(d)
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
