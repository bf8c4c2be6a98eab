package models

// SalesStats aggregates sales count and revenue (minor units).
type SalesStats struct {
	Count   int64 `json:"count"`
	Revenue int64 `json:"revenue"`
}

// SubjectSalesStats is SalesStats for one subject of a scholar's bundles.
type SubjectSalesStats struct {
	SubjectID   uint   `json:"subject_id"`
	SubjectName string `json:"subject_name"`
	SalesStats
	RecordedCreatorShare int64 `json:"recorded_creator_share"`
}

// PayoutStats aggregates completed payouts of a scholar.
type PayoutStats struct {
	TotalPaid   int64 `json:"total_paid"`
	PayoutCount int64 `json:"payout_count"`
}
