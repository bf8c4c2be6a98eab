package checkout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ManuelReschke/UniClips/app/models"
)

// Metadata keys attached to a checkout session. Settlement reads them back.
const (
	MetaBuyerID            = "buyer_id"
	MetaSubjectID          = "subject_id"
	MetaScholarID          = "scholar_id"
	MetaPlatformFeePercent = "platform_fee_percent"
	MetaCreatorAmount      = "creator_amount"
	MetaAmount             = "amount"
	MetaCurrency           = "currency"
	MetaCreatorAccount     = "creator_account"
	MetaType               = "type"
)

// Metadata is the typed form of the checkout session metadata.
type Metadata struct {
	BuyerID            uint
	SubjectID          uint
	ScholarID          uint
	PlatformFeePercent int
	CreatorAmount      int64
	Amount             int64
	Currency           string
	CreatorAccount     string
	Type               string
}

// Encode renders the metadata as processor key/value pairs.
func (m Metadata) Encode() map[string]string {
	return map[string]string{
		MetaBuyerID:            strconv.FormatUint(uint64(m.BuyerID), 10),
		MetaSubjectID:          strconv.FormatUint(uint64(m.SubjectID), 10),
		MetaScholarID:          strconv.FormatUint(uint64(m.ScholarID), 10),
		MetaPlatformFeePercent: strconv.Itoa(m.PlatformFeePercent),
		MetaCreatorAmount:      strconv.FormatInt(m.CreatorAmount, 10),
		MetaAmount:             strconv.FormatInt(m.Amount, 10),
		MetaCurrency:           m.Currency,
		MetaCreatorAccount:     m.CreatorAccount,
		MetaType:               m.Type,
	}
}

// ParseMetadata validates and decodes session metadata. Errors wrap
// ErrValidation and name the offending key.
func ParseMetadata(raw map[string]string) (Metadata, error) {
	var m Metadata
	var err error

	if m.BuyerID, err = parseID(raw, MetaBuyerID); err != nil {
		return m, err
	}
	if m.SubjectID, err = parseID(raw, MetaSubjectID); err != nil {
		return m, err
	}
	if m.ScholarID, err = parseID(raw, MetaScholarID); err != nil {
		return m, err
	}
	if m.Amount, err = parseAmount(raw, MetaAmount); err != nil {
		return m, err
	}
	if m.CreatorAmount, err = parseAmount(raw, MetaCreatorAmount); err != nil {
		return m, err
	}
	if m.CreatorAmount > m.Amount {
		return m, fmt.Errorf("%w: %s exceeds %s", ErrValidation, MetaCreatorAmount, MetaAmount)
	}
	pct, err := strconv.Atoi(strings.TrimSpace(raw[MetaPlatformFeePercent]))
	if err != nil || pct < 0 || pct > 100 {
		return m, fmt.Errorf("%w: %s", ErrValidation, MetaPlatformFeePercent)
	}
	m.PlatformFeePercent = pct

	m.Currency = strings.ToLower(strings.TrimSpace(raw[MetaCurrency]))
	m.CreatorAccount = strings.TrimSpace(raw[MetaCreatorAccount])
	m.Type = strings.TrimSpace(raw[MetaType])
	if m.Type != "" && m.Type != models.PurchaseTypeSubjectBundle {
		return m, fmt.Errorf("%w: %s %q", ErrValidation, MetaType, m.Type)
	}
	return m, nil
}

func parseID(raw map[string]string, key string) (uint, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(raw[key]), 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("%w: %s", ErrValidation, key)
	}
	return uint(v), nil
}

func parseAmount(raw map[string]string, key string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(raw[key]), 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %s", ErrValidation, key)
	}
	return v, nil
}
