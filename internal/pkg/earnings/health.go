package earnings

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/UniClips/internal/pkg/connect"
)

const (
	StatusActionRequired = "action_required"
	StatusLinked         = "linked"
	StatusIncomplete     = "incomplete"
	StatusError          = "error"
)

// HealthView lists the connected-account state of all approved scholars.
type HealthView struct {
	ProcessorConfigured bool            `json:"processor_configured"`
	Source              string          `json:"source"`
	Scholars            []ScholarHealth `json:"scholars"`
}

type ScholarHealth struct {
	UserID         uint   `json:"user_id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	AccountID      string `json:"account_id,omitempty"`
	Status         string `json:"status"`
	PayoutsEnabled bool   `json:"payouts_enabled"`
	Country        string `json:"country,omitempty"`
	Source         string `json:"source"`
	Error          string `json:"error,omitempty"`
}

// AccountHealth resolves every approved scholar one after the other. A
// failing lookup marks that scholar as error and does not fail the view.
func (r *Reconciler) AccountHealth(ctx context.Context) (*HealthView, error) {
	profiles, err := r.scholars.ListApproved(ctx)
	if err != nil {
		return nil, fmt.Errorf("list approved scholars: %w", err)
	}

	configured := r.accounts.Capability().Configured
	view := &HealthView{
		ProcessorConfigured: configured,
		Source:              connect.SourceCached,
		Scholars:            make([]ScholarHealth, 0, len(profiles)),
	}
	if configured {
		view.Source = connect.SourceLive
	}

	for i := range profiles {
		p := &profiles[i]
		h := ScholarHealth{
			UserID:    p.UserID,
			FirstName: p.User.FirstName,
			LastName:  p.User.LastName,
			Email:     p.User.Email,
			AccountID: p.ConnectedAccountID(),
			Source:    view.Source,
		}

		st, err := r.accounts.Resolve(ctx, p)
		if err != nil {
			log.Errorf("[Earnings] Account status of scholar %d unavailable: %v", p.UserID, err)
			h.Status = StatusError
			h.Error = err.Error()
			view.Scholars = append(view.Scholars, h)
			continue
		}

		h.AccountID = st.AccountID
		h.Country = st.Country
		switch {
		case !st.Connected:
			h.Status = StatusActionRequired
		case st.OnboardingComplete:
			h.Status = StatusLinked
		default:
			h.Status = StatusIncomplete
		}
		h.PayoutsEnabled = st.PayoutsEnabled
		if st.Source == connect.SourceCached {
			h.PayoutsEnabled = st.OnboardingComplete
		}
		view.Scholars = append(view.Scholars, h)
	}
	return view, nil
}
