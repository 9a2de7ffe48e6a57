package businessflow

import (
	"context"

	"github.com/impulso-digital/leadshub/models"
	"github.com/impulso-digital/leadshub/repository"
	"github.com/impulso-digital/leadshub/utils"
)

// AttributionResolver correlates a purchase-time lead lacking a referral code
// with an earlier lead of the same person, so conversions credit the referrer
// who originated the contact even across anonymous sessions.
type AttributionResolver interface {
	// Resolve returns the referrer to credit for the lead, or nil when the
	// purchase is unattributed. When a code is inherited from a prior lead
	// it is persisted on the lead before returning.
	Resolve(ctx context.Context, lead *models.Lead) (*models.Referrer, error)
}

type AttributionResolverImpl struct {
	leadRepo     repository.LeadRepository
	referrerRepo repository.ReferrerRepository
}

func NewAttributionResolver(
	leadRepo repository.LeadRepository,
	referrerRepo repository.ReferrerRepository,
) AttributionResolver {
	return &AttributionResolverImpl{
		leadRepo:     leadRepo,
		referrerRepo: referrerRepo,
	}
}

// Resolve looks up the referrer for a lead. Leads already carrying a code are
// resolved directly. Otherwise prior leads are searched tier by tier:
// whatsapp, then email, then tracking ID, then IP+UA fingerprint. Each tier
// only considers leads created before this one that carry a referral code;
// the earliest match wins and tiers are never merged.
func (r *AttributionResolverImpl) Resolve(ctx context.Context, lead *models.Lead) (*models.Referrer, error) {
	if lead.HasReferralCode() {
		return r.referrerRepo.ByReferralCode(ctx, *lead.ReferralCode)
	}

	prior, err := r.findPrior(ctx, lead)
	if err != nil {
		return nil, err
	}
	if prior == nil || !prior.HasReferralCode() {
		return nil, nil
	}

	code := *prior.ReferralCode
	if err := r.leadRepo.UpdateReferralCode(ctx, lead.ID, code); err != nil {
		return nil, NewBusinessError("ATTRIBUTION_PERSIST_FAILED", "Failed to persist inherited referral code", err)
	}
	lead.ReferralCode = &code

	return r.referrerRepo.ByReferralCode(ctx, code)
}

func (r *AttributionResolverImpl) findPrior(ctx context.Context, lead *models.Lead) (*models.Lead, error) {
	for _, filter := range r.tiers(lead) {
		if filter == nil {
			continue
		}
		prior, err := r.leadRepo.EarliestAttributed(ctx, *filter, lead.CreatedAt, lead.ID)
		if err != nil {
			return nil, NewBusinessError("ATTRIBUTION_LOOKUP_FAILED", "Failed to search prior leads", err)
		}
		if prior != nil {
			return prior, nil
		}
	}
	return nil, nil
}

// tiers builds the match filters in strict priority order. Tiers whose
// identity key is absent on the lead are skipped.
func (r *AttributionResolverImpl) tiers(lead *models.Lead) []*models.LeadFilter {
	tiers := make([]*models.LeadFilter, 0, 4)

	if lead.Whatsapp != "" {
		tiers = append(tiers, &models.LeadFilter{Whatsapp: utils.ToPtr(lead.Whatsapp)})
	} else {
		tiers = append(tiers, nil)
	}

	if lead.Email != "" {
		tiers = append(tiers, &models.LeadFilter{Email: utils.ToPtr(lead.Email)})
	} else {
		tiers = append(tiers, nil)
	}

	if lead.TrackingID != nil && *lead.TrackingID != "" {
		tiers = append(tiers, &models.LeadFilter{TrackingID: lead.TrackingID})
	} else {
		tiers = append(tiers, nil)
	}

	if lead.IPAddress != nil && *lead.IPAddress != "" &&
		lead.UserAgent != nil && *lead.UserAgent != "" && *lead.UserAgent != utils.UnknownUserAgent {
		tiers = append(tiers, &models.LeadFilter{
			IPAddress: lead.IPAddress,
			UserAgent: lead.UserAgent,
		})
	} else {
		tiers = append(tiers, nil)
	}

	return tiers
}
