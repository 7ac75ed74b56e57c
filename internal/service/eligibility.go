package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/target/mmk-outbound/internal/core"
	"github.com/target/mmk-outbound/internal/domain/model"
	"github.com/target/mmk-outbound/internal/domain/outbound"
)

// EligibilityInput is everything the evaluator needs to decide whether a send may proceed.
type EligibilityInput struct {
	Channel     model.Channel
	Destination string
	// CustomerID is the already-known customer. Empty triggers an identity lookup.
	CustomerID              string
	Now                     time.Time
	Purpose                 model.CampaignPurpose
	AllowQuietHoursOverride bool
	TimezoneHint            string
	// Campaign, when set, adds the campaign channel and status checks.
	Campaign *model.Campaign
	Refs     AuditRefs
}

// EligibilityResult is the evaluator's decision. Reasons are deduplicated and ordered
// by precedence so the first one is the most significant.
type EligibilityResult struct {
	Eligible              bool               `json:"eligible"`
	ResolvedCustomerID    string             `json:"resolved_customer_id,omitempty"`
	NormalizedDestination string             `json:"normalized_destination"`
	Reasons               []model.ReasonCode `json:"reasons"`
}

// PrimaryReason returns the highest-precedence reason, or "" when eligible.
func (r EligibilityResult) PrimaryReason() model.ReasonCode {
	if len(r.Reasons) == 0 {
		return ""
	}
	return r.Reasons[0]
}

// EligibilityConfig holds the evaluator's optional collaborators.
type EligibilityConfig struct {
	Normalizer *outbound.Normalizer
	Audit      *AuditLogger
	Logger     *slog.Logger
}

// EligibilityEvaluatorOptions groups dependencies for EligibilityEvaluator.
type EligibilityEvaluatorOptions struct {
	Preferences core.PreferencesRepository // Required
	Identities  core.IdentityRepository    // Required
	Config      EligibilityConfig
}

// EligibilityEvaluator applies consent, identity, channel and quiet-hours rules.
// Policy decisions are reported as reasons; only lookup failures return errors.
type EligibilityEvaluator struct {
	prefs      core.PreferencesRepository
	identities core.IdentityRepository
	normalizer *outbound.Normalizer
	audit      *AuditLogger
	logger     *slog.Logger
}

// NewEligibilityEvaluator constructs an EligibilityEvaluator.
func NewEligibilityEvaluator(opts EligibilityEvaluatorOptions) *EligibilityEvaluator {
	if opts.Preferences == nil {
		panic("PreferencesRepository is required")
	}
	if opts.Identities == nil {
		panic("IdentityRepository is required")
	}
	normalizer := opts.Config.Normalizer
	if normalizer == nil {
		normalizer = outbound.NewNormalizer("")
	}
	logger := opts.Config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &EligibilityEvaluator{
		prefs:      opts.Preferences,
		identities: opts.Identities,
		normalizer: normalizer,
		audit:      opts.Config.Audit,
		logger:     logger.With("component", "eligibility"),
	}
}

type eligibilityAuditInput struct {
	Channel     model.Channel         `json:"channel"`
	Destination string                `json:"destination"`
	Purpose     model.CampaignPurpose `json:"purpose"`
	Override    bool                  `json:"override"`
}

// Evaluate decides whether in may be sent now and records the decision in the audit trail.
func (e *EligibilityEvaluator) Evaluate(ctx context.Context, in EligibilityInput) (EligibilityResult, error) {
	res, err := e.evaluate(ctx, in)

	refs := in.Refs
	if refs.CustomerID == "" {
		refs.CustomerID = res.ResolvedCustomerID
	}
	ev := AuditEvent{
		ActorType: model.ActorEvaluator,
		EventType: model.AuditEligibilityEvaluated,
		Refs:      refs,
		Input: eligibilityAuditInput{
			Channel:     in.Channel,
			Destination: in.Destination,
			Purpose:     in.Purpose,
			Override:    in.AllowQuietHoursOverride,
		},
		Success: err == nil,
		Err:     err,
	}
	if err == nil {
		ev.Output = res
	}
	e.audit.Write(ctx, ev)

	if err != nil {
		return EligibilityResult{}, err
	}
	return res, nil
}

func (e *EligibilityEvaluator) evaluate(ctx context.Context, in EligibilityInput) (EligibilityResult, error) {
	var reasons []model.ReasonCode

	destination := strings.TrimSpace(in.Destination)
	normalized, normErr := e.normalizer.Normalize(in.Channel, destination)
	if normErr != nil {
		e.logger.DebugContext(ctx, "destination normalization failed",
			"channel", in.Channel,
			"job_id", in.Refs.JobID,
			"error", normErr,
		)
		reasons = append(reasons, model.ReasonInvalidDestination)
		normalized = destination
	}

	customerID := strings.TrimSpace(in.CustomerID)
	if customerID == "" {
		link, err := e.identities.Lookup(ctx, in.Channel, normalized)
		if err != nil {
			return EligibilityResult{}, fmt.Errorf("lookup identity: %w", err)
		}
		if link == nil || !link.Verified || strings.TrimSpace(link.CustomerID) == "" {
			reasons = append(reasons, model.ReasonUnknownParty)
		} else {
			customerID = link.CustomerID
		}
	}

	if customerID != "" {
		prefs, err := e.prefs.Get(ctx, customerID)
		if err != nil {
			return EligibilityResult{}, fmt.Errorf("load preferences: %w", err)
		}
		reasons = append(reasons, preferenceReasons(prefs, in)...)
	}

	if in.Campaign != nil {
		if !in.Campaign.Allows(in.Channel) {
			reasons = append(reasons, model.ReasonChannelNotAllowed)
		}
		if !in.Campaign.IsActive() {
			reasons = append(reasons, model.ReasonCampaignInactive)
		}
	}

	reasons = model.SortReasons(reasons)
	return EligibilityResult{
		Eligible:              len(reasons) == 0,
		ResolvedCustomerID:    customerID,
		NormalizedDestination: normalized,
		Reasons:               reasons,
	}, nil
}

func preferenceReasons(prefs *model.CommPreferences, in EligibilityInput) []model.ReasonCode {
	if prefs == nil {
		return []model.ReasonCode{model.ReasonMissingConsent}
	}

	var reasons []model.ReasonCode
	if prefs.DoNotContact {
		reasons = append(reasons, model.ReasonDNC)
	}
	switch {
	case len(prefs.AllowedChannels) == 0:
		reasons = append(reasons, model.ReasonMissingConsent)
	case !model.ContainsChannel(prefs.AllowedChannels, in.Channel):
		reasons = append(reasons, model.ReasonChannelNotAllowed)
	}

	if prefs.HasQuietHours() {
		loc, _ := outbound.ResolveLocation(prefs.Timezone, in.TimezoneHint)
		now := in.Now
		if now.IsZero() {
			now = time.Now()
		}
		if outbound.InQuietHours(now.In(loc), *prefs.QuietHoursStart, *prefs.QuietHoursEnd) {
			overridden := in.Purpose == model.PurposeServiceNotice && in.AllowQuietHoursOverride
			if !overridden {
				reasons = append(reasons, model.ReasonQuietHours)
			}
		}
	}
	return reasons
}
