// Package classify assigns winner/potential tiers to ad records.
//
// Two policies exist. AdsCountPolicy is the default: it ranks pages by the
// number of concurrent ads, with an exception for long-running pages.
// ContactDurationPolicy ranks by run duration and a direct-contact signal and
// is selectable via classify.policy. Thresholds of zero are degenerate
// (MinAds=0 makes everything a winner); model.SearchTarget.Validate rejects
// them before classification.
package classify

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/ad-scout/internal/model"
)

// Policy names accepted by PolicyByName.
const (
	PolicyAdsCount        = "ads_count"
	PolicyContactDuration = "contact_duration"
)

// Policy maps a record to a tier. Implementations must be pure.
type Policy interface {
	Name() string
	Classify(rec model.AdRecord, th model.Thresholds) model.Tier
}

// AdsCountPolicy evaluates, in order, first match wins:
//  1. ads >= MinAds                                        -> winner
//  2. days >= MinDaysRunning && ads >= MinAdsForLongRunning -> winner
//  3. ads >= floor(0.7*MinAds) ||
//     (days >= floor(0.7*MinDaysRunning) && ads >= 2)      -> potential
//  4. otherwise                                            -> normal
type AdsCountPolicy struct{}

// Name implements Policy.
func (AdsCountPolicy) Name() string { return PolicyAdsCount }

// Classify implements Policy.
func (AdsCountPolicy) Classify(rec model.AdRecord, th model.Thresholds) model.Tier {
	ads, days := rec.AdsCount, rec.DaysRunning
	switch {
	case ads >= th.MinAds:
		return model.TierWinner
	case days >= th.MinDaysRunning && ads >= th.MinAdsForLongRunning:
		return model.TierWinner
	case ads >= seventyPercent(th.MinAds),
		days >= seventyPercent(th.MinDaysRunning) && ads >= 2:
		return model.TierPotential
	default:
		return model.TierNormal
	}
}

// seventyPercent is floor(0.7*x) for non-negative x, in integer arithmetic.
func seventyPercent(x int) int {
	return x * 7 / 10
}

// ContactDurationPolicy: winner when the ad has run WinnerDays and carries a
// contact signal; potential when it has run PotentialDays with a contact
// signal, or WinnerDays without one.
type ContactDurationPolicy struct {
	WinnerDays    int
	PotentialDays int
}

// DefaultContactDurationPolicy uses 30 and 7 days.
func DefaultContactDurationPolicy() ContactDurationPolicy {
	return ContactDurationPolicy{WinnerDays: 30, PotentialDays: 7}
}

// Name implements Policy.
func (ContactDurationPolicy) Name() string { return PolicyContactDuration }

// Classify implements Policy. Thresholds are not consulted.
func (p ContactDurationPolicy) Classify(rec model.AdRecord, _ model.Thresholds) model.Tier {
	days := rec.DaysRunning
	switch {
	case days >= p.WinnerDays && rec.HasContactSignal:
		return model.TierWinner
	case days >= p.PotentialDays && days < p.WinnerDays && rec.HasContactSignal:
		return model.TierPotential
	case days >= p.WinnerDays:
		return model.TierPotential
	default:
		return model.TierNormal
	}
}

// PolicyByName resolves a configured policy name. Empty selects AdsCountPolicy.
func PolicyByName(name string) (Policy, error) {
	switch name {
	case "", PolicyAdsCount:
		return AdsCountPolicy{}, nil
	case PolicyContactDuration:
		return DefaultContactDurationPolicy(), nil
	default:
		return nil, eris.Errorf("classify: unknown policy %q", name)
	}
}

// Apply returns a copy of rec with IsWinner/IsPotential set from p. At most
// one flag is ever true.
func Apply(rec model.AdRecord, p Policy, th model.Thresholds) model.AdRecord {
	rec.SetTier(p.Classify(rec, th))
	return rec
}

// Counts tallies winners and potentials across records.
func Counts(records []model.AdRecord) (winners, potential int) {
	for _, r := range records {
		switch r.Tier() {
		case model.TierWinner:
			winners++
		case model.TierPotential:
			potential++
		}
	}
	return winners, potential
}
