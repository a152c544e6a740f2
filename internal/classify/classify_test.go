package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ad-scout/internal/model"
)

func adRec(ads, days int, contact bool) model.AdRecord {
	return model.AdRecord{AdsCount: ads, DaysRunning: days, HasContactSignal: contact}
}

func TestAdsCountPolicy(t *testing.T) {
	th := model.DefaultThresholds()
	p := AdsCountPolicy{}

	tests := []struct {
		name string
		ads  int
		days int
		want model.Tier
	}{
		{name: "primary rule", ads: 12, days: 5, want: model.TierWinner},
		{name: "primary rule boundary", ads: 10, days: 0, want: model.TierWinner},
		{name: "long running exception", ads: 5, days: 30, want: model.TierWinner},
		{name: "long running too few ads", ads: 3, days: 35, want: model.TierPotential},
		{name: "seventy percent of min ads", ads: 7, days: 0, want: model.TierPotential},
		{name: "just below seventy percent", ads: 6, days: 0, want: model.TierNormal},
		{name: "seventy percent of days", ads: 2, days: 21, want: model.TierPotential},
		{name: "days without second ad", ads: 1, days: 60, want: model.TierNormal},
		{name: "nothing", ads: 1, days: 1, want: model.TierNormal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, p.Classify(adRec(tc.ads, tc.days, false), th))
		})
	}
}

func TestAdsCountPolicy_FloorsThresholds(t *testing.T) {
	// floor(0.7*15) = 10, floor(0.7*45) = 31
	th := model.Thresholds{MinAds: 15, MinDaysRunning: 45, MinAdsForLongRunning: 5}
	p := AdsCountPolicy{}

	assert.Equal(t, model.TierPotential, p.Classify(adRec(10, 0, false), th))
	assert.Equal(t, model.TierNormal, p.Classify(adRec(9, 0, false), th))
	assert.Equal(t, model.TierPotential, p.Classify(adRec(2, 31, false), th))
	assert.Equal(t, model.TierNormal, p.Classify(adRec(2, 30, false), th))
}

func TestContactDurationPolicy(t *testing.T) {
	p := DefaultContactDurationPolicy()
	th := model.DefaultThresholds()

	tests := []struct {
		name    string
		days    int
		contact bool
		want    model.Tier
	}{
		{name: "long with contact", days: 30, contact: true, want: model.TierWinner},
		{name: "long without contact", days: 45, contact: false, want: model.TierPotential},
		{name: "mid with contact", days: 7, contact: true, want: model.TierPotential},
		{name: "mid without contact", days: 20, contact: false, want: model.TierNormal},
		{name: "short with contact", days: 6, contact: true, want: model.TierNormal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, p.Classify(adRec(50, tc.days, tc.contact), th))
		})
	}
}

func TestApply_Exclusive(t *testing.T) {
	th := model.DefaultThresholds()
	for _, p := range []Policy{AdsCountPolicy{}, DefaultContactDurationPolicy()} {
		for ads := 0; ads <= 15; ads++ {
			for days := 0; days <= 40; days += 3 {
				for _, contact := range []bool{false, true} {
					in := adRec(ads, days, contact)
					in.IsWinner, in.IsPotential = true, true
					out := Apply(in, p, th)
					assert.False(t, out.IsWinner && out.IsPotential, "%s ads=%d days=%d", p.Name(), ads, days)
				}
			}
		}
	}
}

func TestApply_Scenarios(t *testing.T) {
	th := model.DefaultThresholds()

	out := Apply(adRec(12, 5, false), AdsCountPolicy{}, th)
	assert.True(t, out.IsWinner)
	assert.False(t, out.IsPotential)

	out = Apply(adRec(3, 35, false), AdsCountPolicy{}, th)
	assert.False(t, out.IsWinner)
	assert.True(t, out.IsPotential)
}

func TestPolicyByName(t *testing.T) {
	p, err := PolicyByName("")
	require.NoError(t, err)
	assert.Equal(t, PolicyAdsCount, p.Name())

	p, err = PolicyByName(PolicyContactDuration)
	require.NoError(t, err)
	assert.Equal(t, PolicyContactDuration, p.Name())

	_, err = PolicyByName("vibes")
	assert.Error(t, err)
}

func TestCounts(t *testing.T) {
	records := []model.AdRecord{
		{IsWinner: true}, {IsPotential: true}, {IsPotential: true}, {},
	}
	w, p := Counts(records)
	assert.Equal(t, 1, w)
	assert.Equal(t, 2, p)
}
