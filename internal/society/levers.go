// Policy levers — five bounded scalars the elite circle votes on.
package society

import "fmt"

// LeverName identifies one of the five policy levers.
type LeverName string

const (
	LeverCompetitionReward LeverName = "competition_reward"
	LeverCareReward        LeverName = "care_reward"
	LeverTaxRedistribution LeverName = "tax_redistribution"
	LeverAttributionBias   LeverName = "attribution_bias"
	LeverSocialSanction    LeverName = "social_sanction"
)

// LeverNames lists all levers in a fixed iteration order for name-driven
// lookups (vote subject selection, bound checks).
var LeverNames = []LeverName{
	LeverCompetitionReward,
	LeverCareReward,
	LeverTaxRedistribution,
	LeverAttributionBias,
	LeverSocialSanction,
}

// LeverBounds is the configured [min, max] band for a lever.
type LeverBounds struct {
	Min float64
	Max float64
}

var leverBounds = map[LeverName]LeverBounds{
	LeverCompetitionReward: {Min: 0.5, Max: 2.0},
	LeverCareReward:        {Min: 0.5, Max: 2.0},
	LeverTaxRedistribution: {Min: 0, Max: 0.8},
	LeverAttributionBias:   {Min: 0, Max: 1},
	LeverSocialSanction:    {Min: 0, Max: 1},
}

// BoundsFor returns the bounds of a lever, failing on unknown names.
func BoundsFor(name LeverName) (LeverBounds, error) {
	b, ok := leverBounds[name]
	if !ok {
		return LeverBounds{}, fmt.Errorf("unknown policy lever %q", name)
	}
	return b, nil
}

// PolicyLevers holds the five lever values as named fields. Name-keyed access
// goes through Get/Set so a typo fails loudly instead of silently defaulting.
type PolicyLevers struct {
	CompetitionReward float64 `json:"competition_reward" yaml:"competition_reward"`
	CareReward        float64 `json:"care_reward" yaml:"care_reward"`
	TaxRedistribution float64 `json:"tax_redistribution" yaml:"tax_redistribution"`
	AttributionBias   float64 `json:"attribution_bias" yaml:"attribution_bias"`
	SocialSanction    float64 `json:"social_sanction" yaml:"social_sanction"`
}

// Get returns the value of the named lever.
func (p *PolicyLevers) Get(name LeverName) (float64, error) {
	switch name {
	case LeverCompetitionReward:
		return p.CompetitionReward, nil
	case LeverCareReward:
		return p.CareReward, nil
	case LeverTaxRedistribution:
		return p.TaxRedistribution, nil
	case LeverAttributionBias:
		return p.AttributionBias, nil
	case LeverSocialSanction:
		return p.SocialSanction, nil
	}
	return 0, fmt.Errorf("unknown policy lever %q", name)
}

// Set assigns the value of the named lever.
func (p *PolicyLevers) Set(name LeverName, v float64) error {
	switch name {
	case LeverCompetitionReward:
		p.CompetitionReward = v
	case LeverCareReward:
		p.CareReward = v
	case LeverTaxRedistribution:
		p.TaxRedistribution = v
	case LeverAttributionBias:
		p.AttributionBias = v
	case LeverSocialSanction:
		p.SocialSanction = v
	default:
		return fmt.Errorf("unknown policy lever %q", name)
	}
	return nil
}
