package models

// CandidateTier buckets candidates by market-cap size.
type CandidateTier string

const (
	TierLarge    CandidateTier = "large"
	TierMid      CandidateTier = "mid"
	TierLowerMid CandidateTier = "lower_mid"
	TierSmall    CandidateTier = "small"
)

// Candidate is one screened instrument. The decision core treats the list
// as an opaque whitelist; metadata scores gate the metadata-aware
// strategies.
type Candidate struct {
	Instrument     string        `json:"instrument" yaml:"instrument"`
	Symbol         string        `json:"symbol" yaml:"symbol"`
	Tier           CandidateTier `json:"tier" yaml:"tier"`
	DevScore       float64       `json:"dev_score" yaml:"dev_score"`
	CommunityScore float64       `json:"community_score" yaml:"community_score"`
	AgeYears       float64       `json:"age_years" yaml:"age_years"`
	DipPct         float64       `json:"dip_pct" yaml:"dip_pct"`
	FlashCrash     bool          `json:"flash_crash" yaml:"flash_crash"`
}
