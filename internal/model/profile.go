package model

import "time"

// VerificationTier is the coarse quality label derived from the overall
// quality score.
type VerificationTier string

const (
	TierGold   VerificationTier = "gold"
	TierSilver VerificationTier = "silver"
	TierBronze VerificationTier = "bronze"
	TierBasic  VerificationTier = "basic"
)

// TierForScore maps an overall quality score to its verification tier.
func TierForScore(score float64) VerificationTier {
	switch {
	case score >= 90:
		return TierGold
	case score >= 80:
		return TierSilver
	case score >= 70:
		return TierBronze
	default:
		return TierBasic
	}
}

// QualityMetrics are the dataset-level quality numbers for a run. All
// percentages are 0-100. OverallQuality is the fixed weighted blend:
// 30% completeness, 30% accuracy, 20% source reliability, 20%
// cross-verification.
type QualityMetrics struct {
	Completeness      float64          `json:"completeness"`
	Accuracy          float64          `json:"accuracy"`
	SourceReliability float64          `json:"source_reliability"`
	CrossVerification float64          `json:"cross_verification"`
	OverallQuality    float64          `json:"overall_quality"`
	Tier              VerificationTier `json:"verification_tier"`
}

// ProfileKind distinguishes a fully reconciled profile from the
// fail-soft minimal fallback.
type ProfileKind string

const (
	ProfileVerified ProfileKind = "verified"
	ProfileMinimal  ProfileKind = "minimal"
)

// IdentificationProfile holds the identity fields of the medication.
type IdentificationProfile struct {
	BrandName         string   `json:"brand_name,omitempty"`
	GenericName       string   `json:"generic_name,omitempty"`
	NDC               string   `json:"ndc,omitempty"`
	ActiveIngredients []string `json:"active_ingredients,omitempty"`
	Strength          string   `json:"strength,omitempty"`
	DosageForm        string   `json:"dosage_form,omitempty"`
}

// PrescribingProfile holds usage and indication information.
type PrescribingProfile struct {
	Indications []string `json:"indications,omitempty"`
	Route       string   `json:"route,omitempty"`
}

// SafetyProfile holds warnings and interaction information.
type SafetyProfile struct {
	Contraindications []string `json:"contraindications,omitempty"`
	Warnings          []string `json:"warnings,omitempty"`
	AdverseReactions  []string `json:"adverse_reactions,omitempty"`
	DrugInteractions  []string `json:"drug_interactions,omitempty"`
}

// ManufacturingProfile holds manufacturer and labeling provenance.
type ManufacturingProfile struct {
	Manufacturer string `json:"manufacturer,omitempty"`
	LabelerName  string `json:"labeler_name,omitempty"`
}

// RegulatoryProfile holds registry and recall findings.
type RegulatoryProfile struct {
	RxNormID      string   `json:"rxnorm_id,omitempty"`
	SPLSetID      string   `json:"spl_set_id,omitempty"`
	ActiveRecalls []string `json:"active_recalls,omitempty"`
}

// ClinicalProfile holds research corroboration counts.
type ClinicalProfile struct {
	TrialCount       int      `json:"trial_count,omitempty"`
	PublicationCount int      `json:"publication_count,omitempty"`
	RecentTrialIDs   []string `json:"recent_trial_ids,omitempty"`
}

// SourceAttribution summarizes one provider's participation in a run.
type SourceAttribution struct {
	Provider    string       `json:"provider"`
	Status      SourceStatus `json:"status"`
	Reliability int          `json:"reliability"`
	DataPoints  int          `json:"data_points"`
	Strategy    string       `json:"strategy,omitempty"`
}

// DiscrepancySeverity grades a detected inconsistency.
type DiscrepancySeverity string

const (
	SeverityHigh   DiscrepancySeverity = "high"
	SeverityMedium DiscrepancySeverity = "medium"
	SeverityLow    DiscrepancySeverity = "low"
)

// Discrepancy records one inconsistency detected during validation.
type Discrepancy struct {
	FieldKey string              `json:"field_key"`
	Detail   string              `json:"detail"`
	Severity DiscrepancySeverity `json:"severity"`
}

// VerifiedProfile is the engine's sole output: the reconciled
// medication profile plus quality metrics and full attribution.
type VerifiedProfile struct {
	Kind           ProfileKind           `json:"kind"`
	Identification IdentificationProfile `json:"identification"`
	Prescribing    PrescribingProfile    `json:"prescribing"`
	Safety         SafetyProfile         `json:"safety"`
	Manufacturing  ManufacturingProfile  `json:"manufacturing"`
	Regulatory     RegulatoryProfile     `json:"regulatory"`
	Clinical       ClinicalProfile       `json:"clinical"`

	Quality         QualityMetrics                `json:"quality"`
	Resolutions     map[string]ConflictResolution `json:"resolutions,omitempty"`
	Attribution     []SourceAttribution           `json:"attribution,omitempty"`
	Discrepancies   []Discrepancy                 `json:"discrepancies,omitempty"`
	Recommendations []string                      `json:"recommendations,omitempty"`
	Disclaimer      string                        `json:"disclaimer"`

	VerifiedAt time.Time `json:"verified_at"`
}
