package model

// VisionAnalysis is the raw output of an upstream image analysis of a
// medication photo: candidate names, label text, and physical
// characteristics, all unverified.
type VisionAnalysis struct {
	MedicationNames []string `json:"medication_names"`
	Manufacturers   []string `json:"manufacturers"`
	Ingredients     []string `json:"ingredients"`
	NDCCandidates   []string `json:"ndc_candidates"`
	LabelText       []string `json:"label_text"`
	ImprintText     string   `json:"imprint_text"`
	Strength        string   `json:"strength"`
	DosageForm      string   `json:"dosage_form"`
	Route           string   `json:"route"`
	Shape           string   `json:"shape"`
	Color           string   `json:"color"`
	Confidence      float64  `json:"confidence"`
}

// SeedIdentifiers is the cleaned identifier set a verification run
// starts from.
type SeedIdentifiers struct {
	BrandName         string   `json:"brand_name,omitempty"`
	GenericName       string   `json:"generic_name,omitempty"`
	NDC               string   `json:"ndc,omitempty"`
	Manufacturer      string   `json:"manufacturer,omitempty"`
	ActiveIngredients []string `json:"active_ingredients,omitempty"`
	Strength          string   `json:"strength,omitempty"`
	DosageForm        string   `json:"dosage_form,omitempty"`
	Route             string   `json:"route,omitempty"`
	Imprint           string   `json:"imprint,omitempty"`
	Shape             string   `json:"shape,omitempty"`
	Color             string   `json:"color,omitempty"`
	RawText           []string `json:"raw_text,omitempty"`

	// InitialConfidence carries the upstream analysis confidence.
	InitialConfidence float64 `json:"initial_confidence,omitempty"`
	// DataQualityScore rates identifier completeness 0-100.
	DataQualityScore int `json:"data_quality_score"`
}

// HasAnyIdentifier reports whether the seed carries at least one
// searchable identifier.
func (s SeedIdentifiers) HasAnyIdentifier() bool {
	return s.NDC != "" ||
		s.BrandName != "" ||
		s.GenericName != "" ||
		len(s.ActiveIngredients) > 0 ||
		(s.Manufacturer != "" && s.BrandName != "")
}
