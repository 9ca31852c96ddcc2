// Package extract turns a raw vision-analysis result into validated
// seed identifiers. It never fails: missing or ambiguous fields lower
// the data quality score instead of aborting the run.
package extract

import (
	"regexp"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/rxscan/verify-cli/internal/model"
)

// ndcPattern is the accepted NDC format: 4-5 digit labeler, 3-4 digit
// product, 1-2 digit package segment.
var ndcPattern = regexp.MustCompile(`\d{4,5}-\d{3,4}-\d{1,2}`)

// genericSuffixes are common pharmacological name endings used to
// classify a candidate as a generic (nonproprietary) name.
var genericSuffixes = []string{
	"ine", "ol", "ide", "ate", "pril", "sartan", "statin",
	"cillin", "mycin", "azole", "pam", "lam", "oxacin",
}

// knownManufacturers is a short list of well-known pharmaceutical
// companies used to prefer a manufacturer candidate.
var knownManufacturers = []string{
	"pfizer", "merck", "novartis", "roche", "sanofi", "gsk",
	"glaxosmithkline", "astrazeneca", "johnson & johnson", "janssen",
	"abbvie", "eli lilly", "lilly", "bristol-myers squibb", "bayer",
	"teva", "sandoz", "mylan", "amgen", "gilead", "takeda",
}

// presence weights for the initial data quality score. NDC is the
// strongest single identifier and weighs the most.
var qualityWeights = []struct {
	weight  int
	present func(model.SeedIdentifiers) bool
}{
	{15, func(s model.SeedIdentifiers) bool { return s.NDC != "" }},
	{15, func(s model.SeedIdentifiers) bool { return s.BrandName != "" }},
	{15, func(s model.SeedIdentifiers) bool { return s.GenericName != "" }},
	{10, func(s model.SeedIdentifiers) bool { return s.Manufacturer != "" }},
	{10, func(s model.SeedIdentifiers) bool { return len(s.ActiveIngredients) > 0 }},
	{10, func(s model.SeedIdentifiers) bool { return s.Strength != "" }},
	{10, func(s model.SeedIdentifiers) bool { return s.DosageForm != "" }},
	{10, func(s model.SeedIdentifiers) bool { return s.Imprint != "" }},
	{5, func(s model.SeedIdentifiers) bool { return len(s.RawText) > 0 }},
}

// Seed builds SeedIdentifiers from a vision analysis result.
func Seed(va model.VisionAnalysis) model.SeedIdentifiers {
	candidates := nameCandidates(va)

	seed := model.SeedIdentifiers{
		BrandName:         pickBrandName(candidates),
		GenericName:       pickGenericName(candidates),
		NDC:               extractNDC(va),
		Manufacturer:      pickManufacturer(va.Manufacturers),
		ActiveIngredients: dedupe(va.Ingredients),
		Strength:          strings.TrimSpace(va.Strength),
		DosageForm:        strings.TrimSpace(va.DosageForm),
		Route:             strings.TrimSpace(va.Route),
		Imprint:           strings.TrimSpace(va.ImprintText),
		Shape:             strings.TrimSpace(va.Shape),
		Color:             strings.TrimSpace(va.Color),
		RawText:           va.LabelText,
		InitialConfidence: va.Confidence,
	}
	seed.DataQualityScore = QualityScore(seed)

	zap.L().Debug("extract: seed built",
		zap.String("brand", seed.BrandName),
		zap.String("generic", seed.GenericName),
		zap.String("ndc", seed.NDC),
		zap.Int("quality", seed.DataQualityScore),
	)
	return seed
}

// nameCandidates gathers every plausible medication name string from
// the raw result and deduplicates case/whitespace-insensitively.
func nameCandidates(va model.VisionAnalysis) []string {
	var raw []string
	raw = append(raw, va.MedicationNames...)
	for _, line := range va.LabelText {
		line = strings.TrimSpace(line)
		// Label lines that look like names: short, alphabetic, no digits.
		if line != "" && len(line) <= 40 && !strings.ContainsAny(line, "0123456789") {
			raw = append(raw, line)
		}
	}
	return dedupe(raw)
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(strings.Join(strings.Fields(s), " "))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// pickBrandName favors capitalized candidates: proprietary names are
// printed with an initial capital on packaging.
func pickBrandName(candidates []string) string {
	for _, c := range candidates {
		if looksCapitalized(c) && !looksGeneric(c) {
			return c
		}
	}
	for _, c := range candidates {
		if looksCapitalized(c) {
			return c
		}
	}
	return ""
}

// pickGenericName favors lowercase candidates carrying common
// pharmacological suffixes. Lowercase matters: brand names like
// Prinivil share suffixes with their generics but are printed
// capitalized.
func pickGenericName(candidates []string) string {
	for _, c := range candidates {
		if c == strings.ToLower(c) && looksGeneric(c) {
			return c
		}
	}
	for _, c := range candidates {
		if !looksCapitalized(c) && looksGeneric(c) {
			return c
		}
	}
	for _, c := range candidates {
		if c == strings.ToLower(c) {
			return c
		}
	}
	return ""
}

func looksCapitalized(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

func looksGeneric(s string) bool {
	lower := strings.ToLower(strings.TrimSpace(s))
	if lower == "" {
		return false
	}
	if strings.HasSuffix(lower, "acid") {
		return true
	}
	// Check the last word against generic suffixes.
	words := strings.Fields(lower)
	last := words[len(words)-1]
	for _, suf := range genericSuffixes {
		if strings.HasSuffix(last, suf) && len(last) > len(suf)+2 {
			return true
		}
	}
	return false
}

// extractNDC scans every textual field for a value matching the NDC
// pattern. First match wins; no match is not a failure.
func extractNDC(va model.VisionAnalysis) string {
	var fields []string
	fields = append(fields, va.NDCCandidates...)
	fields = append(fields, va.LabelText...)
	fields = append(fields, va.ImprintText)

	for _, f := range fields {
		if m := ndcPattern.FindString(f); m != "" {
			return m
		}
	}
	return ""
}

// ValidNDC reports whether a value matches the accepted NDC format in
// full. Used downstream as the NDC acceptance gate.
func ValidNDC(s string) bool {
	return ndcPattern.FindString(s) == s && s != ""
}

func pickManufacturer(candidates []string) string {
	for _, c := range candidates {
		lower := strings.ToLower(strings.TrimSpace(c))
		for _, known := range knownManufacturers {
			if strings.Contains(lower, known) {
				return strings.TrimSpace(c)
			}
		}
	}
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return strings.TrimSpace(c)
		}
	}
	return ""
}

// QualityScore rates identifier completeness 0-100.
func QualityScore(seed model.SeedIdentifiers) int {
	score := 0
	for _, w := range qualityWeights {
		if w.present(seed) {
			score += w.weight
		}
	}
	return score
}
