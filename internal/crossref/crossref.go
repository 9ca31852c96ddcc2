// Package crossref groups normalized field values across providers,
// measures agreement, and computes a consensus candidate with a
// per-field confidence score.
package crossref

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/rxscan/verify-cli/internal/model"
)

// foldTransformer strips diacritics so "Lidocaïne" and "Lidocaine"
// compare equal.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// ComparableKey reduces a value to its comparison form: lower case,
// collapsed whitespace, diacritics stripped. Arrays are element-wise
// normalized, sorted, and joined.
func ComparableKey(value any) string {
	switch v := value.(type) {
	case string:
		return foldString(v)
	case []string:
		keys := make([]string, 0, len(v))
		for _, s := range v {
			keys = append(keys, foldString(s))
		}
		sort.Strings(keys)
		return strings.Join(keys, "|")
	default:
		return ""
	}
}

func foldString(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	if folded, _, err := transform.String(foldTransformer, s); err == nil {
		return folded
	}
	return s
}

// CrossReference builds the full agreement picture for one field from
// its observations. Deterministic for a fixed observation list.
func CrossReference(field string, obs []model.Observation, w Weights) model.FieldCrossReference {
	xref := model.FieldCrossReference{
		FieldKey:     field,
		Observations: obs,
	}
	if len(obs) == 0 {
		return xref
	}

	if len(obs) == 1 {
		o := obs[0]
		xref.Consensus = &o
		xref.Confidence = singleSource(o.Reliability, w)
		return xref
	}

	// Group observations into equivalence classes by comparable key,
	// keeping first-seen key order for determinism.
	groups := make(map[string][]model.Observation)
	var keys []string
	for _, o := range obs {
		key := ComparableKey(o.Value)
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], o)
	}

	// Consensus is the group with the highest score. First-seen order
	// breaks ties.
	bestKey := keys[0]
	bestScore := -1
	for _, key := range keys {
		if s := groupScore(groups[key], w); s > bestScore {
			bestScore = s
			bestKey = key
		}
	}

	for _, key := range keys {
		group := groups[key]
		if len(group) > 1 {
			xref.Agreements += len(group)
		} else if key != bestKey {
			xref.Conflicts = append(xref.Conflicts, group[0])
		}
	}

	consensus := bestObservation(groups[bestKey])
	xref.Consensus = &consensus
	xref.Confidence = confidence(obs, xref.Agreements, w)
	// A unanimous field never scores below what its strongest member
	// would score alone: corroboration cannot lower confidence.
	if len(keys) == 1 {
		if floor := singleSource(consensus.Reliability, w); xref.Confidence < floor {
			xref.Confidence = floor
		}
	}
	return xref
}

// singleSource scores an uncorroborated observation: reliability
// scaled, capped so one source alone never reaches the top tier.
func singleSource(reliability int, w Weights) float64 {
	conf := float64(reliability) * w.SingleSourceMul
	if conf > w.SingleSourceCap {
		conf = w.SingleSourceCap
	}
	return conf
}

// groupScore rewards group size ahead of raw authority: agreement
// across independent sources matters as much as any one source's
// weight.
func groupScore(group []model.Observation, w Weights) int {
	score := len(group) * w.MemberScore
	for _, o := range group {
		score += o.Reliability
	}
	return score
}

// bestObservation picks the group's representative: highest
// reliability, first seen on ties.
func bestObservation(group []model.Observation) model.Observation {
	best := group[0]
	for _, o := range group[1:] {
		if o.Reliability > best.Reliability {
			best = o
		}
	}
	return best
}

func confidence(obs []model.Observation, agreements int, w Weights) float64 {
	total := len(obs)

	var relSum int
	for _, o := range obs {
		relSum += o.Reliability
	}
	avgRel := float64(relSum) / float64(total)

	coverage := float64(total) / float64(w.CoverageSources)
	if coverage > 1 {
		coverage = 1
	}

	score := w.Agreement*(float64(agreements)/float64(total)) +
		w.Reliability*(avgRel/10) +
		w.Coverage*coverage
	return score * 100
}

// Build cross-references every field in canonical order. Fields with
// no observations are omitted.
func Build(observe func(field string) []model.Observation, w Weights) map[string]model.FieldCrossReference {
	out := make(map[string]model.FieldCrossReference, len(model.Fields))
	for _, field := range model.Fields {
		obs := observe(field)
		if len(obs) == 0 {
			continue
		}
		out[field] = CrossReference(field, obs, w)
	}
	return out
}
