// Package resolve turns field cross-references into final, audited
// decisions. Resolution is deterministic and side-effect-free:
// identical inputs always yield identical output.
package resolve

import (
	"github.com/rxscan/verify-cli/internal/crossref"
	"github.com/rxscan/verify-cli/internal/model"
	"github.com/rxscan/verify-cli/internal/provider"
)

// Resolve decides one field's final value from its cross-reference.
//
// Without conflicts the consensus value stands. With conflicts, the
// fixed provider priority order decides: the highest-priority provider
// holding any value for the field wins. If no prioritized provider
// holds a value, the single most reliable observation wins.
func Resolve(xref model.FieldCrossReference) model.ConflictResolution {
	res := model.ConflictResolution{
		FieldKey:   xref.FieldKey,
		Confidence: xref.Confidence,
	}
	if len(xref.Observations) == 0 || xref.Consensus == nil {
		return res
	}

	if len(xref.Conflicts) == 0 {
		res.Resolved = true
		res.Method = model.ResolveConsensus
		res.Value = xref.Consensus.Value
		res.Source = xref.Consensus.Source
		return res
	}

	// Conflicting field: priority order decides.
	byProvider := make(map[string]model.Observation, len(xref.Observations))
	for _, o := range xref.Observations {
		if _, ok := byProvider[o.Source]; !ok {
			byProvider[o.Source] = o
		}
	}

	for _, name := range provider.PriorityOrder {
		winner, ok := byProvider[name]
		if !ok {
			continue
		}
		res.Resolved = true
		res.Method = model.ResolvePriority
		res.Value = winner.Value
		res.Source = winner.Source
		res.Alternatives = alternatives(xref.Observations, winner)
		return res
	}

	// Observations exist but none from a prioritized provider: take
	// the most reliable one.
	best := xref.Observations[0]
	for _, o := range xref.Observations[1:] {
		if o.Reliability > best.Reliability {
			best = o
		}
	}
	res.Resolved = true
	res.Method = model.ResolveReliability
	res.Value = best.Value
	res.Source = best.Source
	res.Alternatives = alternatives(xref.Observations, best)
	return res
}

// alternatives retains every observation whose value differs from the
// winner's, for audit and discrepancy reporting.
func alternatives(obs []model.Observation, winner model.Observation) []model.Observation {
	winnerKey := crossref.ComparableKey(winner.Value)
	var alts []model.Observation
	for _, o := range obs {
		if crossref.ComparableKey(o.Value) != winnerKey {
			alts = append(alts, o)
		}
	}
	return alts
}

// All resolves every cross-referenced field in canonical order.
func All(xrefs map[string]model.FieldCrossReference) map[string]model.ConflictResolution {
	out := make(map[string]model.ConflictResolution, len(xrefs))
	for _, field := range model.Fields {
		xref, ok := xrefs[field]
		if !ok {
			continue
		}
		out[field] = Resolve(xref)
	}
	return out
}
