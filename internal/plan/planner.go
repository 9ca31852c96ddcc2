// Package plan converts seed identifiers into an ordered list of
// search strategies, ranked by expected specificity.
package plan

import (
	"fmt"

	"github.com/rxscan/verify-cli/internal/model"
)

// Strategies builds the ordered strategy list for a seed. NDC is the
// most specific and goes first; manufacturer+brand is the least. Equal
// priorities keep insertion order. An empty seed yields an empty list.
func Strategies(seed model.SeedIdentifiers) []model.SearchStrategy {
	var out []model.SearchStrategy

	add := func(kind model.StrategyKind, value string, priority int) {
		if value == "" {
			return
		}
		out = append(out, model.SearchStrategy{Kind: kind, Value: value, Priority: priority})
	}

	add(model.StrategyNDC, seed.NDC, 1)
	add(model.StrategyBrandName, seed.BrandName, 2)
	add(model.StrategyGenericName, seed.GenericName, 2)

	if seed.Strength != "" {
		if seed.BrandName != "" {
			add(model.StrategyBrandNameStrength,
				fmt.Sprintf("%s %s", seed.BrandName, seed.Strength), 3)
		}
		if seed.GenericName != "" {
			add(model.StrategyGenericNameStrength,
				fmt.Sprintf("%s %s", seed.GenericName, seed.Strength), 3)
		}
	}

	for _, ing := range seed.ActiveIngredients {
		add(model.StrategyActiveIngredient, ing, 4)
	}

	if seed.Manufacturer != "" && seed.BrandName != "" {
		add(model.StrategyManufacturerBrand,
			fmt.Sprintf("%s %s", seed.Manufacturer, seed.BrandName), 5)
	}

	return out
}
