package model

// StrategyKind names one way of querying a provider.
type StrategyKind string

const (
	StrategyNDC                 StrategyKind = "ndc"
	StrategyBrandName           StrategyKind = "brand_name"
	StrategyGenericName         StrategyKind = "generic_name"
	StrategyBrandNameStrength   StrategyKind = "brand_name_strength"
	StrategyGenericNameStrength StrategyKind = "generic_name_strength"
	StrategyActiveIngredient    StrategyKind = "active_ingredient"
	StrategyManufacturerBrand   StrategyKind = "manufacturer_brand"
)

// SearchStrategy is one planned provider query. Lower priority runs
// (and is trusted) first.
type SearchStrategy struct {
	Kind     StrategyKind `json:"kind"`
	Value    string       `json:"value"`
	Priority int          `json:"priority"`
}
