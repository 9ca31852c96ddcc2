package model

// Logical field keys cross-referenced across providers.
const (
	FieldBrandName         = "brand_name"
	FieldGenericName       = "generic_name"
	FieldNDC               = "ndc"
	FieldManufacturer      = "manufacturer"
	FieldActiveIngredients = "active_ingredients"
	FieldStrength          = "strength"
	FieldDosageForm        = "dosage_form"
	FieldIndications       = "indications"
	FieldContraindications = "contraindications"
	FieldWarnings          = "warnings"
	FieldAdverseReactions  = "adverse_reactions"
	FieldDrugInteractions  = "drug_interactions"
)

// Fields lists every cross-referenced field key in canonical order. The
// order drives deterministic iteration in the cross-referencer and the
// compiler.
var Fields = []string{
	FieldBrandName,
	FieldGenericName,
	FieldNDC,
	FieldManufacturer,
	FieldActiveIngredients,
	FieldStrength,
	FieldDosageForm,
	FieldIndications,
	FieldContraindications,
	FieldWarnings,
	FieldAdverseReactions,
	FieldDrugInteractions,
}
