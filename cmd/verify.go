package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rxscan/verify-cli/internal/extract"
	"github.com/rxscan/verify-cli/internal/model"
)

var (
	verifyInput        string
	verifyNDC          string
	verifyBrand        string
	verifyGeneric      string
	verifyManufacturer string
	verifyStrength     string
	verifyDosageForm   string
	verifyIngredients  []string
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a single medication against all registries",
	Long:  "Builds a seed from flags or a vision-analysis JSON file, fans out to every provider, and prints the reconciled profile.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		seed, err := buildSeed()
		if err != nil {
			return err
		}
		if !seed.HasAnyIdentifier() {
			return eris.New("verify: no searchable identifier; provide --ndc, --brand, --generic, --ingredient, or --input")
		}

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		run, err := e.Store.CreateRun(ctx, seed)
		if err != nil {
			return eris.Wrap(err, "create run")
		}
		if err := e.Store.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning); err != nil {
			return eris.Wrap(err, "update run status")
		}

		profile := e.Engine.Verify(ctx, seed)

		if err := e.Store.UpdateRunProfile(ctx, run.ID, profile); err != nil {
			_ = e.Store.UpdateRunStatus(ctx, run.ID, model.RunStatusFailed)
			return eris.Wrap(err, "store profile")
		}

		zap.L().Info("verification stored",
			zap.String("run_id", run.ID),
			zap.String("tier", string(profile.Quality.Tier)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(profile)
	},
}

// buildSeed assembles the starting identifiers. A vision-analysis file
// goes through the extractor; bare flags are trusted as-is but still
// scored for completeness.
func buildSeed() (model.SeedIdentifiers, error) {
	if verifyInput != "" {
		data, err := os.ReadFile(verifyInput)
		if err != nil {
			return model.SeedIdentifiers{}, eris.Wrap(err, "read input file")
		}
		var va model.VisionAnalysis
		if err := json.Unmarshal(data, &va); err != nil {
			return model.SeedIdentifiers{}, eris.Wrap(err, "parse input file")
		}
		return extract.Seed(va), nil
	}

	seed := model.SeedIdentifiers{
		NDC:               verifyNDC,
		BrandName:         verifyBrand,
		GenericName:       verifyGeneric,
		Manufacturer:      verifyManufacturer,
		Strength:          verifyStrength,
		DosageForm:        verifyDosageForm,
		ActiveIngredients: verifyIngredients,
	}
	if seed.NDC != "" && !extract.ValidNDC(seed.NDC) {
		return model.SeedIdentifiers{}, eris.Errorf("verify: %q is not a valid NDC", seed.NDC)
	}
	seed.DataQualityScore = extract.QualityScore(seed)
	return seed, nil
}

func init() {
	verifyCmd.Flags().StringVar(&verifyInput, "input", "", "vision-analysis JSON file")
	verifyCmd.Flags().StringVar(&verifyNDC, "ndc", "", "National Drug Code (e.g. 0071-0155-23)")
	verifyCmd.Flags().StringVar(&verifyBrand, "brand", "", "brand name")
	verifyCmd.Flags().StringVar(&verifyGeneric, "generic", "", "generic name")
	verifyCmd.Flags().StringVar(&verifyManufacturer, "manufacturer", "", "manufacturer name")
	verifyCmd.Flags().StringVar(&verifyStrength, "strength", "", "strength (e.g. 10 mg)")
	verifyCmd.Flags().StringVar(&verifyDosageForm, "dosage-form", "", "dosage form (e.g. tablet)")
	verifyCmd.Flags().StringSliceVar(&verifyIngredients, "ingredient", nil, "active ingredient (repeatable)")
	rootCmd.AddCommand(verifyCmd)
}
