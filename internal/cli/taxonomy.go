package cli

import (
	"encoding/json"
	"fmt"

	"resumatch/internal/errors"
	"resumatch/internal/skills"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Print the active skill taxonomy or validate a taxonomy file",
	Long: `Print the skill taxonomy in use (the built-in one unless
analysis.taxonomyFile is set) as YAML or JSON. The output is a valid taxonomy
document and can be edited and passed back through analysis.taxonomyFile.

With --validate FILE the file is compiled instead and a summary is printed;
the command fails when the file is not a valid taxonomy.`,
	Args: cobra.NoArgs,
	RunE: runTaxonomy,
}

var (
	taxonomyValidate string
	taxonomyFormat   string
)

func init() {
	taxonomyCmd.Flags().StringVar(&taxonomyValidate, "validate", "", "Taxonomy file to validate")
	taxonomyCmd.Flags().StringVar(&taxonomyFormat, "format", "yaml", "Output format: yaml or json")
}

func runTaxonomy(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())
	out := cmd.OutOrStdout()

	if taxonomyValidate != "" {
		tax, err := skills.LoadTaxonomyFile(taxonomyValidate)
		if err != nil {
			return errors.NewConfigError(errors.ErrCodeInvalidTaxonomy, "taxonomy is invalid", err)
		}
		logger.Info("Taxonomy validated", "file", taxonomyValidate, "skills", tax.Len())
		_, err = fmt.Fprintf(out, "%s: valid taxonomy with %d skills (technical %d, soft %d, operational %d)\n",
			taxonomyValidate, tax.Len(),
			len(tax.Skills(skills.Technical)),
			len(tax.Skills(skills.Soft)),
			len(tax.Skills(skills.Operational)))
		return err
	}

	tax, err := cfg.Taxonomy()
	if err != nil {
		return err
	}

	var data []byte
	switch taxonomyFormat {
	case "yaml":
		data, err = yaml.Marshal(tax.Document())
	case "json":
		data, err = json.MarshalIndent(tax.Document(), "", "  ")
		data = append(data, '\n')
	default:
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("unsupported taxonomy format '%s'. Supported formats: [json yaml]", taxonomyFormat), nil)
	}
	if err != nil {
		return fmt.Errorf("failed to encode taxonomy: %w", err)
	}
	_, err = out.Write(data)
	return err
}
