package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/circulo/circulo/internal/domain"
)

func init() {
	rootCmd.AddCommand(patronCmd)
	patronCmd.AddCommand(patronValidateCmd)
}

var patronCmd = &cobra.Command{
	Use:   "patron",
	Short: "Patron utilities",
}

var patronValidateCmd = &cobra.Command{
	Use:   "validate IDENTITY_CODE",
	Short: "Check a 10-digit national identity code",
	Long: `Validate an identity code offline: format, region digits and
checksum. Exits non-zero when the code is invalid.`,
	Args: cobra.ExactArgs(1),
	RunE: runPatronValidate,
}

func runPatronValidate(cmd *cobra.Command, args []string) error {
	if err := domain.ValidateIdentity(args[0]); err != nil {
		return fmt.Errorf("identity %s: %w", args[0], err)
	}
	fmt.Fprintf(os.Stdout, "identity %s is valid\n", args[0])
	return nil
}
