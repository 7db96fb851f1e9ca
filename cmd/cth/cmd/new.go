package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"cth/internal/scaffold"
)

var newCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Create a new project",
	Long: `Creates <name> inside --dir with a sample CSV file, hook stubs, an about page and
the multiverse theme. The name is slugified.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := filepath.Abs(projectDir)
		if err != nil {
			return err
		}
		res, err := scaffold.New(cwd, args[0], logger)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "To build the site, type:")
		fmt.Fprintf(out, "  cd %s\n", res.Name)
		fmt.Fprintln(out, "  cth build")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(newCmd)
}
