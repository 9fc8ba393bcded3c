package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getmockd/mockproxy/pkg/cli/internal/output"
	"github.com/getmockd/mockproxy/pkg/config"
)

// ValidateOutput represents JSON output format
type ValidateOutput struct {
	File  string   `json:"file"`
	Valid bool     `json:"valid"`
	Mocks []string `json:"mocks"`
}

var (
	validateConfigFile string
	validatePrint      bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file without starting the proxy",
	Long: `Validate a mockproxy configuration file without starting the proxy.

This command checks:
  - YAML syntax
  - Listen address, timeouts and logging settings
  - Every mock: method, path, status, headers and body source
  - That bodyFile paths can be read`,
	Example: `  mockproxy validate -f mockproxy.yaml
  mockproxy validate -f mockproxy.yaml --print`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if validateConfigFile == "" {
			return ErrNoConfig
		}

		cfg, err := config.Load(validateConfigFile)
		if err != nil {
			return err
		}
		mocks, err := cfg.Mocks()
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if validatePrint {
			data, err := config.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = w.Write(data)
			return err
		}

		if jsonOutput {
			out := ValidateOutput{File: validateConfigFile, Valid: true, Mocks: make([]string, 0, len(mocks))}
			for _, m := range mocks {
				out.Mocks = append(out.Mocks, m.String())
			}
			return output.JSON(w, out)
		}

		fmt.Fprintf(w, "%s is valid (%d mocks)\n", validateConfigFile, len(mocks))
		if len(mocks) == 0 {
			return nil
		}
		tw := output.Table(w)
		fmt.Fprintln(tw, "METHOD\tPATH\tSTATUS\tBODY")
		for _, m := range mocks {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d bytes\n", m.Method, m.Path, m.Response.Status, len(m.Response.Body))
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVarP(&validateConfigFile, "config", "f", "", "Config file path")
	validateCmd.Flags().BoolVar(&validatePrint, "print", false, "Print the parsed configuration as YAML")
}
