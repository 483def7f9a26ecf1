package commands

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/gdsapi/internal/constants"
	internalhttp "github.com/fivetwenty-io/gdsapi/internal/http"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Long:  "Display detailed version information about the gdsapi CLI",
		RunE: func(cmd *cobra.Command, args []string) error {
			type VersionInfo struct {
				Version string `json:"version" yaml:"version"`
				Client  string `json:"client"  yaml:"client"`
				Commit  string `json:"commit"  yaml:"commit"`
				Built   string `json:"built"   yaml:"built"`
			}

			versionInfo := VersionInfo{
				Version: version,
				Client:  internalhttp.Version,
				Commit:  commit,
				Built:   date,
			}

			format, err := outputFormat()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()

			switch format {
			case constants.FormatJSON:
				encoder := json.NewEncoder(w)
				encoder.SetIndent("", jsonIndent)

				return encoder.Encode(versionInfo)
			case constants.FormatYAML:
				return yaml.NewEncoder(w).Encode(versionInfo)
			default:
				return renderTable(w, []string{"Property", "Value"}, [][]string{
					{"Version", version},
					{"Client", internalhttp.Version},
					{"Commit", commit},
					{"Built", date},
				})
			}
		},
	}
}
