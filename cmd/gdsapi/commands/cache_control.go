package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/gdsapi/internal/constants"
	"github.com/fivetwenty-io/gdsapi/pkg/gdsapi"
)

// cacheControlInfo is the structured form of a parsed header.
type cacheControlInfo struct {
	Canonical  string         `json:"canonical"  yaml:"canonical"`
	Directives map[string]any `json:"directives" yaml:"directives"`
	MaxAge     *int           `json:"max_age"    yaml:"max_age"`
}

// NewCacheControlCommand creates the cache-control command.
func NewCacheControlCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "cache-control HEADER",
		Aliases: []string{"cc"},
		Short:   "Parse a Cache-Control header",
		Long:    "Parse a Cache-Control header and print its directives and canonical form",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}

			cc := gdsapi.ParseCacheControl(strings.Join(args, " "))

			info := cacheControlInfo{
				Canonical:  cc.String(),
				Directives: make(map[string]any, cc.Len()),
			}

			for _, name := range cc.Directives() {
				if cc.IsFlag(name) {
					info.Directives[name] = true

					continue
				}

				info.Directives[name], _ = cc.Value(name)
			}

			if maxAge, ok := cc.MaxAge(); ok {
				info.MaxAge = &maxAge
			}

			w := cmd.OutOrStdout()

			switch format {
			case constants.FormatJSON:
				encoder := json.NewEncoder(w)
				encoder.SetIndent("", jsonIndent)

				return encoder.Encode(info)
			case constants.FormatYAML:
				return yaml.NewEncoder(w).Encode(info)
			default:
				rows := make([][]string, 0, cc.Len())
				for _, name := range cc.Directives() {
					value := fmt.Sprint(info.Directives[name])
					rows = append(rows, []string{name, value})
				}

				err := renderTable(w, []string{"Directive", "Value"}, rows)
				if err != nil {
					return err
				}

				_, err = fmt.Fprintln(w, info.Canonical)

				return err
			}
		},
	}
}
