package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forPelevin/speechcut/internal/config"
	"github.com/forPelevin/speechcut/internal/usecase"
)

func newModelsCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List installed language models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := loadSettings(root)
			if err != nil {
				return err
			}
			eff := st.Effective()
			names, err := config.DiscoverModels(eff.ModelDir)
			if err != nil {
				return err
			}
			if len(names) == 0 {
				return fmt.Errorf("%w in %s", usecase.ErrNoModelsInstalled, eff.ModelDir)
			}
			for _, n := range names {
				mark := " "
				if n == eff.LanguageModel {
					mark = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", mark, n)
			}
			return nil
		},
	}
}

func newSettingsCmd(root *rootFlags) *cobra.Command {
	var set []string
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change persisted settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := loadSettings(root)
			if err != nil {
				return err
			}
			if len(set) == 0 {
				eff := st.Effective()
				fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", st.Path())
				return eff.Encode(cmd.OutOrStdout())
			}
			for _, kv := range set {
				k, v, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("--set %q: want key=value", kv)
				}
				if err := st.Set(strings.TrimSpace(k), v); err != nil {
					return err
				}
			}
			if err := st.Save(); err != nil {
				return fmt.Errorf("save settings: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", st.Path())
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&set, "set", nil, "set key=value (repeatable)")
	return cmd
}
