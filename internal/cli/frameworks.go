package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prasadk/complyscan/internal/rules"
)

// frameworksCmd represents the frameworks command
var frameworksCmd = &cobra.Command{
	Use:   "frameworks",
	Short: "List available rule frameworks",
	Long: `List the rule frameworks available for validation, with rule counts.
Embedded defaults can be overridden by a rules directory in the config.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := rules.Load(cfg.Rules.Dir)
		if err != nil {
			return err
		}

		for _, framework := range store.Frameworks() {
			ruleSet, _ := store.Rules(framework)
			mandatory := 0
			for _, rule := range ruleSet {
				if rule.Mandatory {
					mandatory++
				}
			}
			fmt.Printf("%-10s %d rules (%d mandatory)\n", framework, len(ruleSet), mandatory)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(frameworksCmd)
}
