package cmd

import (
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/hncheck/packages/core/runner"
	"github.com/spf13/cobra"
)

var listTagsFlag string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the contract scenarios",
	Long: `List the scenarios run by 'hncheck run', with their tags.

Examples:
  hncheck list
  hncheck list --tags edge`,
	Args: cobra.NoArgs,
	RunE: listCommand,
}

func init() {
	listCmd.Flags().StringVarP(&listTagsFlag, "tags", "t", "", "Only list scenarios with any of these tags (comma-separated)")
}

func listCommand(cmd *cobra.Command, args []string) error {
	filter := splitList(listTagsFlag)
	for _, sc := range runner.Catalog() {
		if len(filter) > 0 && !hasAnyTag(sc.Tags, filter) {
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %s  %s\n", sc.ID, sc.Name)
		if len(sc.Tags) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "         tags: %s\n", strings.Join(sc.Tags, ", "))
		}
	}
	return nil
}

func hasAnyTag(tags, filters []string) bool {
	for _, f := range filters {
		for _, t := range tags {
			if t == f {
				return true
			}
		}
	}
	return false
}
