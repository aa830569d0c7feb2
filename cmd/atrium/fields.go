package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/atrium/pkg/cli"
	"mercator-hq/atrium/pkg/fields"
	"mercator-hq/atrium/pkg/panel"
	"mercator-hq/atrium/pkg/resource"
)

var outputFormat string

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "List the declared resources",
	Long: `List every resource of the definition file with the number of fields
each page resolves to.`,
	Args: cobra.NoArgs,
	RunE: runResources,
}

var fieldsCmd = &cobra.Command{
	Use:   "fields <resource> [page]",
	Short: "Show the fields a page resolves to",
	Long: `Resolve the field set of a resource page the way the admin panel does.

Pages: index, detail, form, export, import, filters (default: index).

Examples:
  atrium fields items
  atrium fields items form --output json
  atrium fields items filters --output csv`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runFields,
}

func init() {
	rootCmd.AddCommand(resourcesCmd, fieldsCmd)

	for _, c := range []*cobra.Command{resourcesCmd, fieldsCmd} {
		c.Flags().StringVarP(&outputFormat, "output", "o", "text", "output format: text, json, csv")
	}
}

// loadRegistry loads the configuration and the resource definitions.
func loadRegistry(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if _, err := setupLogging(cfg, cmd.ErrOrStderr()); err != nil {
		return nil, err
	}
	return newApp(cfg)
}

func runResources(cmd *cobra.Command, args []string) error {
	formatter, err := cli.NewFormatter(cli.OutputFormat(outputFormat))
	if err != nil {
		return err
	}

	a, err := loadRegistry(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	pages := []panel.PageType{panel.PageIndex, panel.PageForm, panel.PageExport, panel.PageFilters}
	table := cli.Table{Headers: []string{"key", "title"}}
	for _, p := range pages {
		table.Headers = append(table.Headers, string(p))
	}

	for _, key := range a.registry.Keys() {
		res, err := a.registry.Lookup(key)
		if err != nil {
			return err
		}
		row := []string{key, res.Title()}
		for _, p := range pages {
			set, err := resource.Resolve(res, p)
			if err != nil {
				return cli.NewCommandError("resources", fmt.Errorf("%s %s: %w", key, p, err))
			}
			row = append(row, strconv.Itoa(len(set.All())))
		}
		table.Append(row...)
	}

	return formatter.Format(cmd.OutOrStdout(), table)
}

func runFields(cmd *cobra.Command, args []string) error {
	formatter, err := cli.NewFormatter(cli.OutputFormat(outputFormat))
	if err != nil {
		return err
	}

	page := panel.PageIndex
	if len(args) == 2 {
		if page, err = panel.ParsePageType(args[1]); err != nil {
			return err
		}
	}

	a, err := loadRegistry(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.registry.Lookup(args[0])
	if err != nil {
		return cli.NewCommandError("fields", err)
	}

	set, err := resource.Resolve(res, page)
	if err != nil {
		return cli.NewCommandError("fields", err)
	}

	return formatter.Format(cmd.OutOrStdout(), fieldsTable(set))
}

// fieldsTable renders one row per field, boxes flattened into the group
// column.
func fieldsTable(set *fields.Set) cli.Table {
	table := cli.Table{Headers: []string{"name", "label", "kind", "group", "sortable", "condition"}}
	for _, f := range set.OnlyFields(true).All() {
		table.Append(
			f.Name(),
			f.Label(),
			f.Kind(),
			f.Group(),
			strconv.FormatBool(f.IsSortable()),
			conditionText(f),
		)
	}
	return table
}

func conditionText(f *fields.Field) string {
	c, ok := f.Condition()
	if !ok {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%s %s %v", c.ChangeField, c.Operator, c.Value))
}
