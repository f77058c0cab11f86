package commands

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/hubspot-client/internal/constants"
	"github.com/fivetwenty-io/hubspot-client/pkg/hubspot"
)

var titleCaser = cases.Title(language.English)

// renderStructured writes data as JSON or YAML when that output was asked
// for. It reports false when the caller should render a table instead.
func renderStructured(cmd *cobra.Command, data interface{}) (bool, error) {
	output := viper.GetString("output")

	switch output {
	case constants.FormatJSON:
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", strings.Repeat(" ", constants.JSONIndentSize))

		err := encoder.Encode(data)
		if err != nil {
			return true, fmt.Errorf("failed to encode JSON: %w", err)
		}

		return true, nil
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(cmd.OutOrStdout())

		err := encoder.Encode(data)
		if err != nil {
			return true, fmt.Errorf("failed to encode YAML: %w", err)
		}

		return true, encoder.Close()
	case constants.FormatTable, "":
		return false, nil
	default:
		return true, fmt.Errorf("%w: %s", constants.ErrUnsupportedOutput, output)
	}
}

func tableOutput() bool {
	output := viper.GetString("output")

	return output == constants.FormatTable || output == ""
}

func renderTable(cmd *cobra.Command, headers []string, rows [][]string) error {
	// Headers are already title-cased.
	table := tablewriter.NewTable(cmd.OutOrStdout(), tablewriter.WithHeaderAutoFormat(tw.Off))
	table.Header(headers)

	for _, row := range rows {
		_ = table.Append(row)
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

// headerTitle turns a property name such as "hs_pipeline_stage" into "Hs Pipeline Stage".
func headerTitle(name string) string {
	return titleCaser.String(strings.ReplaceAll(name, "_", " "))
}

func printEmpty(cmd *cobra.Command, things string) {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "No %s found\n", things)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(time.RFC3339)
}

// recordRows flattens one record into Property/Value rows.
func recordRows(entity hubspot.Entity) ([][]string, error) {
	props, err := hubspot.EncodeProperties(entity)
	if err != nil {
		return nil, err
	}

	base := entity.Base()
	rows := [][]string{
		{"ID", base.ID.String()},
		{"Created", formatTimestamp(base.CreatedAt)},
		{"Updated", formatTimestamp(base.UpdatedAt)},
	}

	if base.Archived {
		rows = append(rows, []string{"Archived", formatTimestamp(base.ArchivedAt)})
	}

	for _, name := range props.Keys() {
		rows = append(rows, []string{name, props[name]})
	}

	for _, name := range sortedKeys(base.History) {
		for _, version := range base.History[name] {
			rows = append(rows, []string{
				name + " @ " + formatTimestamp(version.Timestamp),
				version.Value,
			})
		}
	}

	return rows, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

func renderRecord(cmd *cobra.Command, entity hubspot.Entity) error {
	handled, err := renderStructured(cmd, entity)
	if handled || err != nil {
		return err
	}

	rows, err := recordRows(entity)
	if err != nil {
		return err
	}

	return renderTable(cmd, []string{"Property", "Value"}, rows)
}

func renderRecords[E hubspot.Entity](cmd *cobra.Command, things string, columns []string, entities []E) error {
	if len(entities) == 0 && tableOutput() {
		printEmpty(cmd, things)

		return nil
	}

	handled, err := renderStructured(cmd, entities)
	if handled || err != nil {
		return err
	}

	headers := []string{"ID"}
	for _, column := range columns {
		headers = append(headers, headerTitle(column))
	}

	rows := make([][]string, 0, len(entities))

	for _, entity := range entities {
		props, err := hubspot.EncodeProperties(entity)
		if err != nil {
			return err
		}

		row := []string{entity.Base().ID.String()}
		for _, column := range columns {
			row = append(row, props[column])
		}

		rows = append(rows, row)
	}

	return renderTable(cmd, headers, rows)
}

func formatLabels(labels []hubspot.AssociationLabel) string {
	parts := make([]string, 0, len(labels))

	for _, label := range labels {
		part := strconv.FormatInt(label.Type.ID(), 10)
		if label.Label != "" {
			part += " (" + label.Label + ")"
		}

		parts = append(parts, part)
	}

	return strings.Join(parts, ", ")
}
