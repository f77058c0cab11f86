package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/hubspot-client/pkg/hubspot"
)

// NewAssociationsCommand creates the associations command group.
func NewAssociationsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "associations",
		Aliases: []string{"association", "assoc"},
		Short:   "Manage associations between records",
		Long:    "List, create and remove links between companies, contacts, deals and tickets",
	}

	cmd.AddCommand(newAssociationsListCommand())
	cmd.AddCommand(newAssociationsCreateCommand())
	cmd.AddCommand(newAssociationsDeleteCommand())

	return cmd
}

func newAssociationsListCommand() *cobra.Command {
	var (
		limit int
		after string
		all   bool
	)

	cmd := &cobra.Command{
		Use:     "list FROM_TYPE:ID TO_TYPE",
		Short:   "List the records linked to a record",
		Long:    "List the records of TO_TYPE linked to a record, with their association types",
		Example: "  hubspot associations list contacts:101 companies",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			from, err := hubspot.ParseObjectRef(args[0])
			if err != nil {
				return err
			}

			toType := args[1]

			c, err := newClient(ctx)
			if err != nil {
				return err
			}

			var linked []hubspot.AssociatedObject

			if all {
				linked, err = c.Associations().ListAll(ctx, from, toType)
				if err != nil {
					return fmt.Errorf("failed to list associations: %w", err)
				}
			} else {
				opts := hubspot.NewSearchRequestOptions()
				opts.Offset = after

				if limit > 0 {
					err = opts.SetLimit(limit)
					if err != nil {
						return err
					}
				}

				page, err := c.Associations().List(ctx, from, toType, opts)
				if err != nil {
					return fmt.Errorf("failed to list associations: %w", err)
				}

				linked = page.Entities()
			}

			if len(linked) == 0 && tableOutput() {
				printEmpty(cmd, "associated "+toType)

				return nil
			}

			handled, err := renderStructured(cmd, linked)
			if handled || err != nil {
				return err
			}

			rows := make([][]string, 0, len(linked))
			for _, link := range linked {
				rows = append(rows, []string{link.ToObjectID.String(), formatLabels(link.Types)})
			}

			return renderTable(cmd, []string{"To ID", "Association Types"}, rows)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "links per page")
	cmd.Flags().StringVar(&after, "after", "", "continue after this cursor")
	cmd.Flags().BoolVar(&all, "all", false, "fetch every page")

	return cmd
}

func newAssociationsCreateCommand() *cobra.Command {
	var typeIDs []int64

	cmd := &cobra.Command{
		Use:   "create FROM_TYPE:ID TO_TYPE:ID",
		Short: "Link two records",
		Long: `Link two records. Without --type the default association is created;
each --type adds a labeled association, HubSpot-defined for known type ids and
user-defined otherwise.`,
		Example: "  hubspot associations create contacts:101 companies:202 --type 1",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			from, to, err := parseRefPair(args)
			if err != nil {
				return err
			}

			types := make([]hubspot.AssociationTypeID, 0, len(typeIDs))
			for _, id := range typeIDs {
				types = append(types, associationType(id))
			}

			c, err := newClient(ctx)
			if err != nil {
				return err
			}

			err = c.Associations().Associate(ctx, from, to, types...)
			if err != nil {
				return fmt.Errorf("failed to associate %s with %s: %w", from, to, err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Associated %s with %s\n", from, to)

			return nil
		},
	}

	cmd.Flags().Int64SliceVar(&typeIDs, "type", nil, "association type id (repeatable)")

	return cmd
}

func newAssociationsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete FROM_TYPE:ID TO_TYPE:ID",
		Short: "Unlink two records",
		Long:  "Remove every association between two records, in both directions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			from, to, err := parseRefPair(args)
			if err != nil {
				return err
			}

			c, err := newClient(ctx)
			if err != nil {
				return err
			}

			err = c.Associations().Remove(ctx, from, to)
			if err != nil {
				return fmt.Errorf("failed to remove association: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed associations between %s and %s\n", from, to)

			return nil
		},
	}
}

// NewLabelsCommand creates the labels command group.
func NewLabelsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "labels",
		Aliases: []string{"label"},
		Short:   "Manage association labels",
		Long:    "List, create, rename and delete the association labels between two object types",
	}

	cmd.AddCommand(newLabelsListCommand())
	cmd.AddCommand(newLabelsCreateCommand())
	cmd.AddCommand(newLabelsUpdateCommand())
	cmd.AddCommand(newLabelsDeleteCommand())

	return cmd
}

func newLabelsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list FROM_TYPE TO_TYPE",
		Short:   "List association labels",
		Long:    "List the association types defined from one object type to another",
		Example: "  hubspot labels list deals contacts",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			c, err := newClient(ctx)
			if err != nil {
				return err
			}

			labels, err := c.AssociationTypes().List(ctx, args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to list labels: %w", err)
			}

			if len(labels) == 0 && tableOutput() {
				printEmpty(cmd, "labels")

				return nil
			}

			handled, err := renderStructured(cmd, labels)
			if handled || err != nil {
				return err
			}

			return renderTable(cmd, []string{"Type ID", "Category", "Label"}, labelRows(labels))
		},
	}
}

func newLabelsCreateCommand() *cobra.Command {
	var definition hubspot.AssociationTypeDefinition

	cmd := &cobra.Command{
		Use:   "create FROM_TYPE TO_TYPE",
		Short: "Create an association label",
		Long: `Create a custom association label. With --inverse-label the label is
paired, each direction carrying its own name; otherwise it reads the same both ways.`,
		Example: `  hubspot labels create deals contacts --label "Decision maker" --inverse-label "Decided on"`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			c, err := newClient(ctx)
			if err != nil {
				return err
			}

			pair, err := c.AssociationTypes().Create(ctx, args[0], args[1], definition)
			if err != nil {
				return fmt.Errorf("failed to create label: %w", err)
			}

			labels := []hubspot.AssociationLabel{pair.Forward()}
			if !pair.Symmetric() {
				labels = append(labels, pair.Inverse())
			}

			handled, err := renderStructured(cmd, labels)
			if handled || err != nil {
				return err
			}

			return renderTable(cmd, []string{"Type ID", "Category", "Label"}, labelRows(labels))
		},
	}

	cmd.Flags().StringVar(&definition.Label, "label", "", "label shown from FROM_TYPE records")
	cmd.Flags().StringVar(&definition.InverseLabel, "inverse-label", "", "label shown from TO_TYPE records")
	cmd.Flags().StringVar(&definition.Name, "name", "", "internal name (derived from the label when empty)")
	_ = cmd.MarkFlagRequired("label")

	return cmd
}

func newLabelsUpdateCommand() *cobra.Command {
	var update hubspot.AssociationTypeUpdate

	cmd := &cobra.Command{
		Use:   "update FROM_TYPE TO_TYPE TYPE_ID",
		Short: "Rename an association label",
		Long:  "Change the label, and optionally the inverse label, of a custom association type",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			typeID, err := parseRecordID(args[2])
			if err != nil {
				return err
			}

			update.TypeID = typeID

			c, err := newClient(ctx)
			if err != nil {
				return err
			}

			err = c.AssociationTypes().Update(ctx, args[0], args[1], update)
			if err != nil {
				return fmt.Errorf("failed to update label: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Updated label %d\n", typeID)

			return nil
		},
	}

	cmd.Flags().StringVar(&update.Label, "label", "", "new label")
	cmd.Flags().StringVar(&update.InverseLabel, "inverse-label", "", "new inverse label")
	_ = cmd.MarkFlagRequired("label")

	return cmd
}

func newLabelsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete FROM_TYPE TO_TYPE TYPE_ID",
		Short: "Delete an association label",
		Long:  "Delete a custom association type; links using it are removed",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			typeID, err := parseRecordID(args[2])
			if err != nil {
				return err
			}

			c, err := newClient(ctx)
			if err != nil {
				return err
			}

			err = c.AssociationTypes().Delete(ctx, args[0], args[1], typeID)
			if err != nil {
				return fmt.Errorf("failed to delete label: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted label %d\n", typeID)

			return nil
		},
	}
}

func parseRefPair(args []string) (hubspot.ObjectRef, hubspot.ObjectRef, error) {
	from, err := hubspot.ParseObjectRef(args[0])
	if err != nil {
		return hubspot.ObjectRef{}, hubspot.ObjectRef{}, err
	}

	to, err := hubspot.ParseObjectRef(args[1])
	if err != nil {
		return hubspot.ObjectRef{}, hubspot.ObjectRef{}, err
	}

	return from, to, nil
}

// associationType treats ids of built-in types as HubSpot-defined and every
// other id as a custom label.
func associationType(id int64) hubspot.AssociationTypeID {
	if hubspot.StandardAssociation(id).Known() {
		return hubspot.Standard(hubspot.StandardAssociation(id))
	}

	return hubspot.Custom(id)
}

func labelRows(labels []hubspot.AssociationLabel) [][]string {
	rows := make([][]string, 0, len(labels))

	for _, label := range labels {
		rows = append(rows, []string{
			strconv.FormatInt(label.Type.ID(), 10),
			string(label.Type.Category()),
			valueOrNA(label.Label),
		})
	}

	return rows
}
