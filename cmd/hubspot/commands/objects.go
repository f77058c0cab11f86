package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/hubspot-client/internal/constants"
	"github.com/fivetwenty-io/hubspot-client/pkg/hubspot"
)

// objectResource describes one CRM object type for the generic commands.
type objectResource[E hubspot.Entity] struct {
	name     string
	singular string
	aliases  []string
	columns  []string
	client   func(hubspot.Client) hubspot.ObjectsClient[E]
}

// NewCompaniesCommand creates the companies command group.
func NewCompaniesCommand() *cobra.Command {
	return newObjectCommand(objectResource[*hubspot.Company]{
		name:     hubspot.ObjectTypeCompanies,
		singular: "company",
		aliases:  []string{"company"},
		columns:  []string{"name", "domain", "industry", "city"},
		client:   func(c hubspot.Client) hubspot.CompaniesClient { return c.Companies() },
	})
}

// NewContactsCommand creates the contacts command group.
func NewContactsCommand() *cobra.Command {
	return newObjectCommand(objectResource[*hubspot.Contact]{
		name:     hubspot.ObjectTypeContacts,
		singular: "contact",
		aliases:  []string{"contact"},
		columns:  []string{"email", "firstname", "lastname", "company"},
		client:   func(c hubspot.Client) hubspot.ContactsClient { return c.Contacts() },
	})
}

// NewDealsCommand creates the deals command group.
func NewDealsCommand() *cobra.Command {
	return newObjectCommand(objectResource[*hubspot.Deal]{
		name:     hubspot.ObjectTypeDeals,
		singular: "deal",
		aliases:  []string{"deal"},
		columns:  []string{"dealname", "amount", "dealstage", "closedate"},
		client:   func(c hubspot.Client) hubspot.DealsClient { return c.Deals() },
	})
}

// NewTicketsCommand creates the tickets command group.
func NewTicketsCommand() *cobra.Command {
	return newObjectCommand(objectResource[*hubspot.Ticket]{
		name:     hubspot.ObjectTypeTickets,
		singular: "ticket",
		aliases:  []string{"ticket"},
		columns:  []string{"subject", "hs_pipeline_stage", "hs_ticket_priority"},
		client:   func(c hubspot.Client) hubspot.TicketsClient { return c.Tickets() },
	})
}

func newObjectCommand[E hubspot.Entity](resource objectResource[E]) *cobra.Command {
	cmd := &cobra.Command{
		Use:     resource.name,
		Aliases: resource.aliases,
		Short:   "Manage " + resource.name,
		Long:    fmt.Sprintf("List, search, create, update and delete HubSpot %s", resource.name),
	}

	cmd.AddCommand(newObjectListCommand(resource))
	cmd.AddCommand(newObjectGetCommand(resource))
	cmd.AddCommand(newObjectSearchCommand(resource))
	cmd.AddCommand(newObjectCreateCommand(resource))
	cmd.AddCommand(newObjectUpdateCommand(resource))
	cmd.AddCommand(newObjectDeleteCommand(resource))
	cmd.AddCommand(newObjectRecentCommand(resource))

	return cmd
}

func (r objectResource[E]) open(ctx context.Context) (hubspot.ObjectsClient[E], error) {
	c, err := newClient(ctx)
	if err != nil {
		return nil, err
	}

	return r.client(c), nil
}

func newObjectListCommand[E hubspot.Entity](resource objectResource[E]) *cobra.Command {
	var (
		limit      int
		after      string
		all        bool
		archived   bool
		properties []string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List " + resource.name,
		Long:  fmt.Sprintf("List %s page by page, in id order", resource.name),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			objects, err := resource.open(ctx)
			if err != nil {
				return err
			}

			opts := hubspot.NewSearchRequestOptions()
			opts.Offset = after
			opts.Archived = archived
			opts.Properties = properties

			err = opts.SetLimit(limit)
			if err != nil {
				return err
			}

			var (
				entities []E
				next     string
			)

			for {
				page, err := objects.List(ctx, opts)
				if err != nil {
					return fmt.Errorf("failed to list %s: %w", resource.name, err)
				}

				entities = append(entities, page.Entities()...)
				next = page.Offset()

				if next == "" || !all {
					break
				}

				opts = page.Options()
			}

			err = renderRecords(cmd, resource.name, resource.columns, entities)
			if err == nil && next != "" && tableOutput() {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "More %s available, continue with --after %s\n", resource.name, next)
			}

			return err
		},
	}

	cmd.Flags().IntVar(&limit, "limit", constants.StandardPageSize, "records per page")
	cmd.Flags().StringVar(&after, "after", "", "continue after this cursor")
	cmd.Flags().BoolVar(&all, "all", false, "fetch every page")
	cmd.Flags().BoolVar(&archived, "archived", false, "list archived records")
	cmd.Flags().StringSliceVar(&properties, "properties", nil, "properties to return")

	return cmd
}

func newObjectGetCommand[E hubspot.Entity](resource objectResource[E]) *cobra.Command {
	var opts hubspot.GetOptions

	cmd := &cobra.Command{
		Use:   "get ID",
		Short: "Get a " + resource.singular,
		Long:  fmt.Sprintf("Display a %s by record id, or by a unique property with --id-property", resource.singular),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			objects, err := resource.open(ctx)
			if err != nil {
				return err
			}

			entity, err := objects.GetByUniqueID(ctx, hubspot.ParseIdentifier(args[0]), &opts)
			if err != nil {
				return fmt.Errorf("failed to get %s: %w", resource.singular, err)
			}

			if isNilRecord(entity) {
				return fmt.Errorf("%s %s: %w", resource.singular, args[0], constants.ErrRecordNotFound)
			}

			return renderRecord(cmd, entity)
		},
	}

	cmd.Flags().StringVar(&opts.IDProperty, "id-property", "", "unique property the ID refers to, e.g. email")
	cmd.Flags().BoolVar(&opts.Archived, "archived", false, "look up an archived record")
	cmd.Flags().StringSliceVar(&opts.Properties, "properties", nil, "properties to return")
	cmd.Flags().StringSliceVar(&opts.PropertiesWithHistory, "history", nil, "properties to return with their history")

	return cmd
}

func newObjectSearchCommand[E hubspot.Entity](resource objectResource[E]) *cobra.Command {
	var (
		query      string
		filters    []string
		sortFlag   string
		limit      int
		all        bool
		properties []string
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search " + resource.name,
		Long: fmt.Sprintf(`Search %s with a free-text query and filters.

Filters take the form property:OPERATOR[:value[:highValue]] and are combined
with AND. IN and NOT_IN accept a comma separated list of values.`, resource.name),
		Example: fmt.Sprintf("  hubspot %s search --filter createdate:GTE:2024-01-01 --sort createdate:DESCENDING", resource.name),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			opts, err := searchOptions(query, filters, sortFlag, limit, properties)
			if err != nil {
				return err
			}

			objects, err := resource.open(ctx)
			if err != nil {
				return err
			}

			if all {
				entities, err := objects.SearchAll(ctx, opts)
				if err != nil {
					return fmt.Errorf("failed to search %s: %w", resource.name, err)
				}

				return renderRecords(cmd, resource.name, resource.columns, entities)
			}

			page, err := objects.Search(ctx, opts)
			if err != nil {
				return fmt.Errorf("failed to search %s: %w", resource.name, err)
			}

			err = renderRecords(cmd, resource.name, resource.columns, page.Entities())
			if err == nil && page.MoreResultsAvailable() && tableOutput() {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%d %s match, use --all to fetch them all\n", page.Total, resource.name)
			}

			return err
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "free-text query")
	cmd.Flags().StringArrayVarP(&filters, "filter", "f", nil, "filter as property:OPERATOR[:value[:highValue]] (repeatable)")
	cmd.Flags().StringVar(&sortFlag, "sort", "", "sort as property[:ASCENDING|DESCENDING]")
	cmd.Flags().IntVar(&limit, "limit", 0, "records per page")
	cmd.Flags().BoolVar(&all, "all", false, "fetch every page")
	cmd.Flags().StringSliceVar(&properties, "properties", nil, "properties to return")

	return cmd
}

func newObjectCreateCommand[E hubspot.Entity](resource objectResource[E]) *cobra.Command {
	var (
		propertyFlags []string
		upsert        bool
	)

	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create a " + resource.singular,
		Long:    fmt.Sprintf("Create a %s from --property name=value pairs", resource.singular),
		Example: fmt.Sprintf("  hubspot %s create --property %s=...", resource.name, firstColumn(resource)),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			entity, err := entityFromFlags[E](propertyFlags)
			if err != nil {
				return err
			}

			objects, err := resource.open(ctx)
			if err != nil {
				return err
			}

			var created E
			if upsert {
				created, err = objects.CreateOrUpdate(ctx, entity)
			} else {
				created, err = objects.Create(ctx, entity)
			}

			if err != nil {
				return fmt.Errorf("failed to create %s: %w", resource.singular, err)
			}

			return renderRecord(cmd, created)
		},
	}

	cmd.Flags().StringArrayVar(&propertyFlags, "property", nil, "property as name=value (repeatable)")
	cmd.Flags().BoolVar(&upsert, "upsert", false, "update the existing record when the unique property is taken")

	return cmd
}

func newObjectUpdateCommand[E hubspot.Entity](resource objectResource[E]) *cobra.Command {
	var (
		propertyFlags []string
		idProperty    string
	)

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update a " + resource.singular,
		Long:  fmt.Sprintf("Update a %s; \"--property name=\" clears a property", resource.singular),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			entity, err := entityFromFlags[E](propertyFlags)
			if err != nil {
				return err
			}

			base := entity.Base()
			base.ID = hubspot.ParseIdentifier(args[0])
			base.IDProperty = idProperty

			objects, err := resource.open(ctx)
			if err != nil {
				return err
			}

			updated, err := objects.Update(ctx, entity)
			if err != nil {
				return fmt.Errorf("failed to update %s: %w", resource.singular, err)
			}

			return renderRecord(cmd, updated)
		},
	}

	cmd.Flags().StringArrayVar(&propertyFlags, "property", nil, "property as name=value (repeatable)")
	cmd.Flags().StringVar(&idProperty, "id-property", "", "unique property the ID refers to, e.g. email")

	return cmd
}

func newObjectDeleteCommand[E hubspot.Entity](resource objectResource[E]) *cobra.Command {
	var idProperty string

	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Archive a " + resource.singular,
		Long:  fmt.Sprintf("Archive a %s; archived records can still be read with get --archived", resource.singular),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			objects, err := resource.open(ctx)
			if err != nil {
				return err
			}

			id := hubspot.ParseIdentifier(args[0])

			if id.IsNumeric() && idProperty == "" {
				err = objects.DeleteByID(ctx, id.Int64())
			} else {
				var entity E

				entity, err = objects.GetByUniqueID(ctx, id, &hubspot.GetOptions{IDProperty: idProperty})
				if err == nil && isNilRecord(entity) {
					return fmt.Errorf("%s %s: %w", resource.singular, args[0], constants.ErrRecordNotFound)
				}

				if err == nil {
					err = objects.Delete(ctx, entity)
				}
			}

			if err != nil {
				return fmt.Errorf("failed to delete %s: %w", resource.singular, err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %s\n", resource.singular, args[0])

			return nil
		},
	}

	cmd.Flags().StringVar(&idProperty, "id-property", "", "unique property the ID refers to, e.g. email")

	return cmd
}

func newObjectRecentCommand[E hubspot.Entity](resource objectResource[E]) *cobra.Command {
	var updated bool

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show recently created " + resource.name,
		Long:  fmt.Sprintf("Show %s created, or with --updated modified, in the last seven days", resource.name),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			objects, err := resource.open(ctx)
			if err != nil {
				return err
			}

			fetch := objects.RecentlyCreated
			if updated {
				fetch = objects.RecentlyUpdated
			}

			page, err := fetch(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch recent %s: %w", resource.name, err)
			}

			return renderRecords(cmd, resource.name, resource.columns, page.Entities())
		},
	}

	cmd.Flags().BoolVar(&updated, "updated", false, "show recently modified records instead")

	return cmd
}

// entityFromFlags builds a record of type E from --property flags.
func entityFromFlags[E hubspot.Entity](propertyFlags []string) (E, error) {
	entity := hubspot.NewEntity[E]()

	props, err := parseProperties(propertyFlags)
	if err != nil {
		return entity, err
	}

	err = hubspot.DecodeProperties(entity, props)
	if err != nil {
		return entity, fmt.Errorf("invalid property value: %w", err)
	}

	return entity, nil
}

func isNilRecord[E hubspot.Entity](entity E) bool {
	var zero E

	return any(entity) == any(zero)
}

func firstColumn[E hubspot.Entity](resource objectResource[E]) string {
	if len(resource.columns) == 0 {
		return "name"
	}

	return resource.columns[0]
}

// parseRecordID reads a numeric record id argument.
func parseRecordID(value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", hubspot.ErrNumericIDRequired, value)
	}

	return id, nil
}
