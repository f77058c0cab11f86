package hubspottest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fivetwenty-io/hubspot-client/pkg/hubspot"
)

// firstCustomTypeID is where account-defined association type ids start.
const firstCustomTypeID = 1000

var standardTypes = []hubspot.StandardAssociation{
	hubspot.ContactToCompanyPrimary, hubspot.CompanyToContactPrimary,
	hubspot.DealToContact, hubspot.ContactToDeal,
	hubspot.DealToCompanyPrimary, hubspot.CompanyToDealPrimary,
	hubspot.ContactToTicket, hubspot.TicketToContact,
	hubspot.CompanyToTicketPrimary, hubspot.TicketToCompanyPrimary,
	hubspot.DealToTicket, hubspot.TicketToDeal,
	hubspot.ContactToCompany, hubspot.CompanyToContact,
	hubspot.TicketToCompany, hubspot.CompanyToTicket,
	hubspot.DealToCompany, hubspot.CompanyToDeal,
}

// associationType is a stored association type.
type associationType struct {
	ID        int64
	FromType  string
	ToType    string
	Category  hubspot.AssociationCategory
	Label     string
	Name      string
	InverseID int64
}

func (t associationType) label() hubspot.AssociationLabel {
	typeID, err := hubspot.NewAssociationTypeID(t.Category, t.ID)
	if err != nil {
		typeID = hubspot.Custom(t.ID)
	}

	return hubspot.AssociationLabel{Type: typeID, Label: t.Label}
}

// SeedAssociationTypes stores HubSpot's built-in association types. Types
// already present are left alone.
func (s *Store) SeedAssociationTypes(ctx context.Context) error {
	for _, standard := range standardTypes {
		from, to, _ := standard.Objects()
		inverse, _ := standard.Inverse()

		var label interface{}
		if strings.HasSuffix(standard.String(), "_primary") {
			label = "Primary"
		}

		_, err := s.db.ExecContext(ctx,
			`INSERT INTO association_types (id, from_type, to_type, category, label, name, inverse_id)
			VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT (id) DO NOTHING`,
			int64(standard), from, to, string(hubspot.HubSpotDefined), label, standard.String(), int64(inverse))
		if err != nil {
			return fmt.Errorf("seeding association type %d: %w", standard, err)
		}
	}

	return nil
}

func (s *Store) associationType(ctx context.Context, id int64) (*associationType, error) {
	t := &associationType{}

	var label, name sql.NullString

	err := s.db.QueryRowContext(ctx,
		"SELECT id, from_type, to_type, category, label, name, inverse_id FROM association_types WHERE id = ?", id,
	).Scan(&t.ID, &t.FromType, &t.ToType, &t.Category, &label, &name, &t.InverseID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("association type %d does not exist", id)
	}

	if err != nil {
		return nil, fmt.Errorf("loading association type %d: %w", id, err)
	}

	t.Label = label.String
	t.Name = name.String

	return t, nil
}

// Labels lists the association types from fromType to toType.
func (s *Store) Labels(ctx context.Context, fromType, toType string) ([]associationType, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, from_type, to_type, category, label, name, inverse_id FROM association_types
		WHERE from_type = ? AND to_type = ? ORDER BY id`, fromType, toType)
	if err != nil {
		return nil, fmt.Errorf("listing association types: %w", err)
	}

	types := []associationType{}

	for rows.Next() {
		var (
			t           associationType
			label, name sql.NullString
		)

		err = rows.Scan(&t.ID, &t.FromType, &t.ToType, &t.Category, &label, &name, &t.InverseID)
		if err != nil {
			_ = rows.Close()

			return nil, fmt.Errorf("scanning association type: %w", err)
		}

		t.Label = label.String
		t.Name = name.String
		types = append(types, t)
	}

	return types, closeRows(rows)
}

// CreateLabel defines a user label between two object types. A label
// without an inverse between one object type is a single symmetric type;
// otherwise one type is created per direction, the forward one first.
func (s *Store) CreateLabel(ctx context.Context, fromType, toType string, definition hubspot.AssociationTypeDefinition) ([]associationType, error) {
	if strings.TrimSpace(definition.Label) == "" {
		return nil, invalid("label must not be empty")
	}

	existing, err := s.Labels(ctx, fromType, toType)
	if err != nil {
		return nil, err
	}

	for _, t := range existing {
		if definition.Name != "" && t.Name == definition.Name {
			return nil, conflict("An association label named %s already exists", definition.Name)
		}
	}

	var maxID int64

	err = s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(id), 0) FROM association_types").Scan(&maxID)
	if err != nil {
		return nil, fmt.Errorf("allocating association type id: %w", err)
	}

	forwardID := max(maxID, firstCustomTypeID) + 1
	forward := associationType{
		ID: forwardID, FromType: fromType, ToType: toType, Category: hubspot.UserDefined,
		Label: definition.Label, Name: definition.Name, InverseID: forwardID,
	}

	types := []associationType{forward}

	if fromType != toType || definition.InverseLabel != "" {
		inverseLabel := definition.InverseLabel
		if inverseLabel == "" {
			inverseLabel = definition.Label
		}

		inverse := associationType{
			ID: forwardID + 1, FromType: toType, ToType: fromType, Category: hubspot.UserDefined,
			Label: inverseLabel, Name: definition.Name + "_inverse", InverseID: forwardID,
		}
		types[0].InverseID = inverse.ID
		types = append(types, inverse)
	}

	for _, t := range types {
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO association_types (id, from_type, to_type, category, label, name, inverse_id)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.FromType, t.ToType, string(t.Category), t.Label, t.Name, t.InverseID)
		if err != nil {
			return nil, fmt.Errorf("creating association type: %w", err)
		}
	}

	return types, nil
}

// UpdateLabel renames a user label and, when inverseLabel is set, its inverse.
func (s *Store) UpdateLabel(ctx context.Context, fromType, toType string, update hubspot.AssociationTypeUpdate) error {
	t, err := s.userType(ctx, fromType, toType, update.TypeID)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, "UPDATE association_types SET label = ? WHERE id = ?", update.Label, t.ID)
	if err != nil {
		return fmt.Errorf("updating association type %d: %w", t.ID, err)
	}

	if update.InverseLabel != "" && t.InverseID != t.ID {
		_, err = s.db.ExecContext(ctx, "UPDATE association_types SET label = ? WHERE id = ?", update.InverseLabel, t.InverseID)
		if err != nil {
			return fmt.Errorf("updating association type %d: %w", t.InverseID, err)
		}
	}

	return nil
}

// DeleteLabel removes a user label, its inverse, and every association using them.
func (s *Store) DeleteLabel(ctx context.Context, fromType, toType string, typeID int64) error {
	t, err := s.userType(ctx, fromType, toType, typeID)
	if err != nil {
		return err
	}

	for _, statement := range []string{
		"DELETE FROM associations WHERE type_id IN (?, ?)",
		"DELETE FROM association_types WHERE id IN (?, ?)",
	} {
		_, err = s.db.ExecContext(ctx, statement, t.ID, t.InverseID)
		if err != nil {
			return fmt.Errorf("deleting association type %d: %w", t.ID, err)
		}
	}

	return nil
}

func (s *Store) userType(ctx context.Context, fromType, toType string, typeID int64) (*associationType, error) {
	t, err := s.associationType(ctx, typeID)
	if err != nil {
		return nil, err
	}

	if t.FromType != fromType || t.ToType != toType {
		return nil, notFound("association type %d does not link %s to %s", typeID, fromType, toType)
	}

	if t.Category == hubspot.HubSpotDefined {
		return nil, invalid("association type %d is defined by HubSpot and cannot be changed", typeID)
	}

	return t, nil
}

// Associate links two live records with the given types plus the default
// type of the pair, in both directions. It returns the labels now applied.
func (s *Store) Associate(ctx context.Context, fromType string, fromID int64, toType string, toID int64, typeIDs ...int64) ([]associationType, error) {
	for _, ref := range []struct {
		objectType string
		id         int64
	}{{fromType, fromID}, {toType, toID}} {
		_, err := s.Get(ctx, ref.objectType, ref.id, false)
		if err != nil {
			return nil, err
		}
	}

	if standard, ok := hubspot.DefaultAssociation(fromType, toType); ok {
		typeIDs = append([]int64{int64(standard)}, typeIDs...)
	}

	if len(typeIDs) == 0 {
		return nil, invalid("no default association type links %s to %s", fromType, toType)
	}

	applied := make([]associationType, 0, len(typeIDs))
	seen := map[int64]bool{}

	for _, typeID := range typeIDs {
		if seen[typeID] {
			continue
		}

		seen[typeID] = true

		t, err := s.associationType(ctx, typeID)
		if err != nil {
			return nil, invalid("association type %d is not valid: %s", typeID, err)
		}

		if t.FromType != fromType || t.ToType != toType {
			return nil, invalid("association type %d does not link %s to %s", typeID, fromType, toType)
		}

		err = s.link(ctx, fromID, toID, t.ID)
		if err != nil {
			return nil, err
		}

		err = s.link(ctx, toID, fromID, t.InverseID)
		if err != nil {
			return nil, err
		}

		applied = append(applied, *t)
	}

	return applied, nil
}

func (s *Store) link(ctx context.Context, fromID, toID, typeID int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO associations (from_id, to_id, type_id) VALUES (?, ?, ?) ON CONFLICT DO NOTHING",
		fromID, toID, typeID)
	if err != nil {
		return fmt.Errorf("linking %d to %d: %w", fromID, toID, err)
	}

	return nil
}

// RemoveAssociation unlinks two records. With no types every label goes;
// otherwise only the given ones and their inverses.
func (s *Store) RemoveAssociation(ctx context.Context, fromID, toID int64, typeIDs ...int64) error {
	if len(typeIDs) == 0 {
		_, err := s.db.ExecContext(ctx,
			"DELETE FROM associations WHERE (from_id = ? AND to_id = ?) OR (from_id = ? AND to_id = ?)",
			fromID, toID, toID, fromID)
		if err != nil {
			return fmt.Errorf("unlinking %d from %d: %w", fromID, toID, err)
		}

		return nil
	}

	for _, typeID := range typeIDs {
		t, err := s.associationType(ctx, typeID)
		if err != nil {
			return err
		}

		_, err = s.db.ExecContext(ctx,
			"DELETE FROM associations WHERE (from_id = ? AND to_id = ? AND type_id = ?) OR (from_id = ? AND to_id = ? AND type_id = ?)",
			fromID, toID, t.ID, toID, fromID, t.InverseID)
		if err != nil {
			return fmt.Errorf("unlinking %d from %d: %w", fromID, toID, err)
		}
	}

	return nil
}

// Associated is one linked record with the types linking it.
type Associated struct {
	ToID  int64
	Types []associationType
}

// Associations pages the live records of toType linked from fromID, ordered
// by id. after is the last id of the previous page.
func (s *Store) Associations(ctx context.Context, fromID int64, toType string, after int64, limit int) ([]Associated, int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.to_id, a.type_id FROM associations a
		JOIN objects o ON o.id = a.to_id
		WHERE a.from_id = ? AND o.object_type = ? AND o.archived = 0 AND a.to_id > ?
		ORDER BY a.to_id, a.type_id`, fromID, toType, after)
	if err != nil {
		return nil, 0, fmt.Errorf("listing associations of %d: %w", fromID, err)
	}

	type edge struct{ toID, typeID int64 }

	var edges []edge

	for rows.Next() {
		var e edge

		err = rows.Scan(&e.toID, &e.typeID)
		if err != nil {
			_ = rows.Close()

			return nil, 0, fmt.Errorf("scanning association: %w", err)
		}

		edges = append(edges, e)
	}

	err = closeRows(rows)
	if err != nil {
		return nil, 0, err
	}

	results := []Associated{}

	for _, e := range edges {
		if len(results) == 0 || results[len(results)-1].ToID != e.toID {
			results = append(results, Associated{ToID: e.toID})
		}

		t, err := s.associationType(ctx, e.typeID)
		if err != nil {
			return nil, 0, err
		}

		last := &results[len(results)-1]
		last.Types = append(last.Types, *t)
	}

	var next int64
	if limit > 0 && len(results) > limit {
		results = results[:limit]
		next = results[limit-1].ToID
	}

	return results, next, nil
}
