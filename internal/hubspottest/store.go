package hubspottest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fivetwenty-io/hubspot-client/internal/constants"
	"github.com/fivetwenty-io/hubspot-client/pkg/hubspot"
)

const (
	propertyObjectID     = "hs_object_id"
	propertyCreateDate   = "createdate"
	propertyLastModified = "lastmodifieddate"
)

// objectTypes are the CRM types the fake serves.
var objectTypes = map[string]bool{
	hubspot.ObjectTypeContacts:  true,
	hubspot.ObjectTypeCompanies: true,
	hubspot.ObjectTypeDeals:     true,
	hubspot.ObjectTypeTickets:   true,
}

// uniqueProperties must not repeat across live records of a type.
var uniqueProperties = map[string]string{
	hubspot.ObjectTypeContacts: "email",
}

var systemProperties = map[string]bool{
	propertyObjectID:      true,
	propertyCreateDate:    true,
	propertyLastModified:  true,
	"hs_createdate":       true,
	"hs_lastmodifieddate": true,
}

// Record is one stored CRM object.
type Record struct {
	ID         int64
	ObjectType string
	Properties hubspot.Properties
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Archived   bool
	ArchivedAt time.Time
}

// Store keeps CRM records and their associations in SQLite. Callers must not
// run statements concurrently; the Server serializes requests.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore wraps a migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:  db,
		now: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(constants.DateTimeLayout)
}

func parseTime(raw sql.NullString) time.Time {
	if !raw.Valid {
		return time.Time{}
	}

	t, err := time.Parse(constants.DateTimeLayout, raw.String)
	if err != nil {
		return time.Time{}
	}

	return t
}

func checkObjectType(objectType string) error {
	if !objectTypes[objectType] {
		return invalid("Unable to infer object type from: %s", objectType)
	}

	return nil
}

// Create stores a new record of objectType.
func (s *Store) Create(ctx context.Context, objectType string, props hubspot.Properties) (*Record, error) {
	err := checkObjectType(objectType)
	if err != nil {
		return nil, err
	}

	err = s.checkUnique(ctx, objectType, 0, props)
	if err != nil {
		return nil, err
	}

	now := formatTime(s.now())

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO objects (object_type, created_at, updated_at) VALUES (?, ?, ?)",
		objectType, now, now)
	if err != nil {
		return nil, fmt.Errorf("inserting %s: %w", objectType, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading new %s id: %w", objectType, err)
	}

	system := hubspot.Properties{
		propertyObjectID:     strconv.FormatInt(id, 10),
		propertyCreateDate:   now,
		propertyLastModified: now,
	}

	err = s.setProperties(ctx, id, writable(props), now)
	if err != nil {
		return nil, err
	}

	err = s.setProperties(ctx, id, system, now)
	if err != nil {
		return nil, err
	}

	return s.load(ctx, id)
}

// Update merges props into a record. An empty value removes the property.
func (s *Store) Update(ctx context.Context, objectType string, id int64, props hubspot.Properties) (*Record, error) {
	_, err := s.Get(ctx, objectType, id, false)
	if err != nil {
		return nil, err
	}

	err = s.checkUnique(ctx, objectType, id, props)
	if err != nil {
		return nil, err
	}

	now := formatTime(s.now())

	err = s.setProperties(ctx, id, writable(props), now)
	if err != nil {
		return nil, err
	}

	err = s.setProperties(ctx, id, hubspot.Properties{propertyLastModified: now}, now)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, "UPDATE objects SET updated_at = ? WHERE id = ?", now, id)
	if err != nil {
		return nil, fmt.Errorf("touching %s %d: %w", objectType, id, err)
	}

	return s.load(ctx, id)
}

// Archive soft-deletes a record. Archiving a missing or archived record is a no-op.
func (s *Store) Archive(ctx context.Context, objectType string, id int64) error {
	now := formatTime(s.now())

	_, err := s.db.ExecContext(ctx,
		"UPDATE objects SET archived = 1, archived_at = ?, updated_at = ? WHERE id = ? AND object_type = ? AND archived = 0",
		now, now, id, objectType)
	if err != nil {
		return fmt.Errorf("archiving %s %d: %w", objectType, id, err)
	}

	return nil
}

// Get returns the record with id. Archived records are only found when
// archived is set, and live ones only when it is not.
func (s *Store) Get(ctx context.Context, objectType string, id int64, archived bool) (*Record, error) {
	err := checkObjectType(objectType)
	if err != nil {
		return nil, err
	}

	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if record.ObjectType != objectType || record.Archived != archived {
		return nil, notFound("Object not found.  objectId are usually numeric.")
	}

	return record, nil
}

// Lookup resolves a path identifier, either a record id or a value of idProperty.
func (s *Store) Lookup(ctx context.Context, objectType, value, idProperty string, archived bool) (*Record, error) {
	if idProperty == "" || idProperty == propertyObjectID {
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, notFound("Object not found.  objectId are usually numeric.")
		}

		return s.Get(ctx, objectType, id, archived)
	}

	ids, err := s.findByProperty(ctx, objectType, idProperty, value, archived)
	if err != nil {
		return nil, err
	}

	switch len(ids) {
	case 0:
		return nil, notFound("Object not found. %s %q does not exist.", idProperty, value)
	case 1:
		return s.load(ctx, ids[0])
	default:
		return nil, conflict("%d %s match %s %q.", len(ids), objectType, idProperty, value)
	}
}

// List pages records by id. after is the last id of the previous page.
func (s *Store) List(ctx context.Context, objectType string, after int64, limit int, archived bool) ([]*Record, int64, error) {
	err := checkObjectType(objectType)
	if err != nil {
		return nil, 0, err
	}

	ids, err := s.queryIDs(ctx,
		"SELECT id FROM objects WHERE object_type = ? AND archived = ? AND id > ? ORDER BY id LIMIT ?",
		objectType, archived, after, limit+1)
	if err != nil {
		return nil, 0, err
	}

	var next int64
	if len(ids) > limit {
		ids = ids[:limit]
		next = ids[limit-1]
	}

	records, err := s.loadAll(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	return records, next, nil
}

// History returns the recorded values of names, newest first.
func (s *Store) History(ctx context.Context, id int64, names []string) (map[string][]hubspot.PropertyVersion, error) {
	history := map[string][]hubspot.PropertyVersion{}

	for _, name := range names {
		rows, err := s.db.QueryContext(ctx,
			"SELECT value, timestamp FROM property_history WHERE object_id = ? AND name = ? ORDER BY id DESC",
			id, name)
		if err != nil {
			return nil, fmt.Errorf("reading history of %s: %w", name, err)
		}

		versions := []hubspot.PropertyVersion{}

		for rows.Next() {
			var (
				value     string
				timestamp sql.NullString
			)

			err = rows.Scan(&value, &timestamp)
			if err != nil {
				_ = rows.Close()

				return nil, fmt.Errorf("scanning history of %s: %w", name, err)
			}

			versions = append(versions, hubspot.PropertyVersion{Value: value, Timestamp: parseTime(timestamp), SourceType: "API"})
		}

		err = closeRows(rows)
		if err != nil {
			return nil, err
		}

		history[name] = versions
	}

	return history, nil
}

func (s *Store) checkUnique(ctx context.Context, objectType string, self int64, props hubspot.Properties) error {
	property, ok := uniqueProperties[objectType]
	if !ok || props[property] == "" {
		return nil
	}

	ids, err := s.findByProperty(ctx, objectType, property, props[property], false)
	if err != nil {
		return err
	}

	for _, id := range ids {
		if id != self {
			return conflict("%s already exists. Existing ID: %d", singular(objectType), id)
		}
	}

	return nil
}

func singular(objectType string) string {
	name := strings.TrimSuffix(objectType, "s")
	if objectType == hubspot.ObjectTypeCompanies {
		name = "company"
	}

	return strings.ToUpper(name[:1]) + name[1:]
}

func (s *Store) findByProperty(ctx context.Context, objectType, property, value string, archived bool) ([]int64, error) {
	return s.queryIDs(ctx,
		`SELECT o.id FROM objects o
		JOIN property_values p ON p.object_id = o.id AND p.name = ?
		WHERE o.object_type = ? AND o.archived = ? AND lower(p.value) = lower(?)
		ORDER BY o.id`,
		property, objectType, archived, value)
}

func (s *Store) queryIDs(ctx context.Context, query string, args ...interface{}) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying ids: %w", err)
	}

	var ids []int64

	for rows.Next() {
		var id int64

		err = rows.Scan(&id)
		if err != nil {
			_ = rows.Close()

			return nil, fmt.Errorf("scanning id: %w", err)
		}

		ids = append(ids, id)
	}

	return ids, closeRows(rows)
}

func closeRows(rows *sql.Rows) error {
	err := rows.Err()
	if err != nil {
		_ = rows.Close()

		return fmt.Errorf("iterating rows: %w", err)
	}

	err = rows.Close()
	if err != nil {
		return fmt.Errorf("closing rows: %w", err)
	}

	return nil
}

func writable(props hubspot.Properties) hubspot.Properties {
	out := make(hubspot.Properties, len(props))

	for name, value := range props {
		if !systemProperties[name] {
			out[name] = value
		}
	}

	return out
}

func (s *Store) setProperties(ctx context.Context, id int64, props hubspot.Properties, now string) error {
	for _, name := range props.Keys() {
		value := props[name]

		var err error
		if value == "" {
			_, err = s.db.ExecContext(ctx, "DELETE FROM property_values WHERE object_id = ? AND name = ?", id, name)
		} else {
			_, err = s.db.ExecContext(ctx,
				`INSERT INTO property_values (object_id, name, value, updated_at) VALUES (?, ?, ?, ?)
				ON CONFLICT (object_id, name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
				id, name, value, now)
		}

		if err != nil {
			return fmt.Errorf("setting property %s: %w", name, err)
		}

		_, err = s.db.ExecContext(ctx,
			"INSERT INTO property_history (object_id, name, value, timestamp) VALUES (?, ?, ?, ?)",
			id, name, value, now)
		if err != nil {
			return fmt.Errorf("recording history of %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) load(ctx context.Context, id int64) (*Record, error) {
	record := &Record{ID: id, Properties: hubspot.Properties{}}

	var createdAt, updatedAt, archivedAt sql.NullString

	err := s.db.QueryRowContext(ctx,
		"SELECT object_type, archived, archived_at, created_at, updated_at FROM objects WHERE id = ?", id,
	).Scan(&record.ObjectType, &record.Archived, &archivedAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("Object not found.  objectId are usually numeric.")
	}

	if err != nil {
		return nil, fmt.Errorf("loading object %d: %w", id, err)
	}

	record.CreatedAt = parseTime(createdAt)
	record.UpdatedAt = parseTime(updatedAt)
	record.ArchivedAt = parseTime(archivedAt)

	rows, err := s.db.QueryContext(ctx, "SELECT name, value FROM property_values WHERE object_id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("loading properties of %d: %w", id, err)
	}

	for rows.Next() {
		var name, value string

		err = rows.Scan(&name, &value)
		if err != nil {
			_ = rows.Close()

			return nil, fmt.Errorf("scanning property: %w", err)
		}

		record.Properties[name] = value
	}

	return record, closeRows(rows)
}

func (s *Store) loadAll(ctx context.Context, ids []int64) ([]*Record, error) {
	records := make([]*Record, 0, len(ids))

	for _, id := range ids {
		record, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	return records, nil
}

// sortRecords orders records by one property, ties broken by id.
func sortRecords(records []*Record, sortBy hubspot.Sort) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]

		order := compareValues(a.Properties[sortBy.PropertyName], b.Properties[sortBy.PropertyName])
		if order == 0 {
			return a.ID < b.ID
		}

		if sortBy.Direction == hubspot.Descending {
			return order > 0
		}

		return order < 0
	})
}
