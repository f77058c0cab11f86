package hubspot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fivetwenty-io/hubspot-client/internal/constants"
)

// Properties is HubSpot's flat property bag. Every value travels as a string.
type Properties map[string]string

// WireMode selects how an entity is laid out on the wire.
type WireMode int

const (
	// PropertiesBag nests declared fields under "properties", as singular CRUD endpoints expect.
	PropertiesBag WireMode = iota
	// Raw serializes the Go field names unchanged.
	Raw
)

// String returns the mode name.
func (m WireMode) String() string {
	switch m {
	case PropertiesBag:
		return "PropertiesBag"
	case Raw:
		return "Raw"
	default:
		return "WireMode(" + strconv.Itoa(int(m)) + ")"
	}
}

// PropertyVersion is one historical value of a property.
type PropertyVersion struct {
	Value      string    `json:"value"                yaml:"value"`
	Timestamp  time.Time `json:"timestamp"            yaml:"timestamp"`
	SourceType string    `json:"sourceType,omitempty" yaml:"sourceType,omitempty"`
	SourceID   string    `json:"sourceId,omitempty"   yaml:"sourceId,omitempty"`
}

// readOnlyProperties are maintained by HubSpot and rejected on write.
var readOnlyProperties = map[string]bool{
	"hs_object_id":        true,
	"createdate":          true,
	"lastmodifieddate":    true,
	"hs_createdate":       true,
	"hs_lastmodifieddate": true,
}

// Input is the properties-bag request shape of a single record.
type Input struct {
	ID           Identifier          `json:"id,omitzero"`
	IDProperty   string              `json:"idProperty,omitempty"`
	Properties   Properties          `json:"properties"`
	Associations []ObjectAssociation `json:"associations,omitempty"`
}

// NewInput lays out entity in the properties-bag shape.
func NewInput(entity Entity) (*Input, error) {
	props, err := EncodeProperties(entity)
	if err != nil {
		return nil, err
	}

	base := entity.Base()
	input := &Input{
		ID:           base.ID,
		Properties:   props,
		Associations: base.Associations,
	}

	if base.ID.IsNamed() {
		input.IDProperty = base.IDProperty
	}

	return input, nil
}

// ToWire serializes entity in the requested mode.
func ToWire(entity Entity, mode WireMode) ([]byte, error) {
	if mode == Raw {
		data, err := json.Marshal(entity)
		if err != nil {
			return nil, fmt.Errorf("encoding entity: %w", err)
		}

		return data, nil
	}

	input, err := NewInput(entity)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encoding entity: %w", err)
	}

	return data, nil
}

// FromWire populates entity from data laid out in the given mode.
func FromWire(data []byte, mode WireMode, entity Entity) error {
	if mode == Raw {
		err := json.Unmarshal(data, entity)
		if err != nil {
			return fmt.Errorf("decoding entity: %w", err)
		}

		return nil
	}

	var wire wireObject

	err := json.Unmarshal(data, &wire)
	if err != nil {
		return fmt.Errorf("decoding entity: %w", err)
	}

	return wire.apply(entity)
}

// NewEntity allocates the record a pointer type such as *Company points to.
func NewEntity[E Entity]() E {
	t := reflect.TypeOf((*E)(nil)).Elem()
	if t.Kind() != reflect.Pointer {
		var zero E

		return zero
	}

	entity, _ := reflect.New(t.Elem()).Interface().(E)

	return entity
}

// wireObject is the properties-bag shape of a single record. Associations
// arrive either as the request array of an Input or as the response map
// keyed by object type.
type wireObject struct {
	ID                    Identifier                   `json:"id"`
	IDProperty            string                       `json:"idProperty"`
	Properties            map[string]*string           `json:"properties"`
	PropertiesWithHistory map[string][]PropertyVersion `json:"propertiesWithHistory"`
	Associations          json.RawMessage              `json:"associations"`
	CreatedAt             time.Time                    `json:"createdAt"`
	UpdatedAt             time.Time                    `json:"updatedAt"`
	Archived              bool                         `json:"archived"`
	ArchivedAt            time.Time                    `json:"archivedAt"`
}

type wireAssociations struct {
	Results []struct {
		ID   Identifier `json:"id"`
		Type string     `json:"type"`
	} `json:"results"`
}

func (w *wireObject) apply(entity Entity) error {
	base := entity.Base()
	base.ID = w.ID
	base.IDProperty = w.IDProperty
	base.CreatedAt = w.CreatedAt
	base.UpdatedAt = w.UpdatedAt
	base.Archived = w.Archived
	base.ArchivedAt = w.ArchivedAt

	if len(w.PropertiesWithHistory) > 0 {
		base.History = w.PropertiesWithHistory
	}

	err := w.applyAssociations(base)
	if err != nil {
		return err
	}

	props := make(Properties, len(w.Properties))

	for name, value := range w.Properties {
		if value != nil {
			props[name] = *value
		}
	}

	return DecodeProperties(entity, props)
}

func (w *wireObject) applyAssociations(base *Object) error {
	raw := bytes.TrimSpace(w.Associations)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	if raw[0] == '[' {
		var links []ObjectAssociation

		err := json.Unmarshal(raw, &links)
		if err != nil {
			return fmt.Errorf("decoding entity associations: %w", err)
		}

		if len(links) > 0 {
			base.Associations = links
		}

		return nil
	}

	var grouped map[string]wireAssociations

	err := json.Unmarshal(raw, &grouped)
	if err != nil {
		return fmt.Errorf("decoding entity associations: %w", err)
	}

	if len(grouped) == 0 {
		return nil
	}

	base.Associated = make(map[string][]Identifier, len(grouped))

	for kind, assoc := range grouped {
		ids := make([]Identifier, 0, len(assoc.Results))
		for _, result := range assoc.Results {
			ids = append(ids, result.ID)
		}

		base.Associated[kind] = ids
	}

	return nil
}

type propertyField struct {
	name  string
	index []int
	date  bool
}

var (
	objectType   = reflect.TypeOf(Object{})
	timeType     = reflect.TypeOf(time.Time{})
	fieldCache   sync.Map
	errNotStruct = fmt.Errorf("%w: entity must be a pointer to a struct", ErrValidation)
)

func propertyFields(t reflect.Type) []propertyField {
	if cached, ok := fieldCache.Load(t); ok {
		fields, _ := cached.([]propertyField)

		return fields
	}

	fields := make([]propertyField, 0, t.NumField())

	for i := range t.NumField() {
		field := t.Field(i)
		if field.Anonymous && field.Type == objectType {
			continue
		}

		tag, ok := field.Tag.Lookup("hubspot")
		if !ok || tag == "" || tag == "-" || !field.IsExported() {
			continue
		}

		name, opts, _ := strings.Cut(tag, ",")
		fields = append(fields, propertyField{
			name:  name,
			index: field.Index,
			date:  opts == "date",
		})
	}

	fieldCache.Store(t, fields)

	return fields
}

func structValue(entity Entity) (reflect.Value, error) {
	v := reflect.ValueOf(entity)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, errNotStruct
	}

	return v.Elem(), nil
}

// PropertyNames lists the properties entity declares, in declaration order.
func PropertyNames(entity Entity) []string {
	v, err := structValue(entity)
	if err != nil {
		return nil
	}

	fields := propertyFields(v.Type())
	names := make([]string, 0, len(fields))

	for _, field := range fields {
		names = append(names, field.name)
	}

	return names
}

// EncodeProperties flattens the declared fields of entity, plus its Extra
// properties, into a property bag. Zero-valued fields are left out; set an
// empty Extra value to clear a property explicitly.
func EncodeProperties(entity Entity) (Properties, error) {
	v, err := structValue(entity)
	if err != nil {
		return nil, err
	}

	props := Properties{}

	for _, field := range propertyFields(v.Type()) {
		value, ok, err := formatValue(v.FieldByIndex(field.index), field.date)
		if err != nil {
			return nil, fmt.Errorf("encoding property %q: %w", field.name, err)
		}

		if ok {
			props[field.name] = value
		}
	}

	for name, value := range entity.Base().Extra {
		if readOnlyProperties[name] {
			continue
		}

		props[name] = value
	}

	return props, nil
}

// DecodeProperties sets the declared fields of entity from props. Properties
// the entity does not declare are kept in Extra.
func DecodeProperties(entity Entity, props Properties) error {
	v, err := structValue(entity)
	if err != nil {
		return err
	}

	declared := map[string]bool{}

	for _, field := range propertyFields(v.Type()) {
		declared[field.name] = true

		value, ok := props[field.name]
		if !ok {
			continue
		}

		err := parseValue(v.FieldByIndex(field.index), value)
		if err != nil {
			return fmt.Errorf("decoding property %q: %w", field.name, err)
		}
	}

	base := entity.Base()
	base.Extra = nil

	for name, value := range props {
		if declared[name] {
			continue
		}

		if base.Extra == nil {
			base.Extra = Properties{}
		}

		base.Extra[name] = value
	}

	return nil
}

func formatValue(v reflect.Value, date bool) (string, bool, error) {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return "", false, nil
		}

		return formatScalar(v.Elem(), date, true)
	}

	return formatScalar(v, date, false)
}

//nolint:cyclop // One branch per supported field kind
func formatScalar(v reflect.Value, date, explicit bool) (string, bool, error) {
	if v.Type() == timeType {
		t, _ := v.Interface().(time.Time)
		if t.IsZero() {
			return "", false, nil
		}

		if date {
			return t.UTC().Format(constants.DateLayout), true, nil
		}

		return t.UTC().Format(constants.DateTimeLayout), true, nil
	}

	if !explicit && v.IsZero() {
		return "", false, nil
	}

	switch v.Kind() {
	case reflect.String:
		return v.String(), true, nil
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), true, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), true, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), true, nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64), true, nil
	default:
		return "", false, fmt.Errorf("unsupported field type %s", v.Type())
	}
}

func parseValue(v reflect.Value, raw string) error {
	if v.Kind() == reflect.Pointer {
		if raw == "" {
			v.Set(reflect.Zero(v.Type()))

			return nil
		}

		target := reflect.New(v.Type().Elem())

		err := parseScalar(target.Elem(), raw)
		if err != nil {
			return err
		}

		v.Set(target)

		return nil
	}

	if raw == "" {
		v.Set(reflect.Zero(v.Type()))

		return nil
	}

	return parseScalar(v, raw)
}

//nolint:cyclop // One branch per supported field kind
func parseScalar(v reflect.Value, raw string) error {
	if v.Type() == timeType {
		t, err := ParseTime(raw)
		if err != nil {
			return err
		}

		v.Set(reflect.ValueOf(t))

		return nil
	}

	switch v.Kind() {
	case reflect.String:
		v.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("parsing bool: %w", err)
		}

		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, v.Type().Bits())
		if err != nil {
			return fmt.Errorf("parsing integer: %w", err)
		}

		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, v.Type().Bits())
		if err != nil {
			return fmt.Errorf("parsing unsigned integer: %w", err)
		}

		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, v.Type().Bits())
		if err != nil {
			return fmt.Errorf("parsing number: %w", err)
		}

		v.SetFloat(f)
	default:
		return fmt.Errorf("unsupported field type %s", v.Type())
	}

	return nil
}

// ParseTime reads a HubSpot date or datetime property value: RFC 3339,
// epoch milliseconds, or a bare date.
func ParseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err == nil {
		return t.UTC(), nil
	}

	ms, msErr := strconv.ParseInt(raw, 10, 64)
	if msErr == nil {
		return time.UnixMilli(ms).UTC(), nil
	}

	t, dateErr := time.Parse(constants.DateLayout, raw)
	if dateErr == nil {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("parsing time %q: %w", raw, err)
}

// Keys returns the property names in sorted order.
func (p Properties) Keys() []string {
	keys := make([]string, 0, len(p))
	for key := range p {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}
