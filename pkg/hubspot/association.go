package hubspot

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// AssociationCategory says who defined an association type.
type AssociationCategory string

// Association categories.
const (
	HubSpotDefined    AssociationCategory = "HUBSPOT_DEFINED"
	UserDefined       AssociationCategory = "USER_DEFINED"
	IntegratorDefined AssociationCategory = "INTEGRATOR_DEFINED"
)

// Valid reports whether c is a known category.
func (c AssociationCategory) Valid() bool {
	return c == HubSpotDefined || c == UserDefined || c == IntegratorDefined
}

// StandardAssociation is a built-in association type id.
type StandardAssociation int64

// Built-in association types between the modeled objects.
const (
	ContactToCompanyPrimary StandardAssociation = 1
	CompanyToContactPrimary StandardAssociation = 2
	DealToContact           StandardAssociation = 3
	ContactToDeal           StandardAssociation = 4
	DealToCompanyPrimary    StandardAssociation = 5
	CompanyToDealPrimary    StandardAssociation = 6
	ContactToTicket         StandardAssociation = 15
	TicketToContact         StandardAssociation = 16
	CompanyToTicketPrimary  StandardAssociation = 25
	TicketToCompanyPrimary  StandardAssociation = 26
	DealToTicket            StandardAssociation = 27
	TicketToDeal            StandardAssociation = 28
	ContactToCompany        StandardAssociation = 279
	CompanyToContact        StandardAssociation = 280
	TicketToCompany         StandardAssociation = 339
	CompanyToTicket         StandardAssociation = 340
	DealToCompany           StandardAssociation = 341
	CompanyToDeal           StandardAssociation = 342
)

type standardInfo struct {
	name    string
	from    string
	to      string
	inverse StandardAssociation
}

var standardAssociations = map[StandardAssociation]standardInfo{
	ContactToCompanyPrimary: {"contact_to_company_primary", ObjectTypeContacts, ObjectTypeCompanies, CompanyToContactPrimary},
	CompanyToContactPrimary: {"company_to_contact_primary", ObjectTypeCompanies, ObjectTypeContacts, ContactToCompanyPrimary},
	DealToContact:           {"deal_to_contact", ObjectTypeDeals, ObjectTypeContacts, ContactToDeal},
	ContactToDeal:           {"contact_to_deal", ObjectTypeContacts, ObjectTypeDeals, DealToContact},
	DealToCompanyPrimary:    {"deal_to_company_primary", ObjectTypeDeals, ObjectTypeCompanies, CompanyToDealPrimary},
	CompanyToDealPrimary:    {"company_to_deal_primary", ObjectTypeCompanies, ObjectTypeDeals, DealToCompanyPrimary},
	ContactToTicket:         {"contact_to_ticket", ObjectTypeContacts, ObjectTypeTickets, TicketToContact},
	TicketToContact:         {"ticket_to_contact", ObjectTypeTickets, ObjectTypeContacts, ContactToTicket},
	CompanyToTicketPrimary:  {"company_to_ticket_primary", ObjectTypeCompanies, ObjectTypeTickets, TicketToCompanyPrimary},
	TicketToCompanyPrimary:  {"ticket_to_company_primary", ObjectTypeTickets, ObjectTypeCompanies, CompanyToTicketPrimary},
	DealToTicket:            {"deal_to_ticket", ObjectTypeDeals, ObjectTypeTickets, TicketToDeal},
	TicketToDeal:            {"ticket_to_deal", ObjectTypeTickets, ObjectTypeDeals, DealToTicket},
	ContactToCompany:        {"contact_to_company", ObjectTypeContacts, ObjectTypeCompanies, CompanyToContact},
	CompanyToContact:        {"company_to_contact", ObjectTypeCompanies, ObjectTypeContacts, ContactToCompany},
	TicketToCompany:         {"ticket_to_company", ObjectTypeTickets, ObjectTypeCompanies, CompanyToTicket},
	CompanyToTicket:         {"company_to_ticket", ObjectTypeCompanies, ObjectTypeTickets, TicketToCompany},
	DealToCompany:           {"deal_to_company", ObjectTypeDeals, ObjectTypeCompanies, CompanyToDeal},
	CompanyToDeal:           {"company_to_deal", ObjectTypeCompanies, ObjectTypeDeals, DealToCompany},
}

// String returns HubSpot's name for the type, e.g. "contact_to_company".
func (s StandardAssociation) String() string {
	if info, ok := standardAssociations[s]; ok {
		return info.name
	}

	return "association_" + strconv.FormatInt(int64(s), 10)
}

// Known reports whether s is one of the modeled built-in types.
func (s StandardAssociation) Known() bool {
	_, ok := standardAssociations[s]

	return ok
}

// Inverse returns the type describing the same edge in the other direction.
func (s StandardAssociation) Inverse() (StandardAssociation, bool) {
	info, ok := standardAssociations[s]

	return info.inverse, ok
}

// Objects returns the source and destination object types.
func (s StandardAssociation) Objects() (string, string, bool) {
	info, ok := standardAssociations[s]

	return info.from, info.to, ok
}

// DefaultAssociation returns the unlabeled built-in type linking from to to.
func DefaultAssociation(from, to string) (StandardAssociation, bool) {
	keys := make([]StandardAssociation, 0, len(standardAssociations))
	for key := range standardAssociations {
		keys = append(keys, key)
	}

	// Unlabeled types have the higher ids; primaries are the low ones.
	sort.Slice(keys, func(i, j int) bool { return keys[i] > keys[j] })

	for _, key := range keys {
		info := standardAssociations[key]
		if info.from == from && info.to == to {
			return key, true
		}
	}

	return 0, false
}

var objectTypeIDs = map[string]string{
	ObjectTypeContacts:  "0-1",
	ObjectTypeCompanies: "0-2",
	ObjectTypeDeals:     "0-3",
	ObjectTypeTickets:   "0-5",
}

// ObjectTypeID returns HubSpot's numeric object type id, e.g. "0-1" for contacts.
func ObjectTypeID(objectType string) (string, bool) {
	id, ok := objectTypeIDs[objectType]

	return id, ok
}

// ObjectTypeName maps a numeric object type id back to its name.
func ObjectTypeName(typeID string) (string, bool) {
	for name, id := range objectTypeIDs {
		if id == typeID {
			return name, true
		}
	}

	return "", false
}

// AssociationTypeID identifies an association type: a built-in enum value
// for HUBSPOT_DEFINED, or an account-specific id for user and integrator
// defined labels. The form is fixed when the value is constructed.
type AssociationTypeID struct {
	category AssociationCategory
	standard StandardAssociation
	custom   int64
}

// Standard returns a built-in association type.
func Standard(association StandardAssociation) AssociationTypeID {
	return AssociationTypeID{category: HubSpotDefined, standard: association}
}

// Custom returns a user-defined association type.
func Custom(typeID int64) AssociationTypeID {
	return AssociationTypeID{category: UserDefined, custom: typeID}
}

// NewAssociationTypeID resolves a category and raw id into the matching form.
func NewAssociationTypeID(category AssociationCategory, typeID int64) (AssociationTypeID, error) {
	switch category {
	case HubSpotDefined:
		return Standard(StandardAssociation(typeID)), nil
	case UserDefined, IntegratorDefined:
		return AssociationTypeID{category: category, custom: typeID}, nil
	default:
		return AssociationTypeID{}, newValidationError("associationCategory", ErrUnknownCategory, "got %q", string(category))
	}
}

// Category returns who defined the type.
func (a AssociationTypeID) Category() AssociationCategory {
	return a.category
}

// IsStandard reports whether a is a built-in type.
func (a AssociationTypeID) IsStandard() bool {
	return a.category == HubSpotDefined
}

// StandardType returns the built-in type, if a is one.
func (a AssociationTypeID) StandardType() (StandardAssociation, bool) {
	return a.standard, a.IsStandard()
}

// Equal reports whether both values name the same type.
func (a AssociationTypeID) Equal(other AssociationTypeID) bool {
	return a == other
}

// IsZero reports whether a was never set.
func (a AssociationTypeID) IsZero() bool {
	return a.category == ""
}

// ID returns the numeric type id sent on the wire.
func (a AssociationTypeID) ID() int64 {
	if a.IsStandard() {
		return int64(a.standard)
	}

	return a.custom
}

// String renders the type as "CATEGORY/id".
func (a AssociationTypeID) String() string {
	return fmt.Sprintf("%s/%d", a.category, a.ID())
}

type wireAssociationType struct {
	AssociationCategory AssociationCategory `json:"associationCategory"`
	AssociationTypeID   int64               `json:"associationTypeId"`
}

// MarshalJSON renders {"associationCategory": ..., "associationTypeId": ...}.
func (a AssociationTypeID) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireAssociationType{AssociationCategory: a.category, AssociationTypeID: a.ID()})
}

// UnmarshalJSON accepts both the request form and the {category, typeId} response form.
func (a *AssociationTypeID) UnmarshalJSON(data []byte) error {
	var wire struct {
		AssociationCategory AssociationCategory `json:"associationCategory"`
		AssociationTypeID   int64               `json:"associationTypeId"`
		Category            AssociationCategory `json:"category"`
		TypeID              int64               `json:"typeId"`
	}

	err := json.Unmarshal(data, &wire)
	if err != nil {
		return fmt.Errorf("parsing association type: %w", err)
	}

	category, typeID := wire.AssociationCategory, wire.AssociationTypeID
	if category == "" {
		category, typeID = wire.Category, wire.TypeID
	}

	parsed, err := NewAssociationTypeID(category, typeID)
	if err != nil {
		return err
	}

	*a = parsed

	return nil
}

// ObjectRef names one record of one object type.
type ObjectRef struct {
	Type string `json:"type" yaml:"type"`
	ID   int64  `json:"id"   yaml:"id"`
}

// Ref builds an ObjectRef.
func Ref(objectType string, id int64) ObjectRef {
	return ObjectRef{Type: objectType, ID: id}
}

// ParseObjectRef reads "type:id", e.g. "contacts:101".
func ParseObjectRef(value string) (ObjectRef, error) {
	objectType, rawID, ok := strings.Cut(value, ":")
	if !ok {
		return ObjectRef{}, newValidationError("objectRef", ErrInvalidObjectRef, "got %q", value)
	}

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return ObjectRef{}, newValidationError("objectRef", ErrInvalidObjectRef, "got %q", value)
	}

	ref := ObjectRef{Type: objectType, ID: id}

	return ref, ref.Validate()
}

// Validate checks that the reference names a type and a positive id.
func (r ObjectRef) Validate() error {
	if r.Type == "" || r.ID <= 0 {
		return newValidationError("objectRef", ErrInvalidObjectRef, "got %s", r)
	}

	return nil
}

// String renders "type:id".
func (r ObjectRef) String() string {
	return r.Type + ":" + strconv.FormatInt(r.ID, 10)
}

// RecordRef is the {"id": ...} wrapper used inside association requests.
type RecordRef struct {
	ID Identifier `json:"id" yaml:"id"`
}

// RecordID wraps a numeric record id.
func RecordID(id int64) RecordRef {
	return RecordRef{ID: NumericID(id)}
}

// ObjectAssociation links a record being created to an existing one.
type ObjectAssociation struct {
	To    int64
	Types []AssociationTypeID
}

// MarshalJSON renders {"to": {"id": ...}, "types": [...]}.
func (o ObjectAssociation) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		To    RecordRef           `json:"to"`
		Types []AssociationTypeID `json:"types"`
	}{To: RecordID(o.To), Types: o.Types})
}

// UnmarshalJSON reads the {"to": {"id": ...}, "types": [...]} form back.
func (o *ObjectAssociation) UnmarshalJSON(data []byte) error {
	var wire struct {
		To    RecordRef           `json:"to"`
		Types []AssociationTypeID `json:"types"`
	}

	err := json.Unmarshal(data, &wire)
	if err != nil {
		return fmt.Errorf("parsing association: %w", err)
	}

	if !wire.To.ID.IsNumeric() {
		return newValidationError("to.id", ErrNumericIDRequired, "association target %q is not numeric", wire.To.ID)
	}

	o.To = wire.To.ID.Int64()
	o.Types = wire.Types

	return nil
}

// AssociationLabel is an association type as reported by HubSpot, with its label.
type AssociationLabel struct {
	Type  AssociationTypeID
	Label string
}

type wireAssociationLabel struct {
	Category AssociationCategory `json:"category"        yaml:"category"`
	TypeID   int64               `json:"typeId"          yaml:"typeId"`
	Label    *string             `json:"label,omitempty" yaml:"label,omitempty"`
}

// MarshalJSON renders {"category": ..., "typeId": ..., "label": ...}.
func (l AssociationLabel) MarshalJSON() ([]byte, error) {
	wire := wireAssociationLabel{Category: l.Type.Category(), TypeID: l.Type.ID()}
	if l.Label != "" {
		wire.Label = &l.Label
	}

	return json.Marshal(wire)
}

// MarshalYAML renders the same fields as MarshalJSON.
func (l AssociationLabel) MarshalYAML() (interface{}, error) {
	return wireAssociationLabel{Category: l.Type.Category(), TypeID: l.Type.ID(), Label: &l.Label}, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *AssociationLabel) UnmarshalJSON(data []byte) error {
	var wire wireAssociationLabel

	err := json.Unmarshal(data, &wire)
	if err != nil {
		return fmt.Errorf("parsing association label: %w", err)
	}

	typeID, err := NewAssociationTypeID(wire.Category, wire.TypeID)
	if err != nil {
		return err
	}

	l.Type = typeID
	l.Label = ""

	if wire.Label != nil {
		l.Label = *wire.Label
	}

	return nil
}

// AssociatedObject is one linked record returned by an association listing.
type AssociatedObject struct {
	ToObjectID Identifier         `json:"toObjectId"       yaml:"toObjectId"`
	Types      []AssociationLabel `json:"associationTypes" yaml:"associationTypes"`
}

// AssociationInput links two records in a batch association call.
type AssociationInput struct {
	From  RecordRef           `json:"from"`
	To    RecordRef           `json:"to"`
	Types []AssociationTypeID `json:"types,omitempty"`
}

// AssociationArchiveInput removes links from one record in a batch call.
type AssociationArchiveInput struct {
	From  RecordRef           `json:"from"`
	To    []RecordRef         `json:"to"`
	Types []AssociationTypeID `json:"types,omitempty"`
}

// AssociationReadInput asks for the links of one record in a batch read.
type AssociationReadInput struct {
	ID    Identifier `json:"id"`
	After string     `json:"after,omitempty"`
}

// AssociationCreateResult is one link created by an association call.
type AssociationCreateResult struct {
	FromObjectTypeID string     `json:"fromObjectTypeId" yaml:"fromObjectTypeId"`
	FromObjectID     Identifier `json:"fromObjectId"     yaml:"fromObjectId"`
	ToObjectTypeID   string     `json:"toObjectTypeId"   yaml:"toObjectTypeId"`
	ToObjectID       Identifier `json:"toObjectId"       yaml:"toObjectId"`
	Labels           []string   `json:"labels"           yaml:"labels"`
}

// AssociationBatchResult holds the links of one record from a batch read.
type AssociationBatchResult struct {
	From   RecordRef          `json:"from"             yaml:"from"`
	To     []AssociatedObject `json:"to"               yaml:"to"`
	Paging *Paging            `json:"paging,omitempty" yaml:"paging,omitempty"`
}

// AssociationTypeDefinition describes a custom label to create. Leave
// InverseLabel empty for a symmetric label.
type AssociationTypeDefinition struct {
	Label        string `json:"label"`
	Name         string `json:"name,omitempty"`
	InverseLabel string `json:"inverseLabel,omitempty"`
}

// AssociationTypeUpdate renames an existing custom label.
type AssociationTypeUpdate struct {
	TypeID       int64  `json:"associationTypeId"`
	Label        string `json:"label"`
	InverseLabel string `json:"inverseLabel,omitempty"`
}

// AssociationTypePair is the two directions of a custom association type.
// HubSpot assigns the lower id to source to destination.
type AssociationTypePair struct {
	forward AssociationLabel
	inverse AssociationLabel
}

// NewAssociationTypePair orders labels returned for one definition.
func NewAssociationTypePair(labels []AssociationLabel) (AssociationTypePair, error) {
	if len(labels) == 0 {
		return AssociationTypePair{}, newValidationError("labels", ErrOutOfRange, "an association type pair needs at least one label")
	}

	sorted := make([]AssociationLabel, len(labels))
	copy(sorted, labels)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Type.ID() < sorted[j].Type.ID() })

	pair := AssociationTypePair{forward: sorted[0], inverse: sorted[len(sorted)-1]}

	return pair, nil
}

// Forward is the source to destination type, the lower id.
func (p AssociationTypePair) Forward() AssociationLabel {
	return p.forward
}

// Inverse is the destination to source type, the higher id.
func (p AssociationTypePair) Inverse() AssociationLabel {
	return p.inverse
}

// Symmetric reports whether both directions share one type id.
func (p AssociationTypePair) Symmetric() bool {
	return p.forward.Type.ID() == p.inverse.Type.ID()
}
