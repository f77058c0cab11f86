package hubspot

import "time"

// CRM object type names as used in API paths.
const (
	ObjectTypeContacts  = "contacts"
	ObjectTypeCompanies = "companies"
	ObjectTypeDeals     = "deals"
	ObjectTypeTickets   = "tickets"
)

// Entity is implemented by every typed CRM record through its embedded Object.
type Entity interface {
	Base() *Object
}

// Object holds the fields every CRM record shares. Typed records embed it and
// declare their own properties with `hubspot:"<property>"` tags.
type Object struct {
	ID         Identifier `json:"id,omitzero"         yaml:"id"`
	IDProperty string     `json:"-"                   yaml:"-"`
	CreatedAt  time.Time  `json:"createdAt,omitzero"  yaml:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt,omitzero"  yaml:"updatedAt"`
	Archived   bool       `json:"archived,omitempty"  yaml:"archived,omitempty"`
	ArchivedAt time.Time  `json:"archivedAt,omitzero" yaml:"archivedAt,omitempty"`

	// Extra carries properties the typed record does not declare.
	Extra Properties `json:"extra,omitempty" yaml:"extra,omitempty"`

	// History is filled when property history was requested.
	History map[string][]PropertyVersion `json:"history,omitempty" yaml:"history,omitempty"`

	// Associations are sent with Create to link the new record.
	Associations []ObjectAssociation `json:"-" yaml:"-"`

	// Associated lists related record ids by object type, when returned.
	Associated map[string][]Identifier `json:"associated,omitempty" yaml:"associated,omitempty"`
}

// Base implements Entity.
func (o *Object) Base() *Object {
	return o
}

// SetID assigns the identifier from a raw value; integers become numeric ids.
func (o *Object) SetID(value string) {
	o.ID = ParseIdentifier(value)
}

// SetNamedID identifies the record by a unique property, e.g. ("email", "a@b.c").
func (o *Object) SetNamedID(property, value string) {
	o.ID = ParseIdentifier(value)
	o.IDProperty = property
}

// NumericID returns the platform id, or 0 when the record is not yet created.
func (o *Object) NumericID() int64 {
	return o.ID.Int64()
}

// Property returns an undeclared property value.
func (o *Object) Property(name string) string {
	return o.Extra[name]
}

// SetProperty stores an undeclared property value.
func (o *Object) SetProperty(name, value string) {
	if o.Extra == nil {
		o.Extra = Properties{}
	}

	o.Extra[name] = value
}

// Company is a CRM company record.
type Company struct {
	Object `yaml:",inline"`

	Name              string   `hubspot:"name"              json:"name,omitempty"              yaml:"name,omitempty"`
	Domain            string   `hubspot:"domain"            json:"domain,omitempty"            yaml:"domain,omitempty"`
	Description       string   `hubspot:"description"       json:"description,omitempty"       yaml:"description,omitempty"`
	Industry          string   `hubspot:"industry"          json:"industry,omitempty"          yaml:"industry,omitempty"`
	Phone             string   `hubspot:"phone"             json:"phone,omitempty"             yaml:"phone,omitempty"`
	Website           string   `hubspot:"website"           json:"website,omitempty"           yaml:"website,omitempty"`
	City              string   `hubspot:"city"              json:"city,omitempty"              yaml:"city,omitempty"`
	State             string   `hubspot:"state"             json:"state,omitempty"             yaml:"state,omitempty"`
	Country           string   `hubspot:"country"           json:"country,omitempty"           yaml:"country,omitempty"`
	Zip               string   `hubspot:"zip"               json:"zip,omitempty"               yaml:"zip,omitempty"`
	NumberOfEmployees *int64   `hubspot:"numberofemployees" json:"numberofemployees,omitempty" yaml:"numberofemployees,omitempty"`
	AnnualRevenue     *float64 `hubspot:"annualrevenue"     json:"annualrevenue,omitempty"     yaml:"annualrevenue,omitempty"`
	LifecycleStage    string   `hubspot:"lifecyclestage"    json:"lifecyclestage,omitempty"    yaml:"lifecyclestage,omitempty"`
	OwnerID           string   `hubspot:"hubspot_owner_id"  json:"hubspot_owner_id,omitempty"  yaml:"hubspot_owner_id,omitempty"`
}

// Contact is a CRM contact record. Contacts are unique by email.
type Contact struct {
	Object `yaml:",inline"`

	Email          string `hubspot:"email"            json:"email,omitempty"            yaml:"email,omitempty"`
	FirstName      string `hubspot:"firstname"        json:"firstname,omitempty"        yaml:"firstname,omitempty"`
	LastName       string `hubspot:"lastname"         json:"lastname,omitempty"         yaml:"lastname,omitempty"`
	Phone          string `hubspot:"phone"            json:"phone,omitempty"            yaml:"phone,omitempty"`
	Company        string `hubspot:"company"          json:"company,omitempty"          yaml:"company,omitempty"`
	JobTitle       string `hubspot:"jobtitle"         json:"jobtitle,omitempty"         yaml:"jobtitle,omitempty"`
	Website        string `hubspot:"website"          json:"website,omitempty"          yaml:"website,omitempty"`
	City           string `hubspot:"city"             json:"city,omitempty"             yaml:"city,omitempty"`
	State          string `hubspot:"state"            json:"state,omitempty"            yaml:"state,omitempty"`
	Country        string `hubspot:"country"          json:"country,omitempty"          yaml:"country,omitempty"`
	LifecycleStage string `hubspot:"lifecyclestage"   json:"lifecyclestage,omitempty"   yaml:"lifecyclestage,omitempty"`
	OwnerID        string `hubspot:"hubspot_owner_id" json:"hubspot_owner_id,omitempty" yaml:"hubspot_owner_id,omitempty"`
}

// Deal is a CRM deal record.
type Deal struct {
	Object `yaml:",inline"`

	Name      string    `hubspot:"dealname"         json:"dealname,omitempty"         yaml:"dealname,omitempty"`
	Amount    *float64  `hubspot:"amount"           json:"amount,omitempty"           yaml:"amount,omitempty"`
	Stage     string    `hubspot:"dealstage"        json:"dealstage,omitempty"        yaml:"dealstage,omitempty"`
	Pipeline  string    `hubspot:"pipeline"         json:"pipeline,omitempty"         yaml:"pipeline,omitempty"`
	CloseDate time.Time `hubspot:"closedate"        json:"closedate,omitzero"         yaml:"closedate,omitempty"`
	DealType  string    `hubspot:"dealtype"         json:"dealtype,omitempty"         yaml:"dealtype,omitempty"`
	OwnerID   string    `hubspot:"hubspot_owner_id" json:"hubspot_owner_id,omitempty" yaml:"hubspot_owner_id,omitempty"`
}

// Ticket is a CRM support ticket record.
type Ticket struct {
	Object `yaml:",inline"`

	Subject  string `hubspot:"subject"            json:"subject,omitempty"            yaml:"subject,omitempty"`
	Content  string `hubspot:"content"            json:"content,omitempty"            yaml:"content,omitempty"`
	Pipeline string `hubspot:"hs_pipeline"        json:"hs_pipeline,omitempty"        yaml:"hs_pipeline,omitempty"`
	Stage    string `hubspot:"hs_pipeline_stage"  json:"hs_pipeline_stage,omitempty"  yaml:"hs_pipeline_stage,omitempty"`
	Priority string `hubspot:"hs_ticket_priority" json:"hs_ticket_priority,omitempty" yaml:"hs_ticket_priority,omitempty"`
	Category string `hubspot:"hs_ticket_category" json:"hs_ticket_category,omitempty" yaml:"hs_ticket_category,omitempty"`
	OwnerID  string `hubspot:"hubspot_owner_id"   json:"hubspot_owner_id,omitempty"   yaml:"hubspot_owner_id,omitempty"`
}
