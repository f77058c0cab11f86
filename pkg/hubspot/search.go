package hubspot

import (
	"encoding/json"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/fivetwenty-io/hubspot-client/internal/constants"
)

// Operator is a search filter comparison.
type Operator string

// Search filter operators.
const (
	OperatorEQ               Operator = "EQ"
	OperatorNEQ              Operator = "NEQ"
	OperatorLT               Operator = "LT"
	OperatorLTE              Operator = "LTE"
	OperatorGT               Operator = "GT"
	OperatorGTE              Operator = "GTE"
	OperatorBetween          Operator = "BETWEEN"
	OperatorIn               Operator = "IN"
	OperatorNotIn            Operator = "NOT_IN"
	OperatorHasProperty      Operator = "HAS_PROPERTY"
	OperatorNotHasProperty   Operator = "NOT_HAS_PROPERTY"
	OperatorContainsToken    Operator = "CONTAINS_TOKEN"
	OperatorNotContainsToken Operator = "NOT_CONTAINS_TOKEN"
)

var operators = []Operator{
	OperatorEQ, OperatorNEQ, OperatorLT, OperatorLTE, OperatorGT, OperatorGTE,
	OperatorBetween, OperatorIn, OperatorNotIn, OperatorHasProperty,
	OperatorNotHasProperty, OperatorContainsToken, OperatorNotContainsToken,
}

// Operators returns every supported operator.
func Operators() []Operator {
	return slices.Clone(operators)
}

// Valid reports whether o is a known operator.
func (o Operator) Valid() bool {
	return slices.Contains(operators, o)
}

// SortDirection orders search results.
type SortDirection string

// Sort directions.
const (
	Ascending  SortDirection = "ASCENDING"
	Descending SortDirection = "DESCENDING"
)

const (
	propertyCreateDate       = "createdate"
	propertyLastModifiedDate = "lastmodifieddate"
)

// Sort is the single sort key of a search.
type Sort struct {
	PropertyName string        `json:"propertyName"`
	Direction    SortDirection `json:"direction"`
}

// DefaultSort orders by creation date, newest first.
func DefaultSort() Sort {
	return Sort{PropertyName: propertyCreateDate, Direction: Descending}
}

// Filter is one comparison within a filter group. The zero Filter is sent as
// "createdate GTE seven days ago".
type Filter struct {
	PropertyName string
	Operator     Operator
	Value        string
	HighValue    string
	Values       []string
}

// IsEmpty reports whether the filter will be sent with the recent-records default.
func (f Filter) IsEmpty() bool {
	return f.PropertyName == "" && f.Operator == "" && f.Value == "" && f.HighValue == "" && len(f.Values) == 0
}

func (f Filter) validate() error {
	if f.IsEmpty() || f.Operator != "" {
		return nil
	}

	return newValidationError("operator", ErrMissingOperator, "filter on %q has no operator", f.PropertyName)
}

// since matches records whose date property is at or after the start of the
// recent window.
func since(property string) Filter {
	return Filter{
		PropertyName: property,
		Operator:     OperatorGTE,
		Value:        strconv.FormatInt(time.Now().Add(-constants.RecentWindow).UnixMilli(), 10),
	}
}

type wireFilter struct {
	PropertyName string   `json:"propertyName"`
	Operator     Operator `json:"operator"`
	Value        string   `json:"value,omitempty"`
	HighValue    string   `json:"highValue,omitempty"`
	Values       []string `json:"values,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (f Filter) MarshalJSON() ([]byte, error) {
	wire := wireFilter{
		PropertyName: f.PropertyName,
		Operator:     f.Operator,
		Value:        f.Value,
		HighValue:    f.HighValue,
		Values:       f.Values,
	}

	if f.IsEmpty() {
		recent := since(propertyCreateDate)
		wire.PropertyName = recent.PropertyName
		wire.Operator = recent.Operator
		wire.Value = recent.Value
	}

	return json.Marshal(wire)
}

// FilterGroup ANDs up to three filters.
type FilterGroup struct {
	filters []Filter
}

// NewFilterGroup builds a group from filters.
func NewFilterGroup(filters ...Filter) (*FilterGroup, error) {
	group := &FilterGroup{}

	for _, filter := range filters {
		err := group.Add(filter)
		if err != nil {
			return nil, err
		}
	}

	return group, nil
}

// Add appends a filter. A fourth filter, or one naming a property without an
// operator, is rejected and the group left unchanged.
func (g *FilterGroup) Add(filter Filter) error {
	if len(g.filters) >= constants.MaxFiltersPerGroup {
		return newValidationError("filters", ErrTooManyFilters, "group already holds %d filters", len(g.filters))
	}

	err := filter.validate()
	if err != nil {
		return err
	}

	g.filters = append(g.filters, filter)

	return nil
}

// Filters returns a copy of the group's filters.
func (g *FilterGroup) Filters() []Filter {
	return slices.Clone(g.filters)
}

// Len returns the number of filters.
func (g *FilterGroup) Len() int {
	return len(g.filters)
}

// MarshalJSON implements json.Marshaler.
func (g *FilterGroup) MarshalJSON() ([]byte, error) {
	filters := g.filters
	if filters == nil {
		filters = []Filter{}
	}

	return json.Marshal(struct {
		Filters []Filter `json:"filters"`
	}{Filters: filters})
}

// SearchRequestOptions configures Search and List calls and carries the
// continuation offset between pages.
type SearchRequestOptions struct {
	// Query is HubSpot's free-text search across default searchable properties.
	Query string

	// Offset is the continuation cursor; empty requests the first page.
	Offset string

	// Properties names the properties returned for each record.
	Properties []string

	// Archived asks List and lookups for archived records. Search ignores it.
	Archived bool

	groups  []*FilterGroup
	sort    *Sort
	limit   int
	history []string
}

// NewSearchRequestOptions returns empty options: no filters, default sort and limit.
func NewSearchRequestOptions() *SearchRequestOptions {
	return &SearchRequestOptions{}
}

// NewRecentlyCreatedOptions matches records created in the last seven days, newest first.
func NewRecentlyCreatedOptions() *SearchRequestOptions {
	opts := &SearchRequestOptions{}
	_, _ = opts.AddFilterGroup(Filter{})
	opts.SetSort(propertyCreateDate, Descending)

	return opts
}

// NewRecentlyUpdatedOptions matches records modified in the seven days before
// the call, most recent first.
func NewRecentlyUpdatedOptions() *SearchRequestOptions {
	opts := &SearchRequestOptions{}
	_, _ = opts.AddFilterGroup(since(propertyLastModifiedDate))
	opts.SetSort(propertyLastModifiedDate, Descending)

	return opts
}

// AddFilterGroup appends a group built from filters. A fourth group, or a
// group of more than three filters, is rejected and the options left unchanged.
func (o *SearchRequestOptions) AddFilterGroup(filters ...Filter) (*FilterGroup, error) {
	if len(o.groups) >= constants.MaxFilterGroups {
		return nil, newValidationError("filterGroups", ErrTooManyFilterGroups, "options already hold %d groups", len(o.groups))
	}

	group, err := NewFilterGroup(filters...)
	if err != nil {
		return nil, err
	}

	o.groups = append(o.groups, group)

	return group, nil
}

// FilterGroups returns the groups added so far.
func (o *SearchRequestOptions) FilterGroups() []*FilterGroup {
	return slices.Clone(o.groups)
}

// SetSort replaces the sort key.
func (o *SearchRequestOptions) SetSort(property string, direction SortDirection) {
	o.sort = &Sort{PropertyName: property, Direction: direction}
}

// Sort returns the effective sort key.
func (o *SearchRequestOptions) Sort() Sort {
	if o.sort == nil {
		return DefaultSort()
	}

	return *o.sort
}

// Limit returns the page size: the explicit value, or 100 (50 with property history).
func (o *SearchRequestOptions) Limit() int {
	if o.limit != 0 {
		return o.limit
	}

	if len(o.history) > 0 {
		return constants.MaxHistoryLimit
	}

	return constants.MaxSearchLimit
}

// SetLimit sets the page size. Zero restores the default.
func (o *SearchRequestOptions) SetLimit(limit int) error {
	err := validateLimit(limit, len(o.history) > 0)
	if err != nil {
		return err
	}

	o.limit = limit

	return nil
}

// PropertiesWithHistory returns the properties whose history is requested.
func (o *SearchRequestOptions) PropertiesWithHistory() []string {
	return slices.Clone(o.history)
}

// SetPropertiesWithHistory replaces the history list. It fails, leaving the
// options unchanged, when the explicit limit exceeds the history ceiling.
func (o *SearchRequestOptions) SetPropertiesWithHistory(properties ...string) error {
	err := validateLimit(o.limit, len(properties) > 0)
	if err != nil {
		return err
	}

	o.history = slices.Clone(properties)

	return nil
}

// AddPropertyWithHistory requests the history of one more property.
func (o *SearchRequestOptions) AddPropertyWithHistory(property string) error {
	err := validateLimit(o.limit, true)
	if err != nil {
		return err
	}

	o.history = append(o.history, property)

	return nil
}

// Clone returns a deep copy.
func (o *SearchRequestOptions) Clone() *SearchRequestOptions {
	if o == nil {
		return nil
	}

	clone := *o
	clone.Properties = slices.Clone(o.Properties)
	clone.history = slices.Clone(o.history)
	clone.groups = make([]*FilterGroup, 0, len(o.groups))

	for _, group := range o.groups {
		clone.groups = append(clone.groups, &FilterGroup{filters: slices.Clone(group.filters)})
	}

	if o.sort != nil {
		sort := *o.sort
		clone.sort = &sort
	}

	return &clone
}

// GetOptions derives single-record lookup options.
func (o *SearchRequestOptions) GetOptions() *GetOptions {
	return &GetOptions{
		Properties:            slices.Clone(o.Properties),
		PropertiesWithHistory: slices.Clone(o.history),
		Archived:              o.Archived,
	}
}

type searchPayload struct {
	Query        string         `json:"query,omitempty"`
	FilterGroups []*FilterGroup `json:"filterGroups"`
	Sorts        []Sort         `json:"sorts"`
	Properties   []string       `json:"properties,omitempty"`
	Limit        int            `json:"limit"`
	After        string         `json:"after,omitempty"`
}

// MarshalJSON renders the search request body. Archived is not part of it.
func (o *SearchRequestOptions) MarshalJSON() ([]byte, error) {
	groups := o.groups
	if groups == nil {
		groups = []*FilterGroup{}
	}

	return json.Marshal(searchPayload{
		Query:        o.Query,
		FilterGroups: groups,
		Sorts:        []Sort{o.Sort()},
		Properties:   o.Properties,
		Limit:        o.Limit(),
		After:        o.Offset,
	})
}

// ListValues renders the query string of a paged GET list call.
func (o *SearchRequestOptions) ListValues() url.Values {
	values := url.Values{}
	values.Set("limit", strconv.Itoa(o.Limit()))

	if o.Offset != "" {
		values.Set("after", o.Offset)
	}

	if len(o.Properties) > 0 {
		values.Set("properties", strings.Join(o.Properties, ","))
	}

	if len(o.history) > 0 {
		values.Set("propertiesWithHistory", strings.Join(o.history, ","))
	}

	if o.Archived {
		values.Set("archived", "true")
	}

	return values
}

func validateLimit(limit int, hasHistory bool) error {
	switch {
	case limit < 0:
		return newValidationError("limit", ErrNegativeLimit, "got %d", limit)
	case limit > constants.MaxSearchLimit:
		return newValidationError("limit", ErrLimitTooHigh, "got %d", limit)
	case hasHistory && limit > constants.MaxHistoryLimit:
		return newValidationError("limit", ErrHistoryLimitTooHigh, "got %d", limit)
	default:
		return nil
	}
}

// GetOptions configures single-record and batch-read lookups.
type GetOptions struct {
	Properties            []string
	PropertiesWithHistory []string
	Associations          []string
	Archived              bool
	IDProperty            string
}

// Values renders the lookup query string.
func (g *GetOptions) Values() url.Values {
	values := url.Values{}
	if g == nil {
		return values
	}

	if len(g.Properties) > 0 {
		values.Set("properties", strings.Join(g.Properties, ","))
	}

	if len(g.PropertiesWithHistory) > 0 {
		values.Set("propertiesWithHistory", strings.Join(g.PropertiesWithHistory, ","))
	}

	if len(g.Associations) > 0 {
		values.Set("associations", strings.Join(g.Associations, ","))
	}

	if g.Archived {
		values.Set("archived", "true")
	}

	if g.IDProperty != "" {
		values.Set("idProperty", g.IDProperty)
	}

	return values
}
