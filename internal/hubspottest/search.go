package hubspottest

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/fivetwenty-io/hubspot-client/internal/constants"
	"github.com/fivetwenty-io/hubspot-client/pkg/hubspot"
)

type searchFilter struct {
	PropertyName string           `json:"propertyName"`
	Operator     hubspot.Operator `json:"operator"`
	Value        string           `json:"value"`
	HighValue    string           `json:"highValue"`
	Values       []string         `json:"values"`
}

type searchGroup struct {
	Filters []searchFilter `json:"filters"`
}

// SearchRequest is the body of a CRM search call.
type SearchRequest struct {
	Query        string         `json:"query"`
	FilterGroups []searchGroup  `json:"filterGroups"`
	Sorts        []hubspot.Sort `json:"sorts"`
	Properties   []string       `json:"properties"`
	Limit        int            `json:"limit"`
	After        string         `json:"after"`
}

// queryProperties are matched by a search's free-text query.
var queryProperties = map[string][]string{
	hubspot.ObjectTypeContacts:  {"firstname", "lastname", "email", "phone", "company"},
	hubspot.ObjectTypeCompanies: {"name", "domain", "website", "phone"},
	hubspot.ObjectTypeDeals:     {"dealname"},
	hubspot.ObjectTypeTickets:   {"subject", "content"},
}

func (r *SearchRequest) validate() error {
	if len(r.FilterGroups) > constants.MaxFilterGroups {
		return invalid("There was a problem with the request. maximum number of filterGroups is %d", constants.MaxFilterGroups)
	}

	for _, group := range r.FilterGroups {
		if len(group.Filters) > constants.MaxFiltersPerGroup {
			return invalid("There was a problem with the request. maximum number of filters per filterGroup is %d", constants.MaxFiltersPerGroup)
		}

		for _, filter := range group.Filters {
			if !filter.Operator.Valid() {
				return invalid("Invalid operator %q for property %s", filter.Operator, filter.PropertyName)
			}
		}
	}

	if r.Limit < 0 || r.Limit > constants.MaxSearchLimit {
		return invalid("limit must be between 0 and %d, got %d", constants.MaxSearchLimit, r.Limit)
	}

	if len(r.Sorts) > 1 {
		return invalid("There was a problem with the request. only one sort is supported")
	}

	return nil
}

// Search returns one page of live records matching req, the total match
// count and the offset of the next page ("" on the last page).
func (s *Store) Search(ctx context.Context, objectType string, req *SearchRequest) ([]*Record, int, string, error) {
	err := checkObjectType(objectType)
	if err != nil {
		return nil, 0, "", err
	}

	err = req.validate()
	if err != nil {
		return nil, 0, "", err
	}

	offset := 0
	if req.After != "" {
		offset, err = strconv.Atoi(req.After)
		if err != nil || offset < 0 {
			return nil, 0, "", invalid("after must be a non-negative integer, got %q", req.After)
		}
	}

	ids, err := s.queryIDs(ctx, "SELECT id FROM objects WHERE object_type = ? AND archived = 0 ORDER BY id", objectType)
	if err != nil {
		return nil, 0, "", err
	}

	records, err := s.loadAll(ctx, ids)
	if err != nil {
		return nil, 0, "", err
	}

	matched := make([]*Record, 0, len(records))

	for _, record := range records {
		if req.matches(objectType, record) {
			matched = append(matched, record)
		}
	}

	if len(req.Sorts) > 0 {
		sortRecords(matched, req.Sorts[0])
	}

	limit := req.Limit
	if limit == 0 {
		limit = 10
	}

	total := len(matched)
	if offset >= total {
		return []*Record{}, total, "", nil
	}

	end := min(offset+limit, total)

	next := ""
	if end < total {
		next = strconv.Itoa(end)
	}

	return matched[offset:end], total, next, nil
}

func (r *SearchRequest) matches(objectType string, record *Record) bool {
	if r.Query != "" && !matchesQuery(objectType, r.Query, record) {
		return false
	}

	if len(r.FilterGroups) == 0 {
		return true
	}

	for _, group := range r.FilterGroups {
		if group.matches(record) {
			return true
		}
	}

	return false
}

func matchesQuery(objectType, query string, record *Record) bool {
	query = strings.ToLower(query)

	for _, name := range queryProperties[objectType] {
		if strings.Contains(strings.ToLower(record.Properties[name]), query) {
			return true
		}
	}

	return false
}

func (g searchGroup) matches(record *Record) bool {
	for _, filter := range g.Filters {
		if !filter.matches(record) {
			return false
		}
	}

	return true
}

//nolint:cyclop // One branch per operator
func (f searchFilter) matches(record *Record) bool {
	value, present := record.Properties[f.PropertyName]
	present = present && value != ""

	switch f.Operator {
	case hubspot.OperatorHasProperty:
		return present
	case hubspot.OperatorNotHasProperty:
		return !present
	case hubspot.OperatorEQ:
		return present && compareValues(value, f.Value) == 0
	case hubspot.OperatorNEQ:
		return !present || compareValues(value, f.Value) != 0
	case hubspot.OperatorLT:
		return present && compareValues(value, f.Value) < 0
	case hubspot.OperatorLTE:
		return present && compareValues(value, f.Value) <= 0
	case hubspot.OperatorGT:
		return present && compareValues(value, f.Value) > 0
	case hubspot.OperatorGTE:
		return present && compareValues(value, f.Value) >= 0
	case hubspot.OperatorBetween:
		return present && compareValues(value, f.Value) >= 0 && compareValues(value, f.HighValue) <= 0
	case hubspot.OperatorIn:
		return present && containsValue(f.Values, value)
	case hubspot.OperatorNotIn:
		return !present || !containsValue(f.Values, value)
	case hubspot.OperatorContainsToken:
		return present && containsToken(value, f.Value)
	case hubspot.OperatorNotContainsToken:
		return !present || !containsToken(value, f.Value)
	default:
		return false
	}
}

func containsValue(values []string, value string) bool {
	for _, candidate := range values {
		if compareValues(value, candidate) == 0 {
			return true
		}
	}

	return false
}

// containsToken matches a word of value, with '*' standing for any run of characters.
func containsToken(value, token string) bool {
	token = strings.ToLower(token)
	value = strings.ToLower(value)

	if strings.Contains(token, "*") {
		return strings.Contains(value, strings.Trim(token, "*"))
	}

	for _, word := range strings.FieldsFunc(value, func(r rune) bool {
		return r == ' ' || r == ',' || r == '@' || r == '.' || r == '-' || r == '_'
	}) {
		if word == token {
			return true
		}
	}

	return false
}

// compareValues orders two property values as numbers, then as times, then
// as case-insensitive strings.
func compareValues(a, b string) int {
	x, errA := strconv.ParseFloat(a, 64)
	y, errB := strconv.ParseFloat(b, 64)

	if errA == nil && errB == nil {
		return compareFloats(x, y)
	}

	ta, errA := hubspot.ParseTime(a)
	tb, errB := hubspot.ParseTime(b)

	if errA == nil && errB == nil {
		return ta.Compare(tb)
	}

	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func compareFloats(x, y float64) int {
	switch {
	case math.Abs(x-y) < 1e-9:
		return 0
	case x < y:
		return -1
	default:
		return 1
	}
}
