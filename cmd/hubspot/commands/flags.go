package commands

import (
	"fmt"
	"strings"

	"github.com/fivetwenty-io/hubspot-client/internal/constants"
	"github.com/fivetwenty-io/hubspot-client/pkg/hubspot"
)

// parseProperties turns repeated name=value flags into a property bag. An
// empty value ("name=") clears the property on update.
func parseProperties(values []string) (hubspot.Properties, error) {
	props := hubspot.Properties{}

	for _, value := range values {
		name, v, ok := strings.Cut(value, "=")

		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q", constants.ErrInvalidPropertyFlag, value)
		}

		props[name] = v
	}

	return props, nil
}

// parseFilter reads property:OPERATOR[:value[:highValue]]. IN and NOT_IN take
// a comma separated value list.
func parseFilter(value string) (hubspot.Filter, error) {
	parts := strings.SplitN(value, ":", 4)
	if len(parts) < 2 || parts[0] == "" {
		return hubspot.Filter{}, fmt.Errorf("%w: %q", constants.ErrInvalidFilterFlag, value)
	}

	filter := hubspot.Filter{
		PropertyName: parts[0],
		Operator:     hubspot.Operator(strings.ToUpper(parts[1])),
	}

	if !filter.Operator.Valid() {
		return hubspot.Filter{}, fmt.Errorf("%w: unknown operator %q", constants.ErrInvalidFilterFlag, parts[1])
	}

	if len(parts) > 2 {
		switch filter.Operator {
		case hubspot.OperatorIn, hubspot.OperatorNotIn:
			filter.Values = strings.Split(parts[2], ",")
		default:
			filter.Value = parts[2]
		}
	}

	if len(parts) > 3 {
		filter.HighValue = parts[3]
	}

	return filter, nil
}

// parseSort reads property[:ASCENDING|DESCENDING]; the direction defaults to descending.
func parseSort(value string) (string, hubspot.SortDirection, error) {
	property, direction, _ := strings.Cut(value, ":")
	if property == "" {
		return "", "", fmt.Errorf("%w: %q", constants.ErrInvalidSortFlag, value)
	}

	switch strings.ToUpper(direction) {
	case "", "DESC", string(hubspot.Descending):
		return property, hubspot.Descending, nil
	case "ASC", string(hubspot.Ascending):
		return property, hubspot.Ascending, nil
	default:
		return "", "", fmt.Errorf("%w: %q", constants.ErrInvalidSortFlag, value)
	}
}

// searchOptions assembles search options from the search command flags. All
// filters go into one AND group.
func searchOptions(query string, filters []string, sortFlag string, limit int, properties []string) (*hubspot.SearchRequestOptions, error) {
	opts := hubspot.NewSearchRequestOptions()
	opts.Query = query
	opts.Properties = properties

	if len(filters) > 0 {
		parsed := make([]hubspot.Filter, 0, len(filters))

		for _, value := range filters {
			filter, err := parseFilter(value)
			if err != nil {
				return nil, err
			}

			parsed = append(parsed, filter)
		}

		_, err := opts.AddFilterGroup(parsed...)
		if err != nil {
			return nil, err
		}
	}

	if sortFlag != "" {
		property, direction, err := parseSort(sortFlag)
		if err != nil {
			return nil, err
		}

		opts.SetSort(property, direction)
	}

	if limit > 0 {
		err := opts.SetLimit(limit)
		if err != nil {
			return nil, err
		}
	}

	return opts, nil
}
