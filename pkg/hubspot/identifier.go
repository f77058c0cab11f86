package hubspot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// IdentifierKind reports which form an Identifier holds.
type IdentifierKind int

const (
	// IdentifierNone is the zero Identifier.
	IdentifierNone IdentifierKind = iota
	// IdentifierNumeric is a platform-assigned record id.
	IdentifierNumeric
	// IdentifierNamed is a caller-chosen unique property value, e.g. an email address.
	IdentifierNamed
)

// Identifier is either a numeric HubSpot record id or the value of a unique
// property. Any value that parses as a 64-bit integer is numeric.
type Identifier struct {
	kind    IdentifierKind
	numeric int64
	named   string
}

// NumericID returns a numeric identifier. Zero yields the empty Identifier.
func NumericID(id int64) Identifier {
	if id == 0 {
		return Identifier{}
	}

	return Identifier{kind: IdentifierNumeric, numeric: id}
}

// NamedID returns a unique-property identifier. The numeric form still wins
// when value parses as an integer.
func NamedID(value string) Identifier {
	return ParseIdentifier(value)
}

// ParseIdentifier converts a wire or user supplied value to an Identifier.
func ParseIdentifier(value string) Identifier {
	if value == "" {
		return Identifier{}
	}

	id, err := strconv.ParseInt(value, 10, 64)
	if err == nil {
		return NumericID(id)
	}

	return Identifier{kind: IdentifierNamed, named: value}
}

// Kind reports which variant is held.
func (i Identifier) Kind() IdentifierKind {
	return i.kind
}

// IsZero reports whether no identifier is set.
func (i Identifier) IsZero() bool {
	return i.kind == IdentifierNone
}

// IsNumeric reports whether i holds a platform id.
func (i Identifier) IsNumeric() bool {
	return i.kind == IdentifierNumeric
}

// IsNamed reports whether i holds a unique-property value.
func (i Identifier) IsNamed() bool {
	return i.kind == IdentifierNamed
}

// Equal reports whether both identifiers hold the same variant and value.
func (i Identifier) Equal(other Identifier) bool {
	return i == other
}

// Int64 returns the numeric id, or 0 for named and empty identifiers.
func (i Identifier) Int64() int64 {
	return i.numeric
}

// Name returns the unique-property value, or "" for numeric identifiers.
func (i Identifier) Name() string {
	return i.named
}

// String renders the identifier the way the API expects it in paths and bodies.
func (i Identifier) String() string {
	switch i.kind {
	case IdentifierNumeric:
		return strconv.FormatInt(i.numeric, 10)
	case IdentifierNamed:
		return i.named
	default:
		return ""
	}
}

// MarshalJSON encodes the identifier as a JSON string; HubSpot sends ids as strings.
func (i Identifier) MarshalJSON() ([]byte, error) {
	if i.IsZero() {
		return []byte("null"), nil
	}

	return json.Marshal(i.String())
}

// MarshalYAML renders the identifier as a plain scalar.
func (i Identifier) MarshalYAML() (interface{}, error) {
	return i.String(), nil
}

// UnmarshalJSON accepts a JSON string, a JSON number, or null.
func (i *Identifier) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*i = Identifier{}

		return nil
	}

	if data[0] == '"' {
		var s string

		err := json.Unmarshal(data, &s)
		if err != nil {
			return fmt.Errorf("parsing identifier: %w", err)
		}

		*i = ParseIdentifier(s)

		return nil
	}

	var n json.Number

	err := json.Unmarshal(data, &n)
	if err != nil {
		return fmt.Errorf("parsing identifier: %w", err)
	}

	*i = ParseIdentifier(n.String())

	return nil
}
