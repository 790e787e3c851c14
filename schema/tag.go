package schema

import (
	"fmt"
	"reflect"
	"strings"
)

// ParsedTag is the parsed form of a `db` struct tag.
//
// Supported syntax:
//
//	`db:"column_name"`             // column mapping
//	`db:"column:custom_name"`      // explicit column name
//	`db:"primary"`                 // primary key
//	`db:"fk:buyer_id"`             // foreign key column of a relation field
//	`db:"-"`                       // skip field
type ParsedTag struct {
	ColumnName string
	Skip       bool
	Primary    bool
	ForeignKey string
}

// ParseTag parses the `db` tag of a field. An empty tag yields the snake_case
// column name of the field.
func ParseTag(fieldName string, tag reflect.StructTag) (*ParsedTag, error) {
	value := strings.TrimSpace(tag.Get("db"))
	parsed := &ParsedTag{ColumnName: formatName(fieldName)}

	switch {
	case value == "":
		return parsed, nil
	case value == "-":
		return &ParsedTag{Skip: true}, nil
	case !strings.ContainsAny(value, ";:") && value != "primary":
		parsed.ColumnName = value
		return parsed, nil
	}

	for _, option := range strings.Split(value, ";") {
		option = strings.TrimSpace(option)
		if option == "" {
			continue
		}
		if err := parseOption(parsed, option); err != nil {
			return nil, fmt.Errorf("field %s: %w", fieldName, err)
		}
	}
	return parsed, nil
}

func parseOption(tag *ParsedTag, option string) error {
	key, value, hasValue := strings.Cut(option, ":")
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)

	if !hasValue {
		switch key {
		case "primary", "primary_key":
			tag.Primary = true
		}
		// Unknown flags are ignored for forward compatibility.
		return nil
	}

	if value == "" {
		return fmt.Errorf("empty value for tag option %q", key)
	}
	switch key {
	case "column":
		tag.ColumnName = value
	case "fk", "foreign_key":
		tag.ForeignKey = value
	}
	return nil
}
