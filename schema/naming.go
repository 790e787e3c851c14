package schema

import (
	"strings"
	"unicode"

	pluralizer "github.com/gertd/go-pluralize"
)

var pluralizeClient = pluralizer.NewClient()

// formatName converts a Go identifier to its snake_case column form.
func formatName(name string) string {
	return toSnakeCase(name)
}

// tableName derives the default table name of a struct: snake_case with the
// last word pluralized, so OrderItem becomes order_items.
func tableName(structName string) string {
	snake := toSnakeCase(structName)
	if snake == "" {
		return ""
	}
	head, last := "", snake
	if i := strings.LastIndexByte(snake, '_'); i >= 0 {
		head, last = snake[:i+1], snake[i+1:]
	}
	return head + strings.ToLower(pluralizeClient.Plural(last))
}

// foreignKeyName is the conventional foreign key column pointing at a struct.
func foreignKeyName(structName string) string {
	return toSnakeCase(structName) + "_id"
}

// toSnakeCase handles acronyms and digits: UserID -> user_id,
// HTTPServer -> http_server, OAuth2Token -> o_auth2_token.
func toSnakeCase(name string) string {
	if name == "" {
		return ""
	}
	if strings.Contains(name, "_") && !hasUpperCase(name) {
		return name
	}

	runes := []rune(name)
	var b strings.Builder
	b.Grow(len(name) + 4)

	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func hasUpperCase(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}
