package dialect

import (
	"fmt"
	"strings"
)

type MySQL struct{}

func NewMySQLDialect() Dialect {
	return &MySQL{}
}

func (MySQL) Name() string { return "mysql" }

func (MySQL) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (MySQL) Placeholder(int) string {
	return "?"
}

func (MySQL) RenderValue(v any) string {
	if s, ok := renderCommon(v); ok {
		return s
	}
	if b, ok := v.([]byte); ok {
		return fmt.Sprintf("X'%x'", b)
	}
	return "'" + strings.ReplaceAll(fmt.Sprint(v), "'", "''") + "'"
}

func (MySQL) SupportsILike() bool { return false }

// UnboundedLimit is the largest BIGINT UNSIGNED; MySQL has no bare OFFSET.
func (MySQL) UnboundedLimit() string { return "18446744073709551615" }
