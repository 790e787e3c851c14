package dialect

import (
	"fmt"
	"strconv"
	"strings"
)

type Postgres struct{}

func NewPostgresDialect() Dialect {
	return &Postgres{}
}

func (Postgres) Name() string { return "postgres" }

func (Postgres) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (Postgres) Placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func (Postgres) RenderValue(v any) string {
	if s, ok := renderCommon(v); ok {
		return s
	}
	if b, ok := v.([]byte); ok {
		return fmt.Sprintf(`'\x%x'`, b) // bytea hex format
	}
	return "'" + strings.ReplaceAll(fmt.Sprint(v), "'", "''") + "'"
}

func (Postgres) SupportsILike() bool { return true }

func (Postgres) UnboundedLimit() string { return "" }
