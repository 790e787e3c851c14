package dialect

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

type Dialect interface {
	Name() string
	QuoteIdentifier(name string) string
	Placeholder(n int) string
	// RenderValue renders v as a literal, for logging statements only.
	RenderValue(v any) string
	SupportsILike() bool
	// UnboundedLimit is the LIMIT literal to emit before an OFFSET that has
	// no count, or "" when OFFSET may stand alone.
	UnboundedLimit() string
}

// ByName returns the dialect registered under name.
func ByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql", "pgx":
		return NewPostgresDialect(), nil
	case "mysql":
		return NewMySQLDialect(), nil
	case "tidb":
		return NewTiDBDialect(), nil
	default:
		return nil, fmt.Errorf("unknown dialect %q", name)
	}
}

func renderCommon(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "NULL", true
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'", true
	case bool:
		if val {
			return "TRUE", true
		}
		return "FALSE", true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val), true
	case float32, float64:
		return strconv.FormatFloat(reflect.ValueOf(val).Float(), 'f', -1, 64), true
	case time.Time:
		return "'" + val.Format("2006-01-02 15:04:05.000000") + "'", true
	case fmt.Stringer:
		return "'" + strings.ReplaceAll(val.String(), "'", "''") + "'", true
	}
	return "", false
}
