package search

import (
	"fmt"
	"strconv"
	"strings"
)

// Op is a filter comparison operator.
type Op string

const (
	OpEq  Op = "="
	OpGte Op = ">="
	OpLte Op = "<="
)

// Filter is a structural condition on a filterable attribute. Value is a
// string, a bool or a number.
type Filter struct {
	Field string
	Op    Op
	Value interface{}
}

// Eq matches documents whose field equals v.
func Eq(field string, v interface{}) Filter { return Filter{Field: field, Op: OpEq, Value: v} }

// Gte matches documents whose field is at least v.
func Gte(field string, v interface{}) Filter { return Filter{Field: field, Op: OpGte, Value: v} }

// Lte matches documents whose field is at most v.
func Lte(field string, v interface{}) Filter { return Filter{Field: field, Op: OpLte, Value: v} }

// String renders the filter in Meilisearch filter syntax, e.g.
// `status = "AVAILABLE"` or `price >= 1500000`.
func (f Filter) String() string {
	return fmt.Sprintf("%s %s %s", f.Field, f.Op, formatValue(f.Value))
}

// JoinFilters AND-s filters into one Meilisearch filter expression.
func JoinFilters(filters []Filter) string {
	parts := make([]string, len(filters))
	for i, f := range filters {
		parts[i] = f.String()
	}
	return strings.Join(parts, " AND ")
}

func formatValue(v interface{}) string {
	switch x := v.(type) {
	case string:
		return quote(x)
	case fmt.Stringer:
		return quote(x.String())
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	default:
		return quote(fmt.Sprint(x))
	}
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func quote(s string) string {
	return `"` + quoteEscaper.Replace(s) + `"`
}
