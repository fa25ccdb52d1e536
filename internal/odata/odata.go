// Package odata translates the OData query-string subset used by dashboard
// list endpoints ($filter, $orderby, $top, $skip, $count) into a structured,
// storage-agnostic query descriptor. Parsing is pure; applying the
// descriptor against a data store lives in the gorm adapter.
package odata

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Op string

const (
	OpEq Op = "eq"
	OpGe Op = "ge"
	OpLe Op = "le"
)

type Condition struct {
	Field string
	Op    Op
	Value interface{}
}

type OrderClause struct {
	Field      string
	Descending bool
}

// Query is the parsed descriptor. Pagination semantics: filter, then sort,
// then skip, then top. Count requests the total filtered count before
// pagination.
type Query struct {
	Filter  []Condition
	OrderBy *OrderClause
	Top     *int
	Skip    *int
	Count   bool
}

// filterFields is the allow-list for $filter. Unrecognized fields and
// operators are silently ignored rather than rejected, so callers adding
// filters ahead of the server stay forward compatible.
var filterFields = map[string]bool{
	"deliveryStatus": true,
	"qrCodeSetId":    true,
	"qrCodeId":       true,
	"registeredAt":   true,
}

// orderFields is the allow-list for $orderby.
var orderFields = map[string]bool{
	"deliveryStatus": true,
	"qrCodeSetId":    true,
	"qrCodeId":       true,
	"registeredAt":   true,
	"deliveredAt":    true,
}

var dateFields = map[string]bool{
	"registeredAt": true,
	"deliveredAt":  true,
}

// uuidFields compare against UUID columns, so malformed literals must be
// dropped at parse time instead of failing the query.
var uuidFields = map[string]bool{
	"qrCodeSetId": true,
}

// Parse maps raw query parameters to a Query descriptor.
func Parse(params url.Values) Query {
	q := Query{}

	if raw := params.Get("$filter"); raw != "" {
		q.Filter = parseFilter(raw)
	}
	if raw := params.Get("$orderby"); raw != "" {
		q.OrderBy = parseOrderBy(raw)
	}
	if raw := params.Get("$top"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			q.Top = &n
		}
	}
	if raw := params.Get("$skip"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			q.Skip = &n
		}
	}
	q.Count = strings.EqualFold(params.Get("$count"), "true")

	return q
}

func parseFilter(raw string) []Condition {
	var conditions []Condition

	for _, clause := range strings.Split(raw, " and ") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}

		parts := strings.SplitN(clause, " ", 3)
		if len(parts) != 3 {
			continue
		}

		field, op, literal := parts[0], Op(strings.ToLower(parts[1])), parts[2]
		if !filterFields[field] {
			continue
		}
		if op != OpEq && op != OpGe && op != OpLe {
			continue
		}

		value, ok := parseLiteral(field, literal)
		if !ok {
			continue
		}

		conditions = append(conditions, Condition{Field: field, Op: op, Value: value})
	}

	return conditions
}

// parseLiteral strips optional single quotes and converts date-field values
// to timestamps so comparisons are chronological, not lexical.
func parseLiteral(field, literal string) (interface{}, bool) {
	literal = strings.TrimSpace(literal)
	if len(literal) >= 2 && literal[0] == '\'' && literal[len(literal)-1] == '\'' {
		literal = literal[1 : len(literal)-1]
	}
	if literal == "" {
		return nil, false
	}

	if dateFields[field] {
		if ts, err := time.Parse(time.RFC3339, literal); err == nil {
			return ts, true
		}
		if ts, err := time.Parse("2006-01-02", literal); err == nil {
			return ts, true
		}
		return nil, false
	}

	if uuidFields[field] {
		id, err := uuid.Parse(literal)
		if err != nil {
			return nil, false
		}
		return id, true
	}

	return literal, true
}

// parseOrderBy honors only the first clause when multiple are supplied.
func parseOrderBy(raw string) *OrderClause {
	first := strings.TrimSpace(strings.Split(raw, ",")[0])
	if first == "" {
		return nil
	}

	parts := strings.Fields(first)
	if !orderFields[parts[0]] {
		return nil
	}

	clause := &OrderClause{Field: parts[0]}
	if len(parts) > 1 && strings.EqualFold(parts[1], "desc") {
		clause.Descending = true
	}
	return clause
}
