package odata

import (
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFullQuery(t *testing.T) {
	params := url.Values{
		"$filter":  {"deliveryStatus eq pending"},
		"$orderby": {"registeredAt desc"},
		"$top":     {"10"},
		"$skip":    {"5"},
		"$count":   {"true"},
	}

	q := Parse(params)

	require.Len(t, q.Filter, 1)
	assert.Equal(t, "deliveryStatus", q.Filter[0].Field)
	assert.Equal(t, OpEq, q.Filter[0].Op)
	assert.Equal(t, "pending", q.Filter[0].Value)

	require.NotNil(t, q.OrderBy)
	assert.Equal(t, "registeredAt", q.OrderBy.Field)
	assert.True(t, q.OrderBy.Descending)

	require.NotNil(t, q.Top)
	assert.Equal(t, 10, *q.Top)
	require.NotNil(t, q.Skip)
	assert.Equal(t, 5, *q.Skip)
	assert.True(t, q.Count)
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		want   []Condition
	}{
		{
			name:   "quoted literal",
			filter: "deliveryStatus eq 'delivered'",
			want:   []Condition{{Field: "deliveryStatus", Op: OpEq, Value: "delivered"}},
		},
		{
			name:   "multiple clauses joined by and",
			filter: "deliveryStatus eq pending and qrCodeId eq entrance-a",
			want: []Condition{
				{Field: "deliveryStatus", Op: OpEq, Value: "pending"},
				{Field: "qrCodeId", Op: OpEq, Value: "entrance-a"},
			},
		},
		{
			name:   "date literal parsed as timestamp",
			filter: "registeredAt ge 2026-01-15",
			want: []Condition{
				{Field: "registeredAt", Op: OpGe, Value: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)},
			},
		},
		{
			name:   "rfc3339 date literal",
			filter: "registeredAt le 2026-01-15T10:30:00Z",
			want: []Condition{
				{Field: "registeredAt", Op: OpLe, Value: time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)},
			},
		},
		{
			// Silent ignoring is deliberate: unknown fields must not error
			// so older servers tolerate newer clients.
			name:   "unknown field ignored",
			filter: "favouriteColor eq blue and deliveryStatus eq pending",
			want:   []Condition{{Field: "deliveryStatus", Op: OpEq, Value: "pending"}},
		},
		{
			name:   "unknown operator ignored",
			filter: "deliveryStatus ne pending",
			want:   nil,
		},
		{
			name:   "malformed clause ignored",
			filter: "deliveryStatus",
			want:   nil,
		},
		{
			name:   "unparseable date ignored",
			filter: "registeredAt ge not-a-date",
			want:   nil,
		},
		{
			name:   "set id literal parsed as uuid",
			filter: "qrCodeSetId eq 'a2f1e5c0-9d42-4b7a-8f11-3c5d2e6b9a04'",
			want: []Condition{
				{Field: "qrCodeSetId", Op: OpEq, Value: uuid.MustParse("a2f1e5c0-9d42-4b7a-8f11-3c5d2e6b9a04")},
			},
		},
		{
			// A bad id must never reach the UUID column as a raw string
			name:   "malformed set id ignored",
			filter: "qrCodeSetId eq oops and deliveryStatus eq pending",
			want:   []Condition{{Field: "deliveryStatus", Op: OpEq, Value: "pending"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Parse(url.Values{"$filter": {tt.filter}})
			assert.Equal(t, tt.want, q.Filter)
		})
	}
}

func TestParseOrderBy(t *testing.T) {
	t.Run("only first clause honored", func(t *testing.T) {
		q := Parse(url.Values{"$orderby": {"registeredAt desc, deliveryStatus asc"}})
		require.NotNil(t, q.OrderBy)
		assert.Equal(t, "registeredAt", q.OrderBy.Field)
		assert.True(t, q.OrderBy.Descending)
	})

	t.Run("defaults to ascending", func(t *testing.T) {
		q := Parse(url.Values{"$orderby": {"deliveryStatus"}})
		require.NotNil(t, q.OrderBy)
		assert.False(t, q.OrderBy.Descending)
	})

	t.Run("unknown field ignored", func(t *testing.T) {
		q := Parse(url.Values{"$orderby": {"secretField desc"}})
		assert.Nil(t, q.OrderBy)
	})
}

func TestParsePagination(t *testing.T) {
	t.Run("negative values ignored", func(t *testing.T) {
		q := Parse(url.Values{"$top": {"-1"}, "$skip": {"-5"}})
		assert.Nil(t, q.Top)
		assert.Nil(t, q.Skip)
	})

	t.Run("non-numeric values ignored", func(t *testing.T) {
		q := Parse(url.Values{"$top": {"ten"}, "$skip": {""}})
		assert.Nil(t, q.Top)
		assert.Nil(t, q.Skip)
	})

	t.Run("count false by default", func(t *testing.T) {
		q := Parse(url.Values{})
		assert.False(t, q.Count)
	})
}
