package odata

import (
	"gorm.io/gorm"
)

// columns maps API field names to registration table columns.
var columns = map[string]string{
	"deliveryStatus": "delivery_status",
	"qrCodeSetId":    "qr_code_set_id",
	"qrCodeId":       "qr_code_id",
	"registeredAt":   "registered_at",
	"deliveredAt":    "delivered_at",
}

// ApplyFilter applies only the filter conditions. Used for the $count total,
// which covers the filtered but unpaginated result set.
func ApplyFilter(db *gorm.DB, q Query) *gorm.DB {
	for _, cond := range q.Filter {
		col, ok := columns[cond.Field]
		if !ok {
			continue
		}
		switch cond.Op {
		case OpEq:
			db = db.Where(col+" = ?", cond.Value)
		case OpGe:
			db = db.Where(col+" >= ?", cond.Value)
		case OpLe:
			db = db.Where(col+" <= ?", cond.Value)
		}
	}
	return db
}

// Apply applies the full descriptor in order: filter, sort, skip, top.
func Apply(db *gorm.DB, q Query) *gorm.DB {
	db = ApplyFilter(db, q)

	if q.OrderBy != nil {
		if col, ok := columns[q.OrderBy.Field]; ok {
			dir := "ASC"
			if q.OrderBy.Descending {
				dir = "DESC"
			}
			db = db.Order(col + " " + dir)
		}
	} else {
		db = db.Order("registered_at DESC")
	}

	if q.Skip != nil {
		db = db.Offset(*q.Skip)
	}
	if q.Top != nil {
		db = db.Limit(*q.Top)
	}

	return db
}
