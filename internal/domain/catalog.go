package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Department represents one node of the upstream department tree.
// The upstream ID doubles as the primary key.
type Department struct {
	ID           int       `gorm:"primaryKey;autoIncrement:false" json:"id"`
	ParentID     *int      `json:"parent_id,omitempty"`
	Name         string    `gorm:"type:text;not null" json:"name"`
	Path         string    `gorm:"type:text" json:"path"`
	StoreID      int       `gorm:"index" json:"store_id"`
	Count        int       `json:"count"`
	CanonicalURL string    `gorm:"type:text" json:"canonical_url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for Department.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (Department) TableName() string {
	return "departments"
}

// Product represents one catalog item as known to this system. Rows are
// created as bare stubs when an item is first listed and filled in once
// its detail has been fetched.
type Product struct {
	ID              int64      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	StoreID         int        `json:"store_id"`
	DepartmentID    int        `gorm:"index" json:"department_id"`
	Name            string     `gorm:"type:text" json:"name"`
	UnitPrice       float64    `json:"unit_price"`
	Popularity      int        `json:"popularity"`
	UPC             string     `gorm:"type:text" json:"upc"`
	CanonicalURL    string     `gorm:"type:text" json:"canonical_url"`
	RemoteUpdatedAt *time.Time `json:"remote_updated_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Product.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (Product) TableName() string {
	return "products"
}

// JSONPayload stores a raw JSON document as text in the database.
type JSONPayload json.RawMessage

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON text, or "{}" when empty.
//   - error: always nil.
func (p JSONPayload) Value() (driver.Value, error) {
	if len(p) == 0 {
		return "{}", nil
	}
	return string(p), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if the type is unexpected.
func (p *JSONPayload) Scan(value interface{}) error {
	if value == nil {
		*p = JSONPayload("{}")
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*p = JSONPayload(append([]byte(nil), v...))
	case string:
		*p = JSONPayload(v)
	default:
		return errors.New("failed to scan JSONPayload")
	}
	return nil
}

// MarshalJSON returns the payload verbatim so snapshots render as objects,
// not base64 strings.
func (p JSONPayload) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte("null"), nil
	}
	return p, nil
}

// UnmarshalJSON stores the raw document verbatim.
func (p *JSONPayload) UnmarshalJSON(data []byte) error {
	*p = JSONPayload(append([]byte(nil), data...))
	return nil
}

// ProductSnapshot holds the full upstream payload of one fetched item
// detail, keyed by the item ID so re-fetching updates in place.
type ProductSnapshot struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	SnapshotKey string      `gorm:"type:text;not null;uniqueIndex:idx_snapshots_key" json:"snapshot_key"`
	Payload     JSONPayload `gorm:"type:text;not null" json:"payload"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// TableName returns the database table name for ProductSnapshot.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (ProductSnapshot) TableName() string {
	return "product_snapshots"
}
