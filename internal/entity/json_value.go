package entity

import (
	"database/sql/driver"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// JSONValue is a raw JSON document stored as jsonb on postgres and as text on
// sqlite. A sqlite JSON column has numeric affinity and would hand a stored
// number back as an integer instead of its JSON text.
type JSONValue []byte

func (JSONValue) GormDataType() string {
	return "json"
}

func (JSONValue) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	switch db.Dialector.Name() {
	case "postgres":
		return "JSONB"
	case "mysql":
		return "JSON"
	}
	return "TEXT"
}

func (j JSONValue) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}

func (j *JSONValue) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append(JSONValue(nil), v...)
	case string:
		*j = JSONValue(v)
	default:
		return fmt.Errorf("unsupported JSON value type %T", value)
	}
	return nil
}

func (j JSONValue) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

func (j *JSONValue) UnmarshalJSON(data []byte) error {
	*j = append(JSONValue(nil), data...)
	return nil
}
