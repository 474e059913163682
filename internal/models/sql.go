package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// CheckDetails is the stored sequence of check results, persisted as JSONB.
type CheckDetails []CheckResult

// Value implements driver.Valuer for JSONB storage.
func (s StepStatus) Value() (driver.Value, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner for JSONB retrieval.
func (s *StepStatus) Scan(src interface{}) error {
	return scanJSON(src, s, "step_status")
}

// Value implements driver.Valuer for JSONB storage.
func (d CheckDetails) Value() (driver.Value, error) {
	if d == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner for JSONB retrieval.
func (d *CheckDetails) Scan(src interface{}) error {
	return scanJSON(src, d, "check_details")
}

func scanJSON(src, dest interface{}, column string) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("cannot scan %T into %s", src, column)
	}
}
