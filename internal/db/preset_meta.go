package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// PresetMeta records the preview settings a preset was saved with. It is
// stored in a JSONB column.
type PresetMeta struct {
	Frame    int    `json:"frame"`
	Gain     int    `json:"gain"`
	Seed     uint32 `json:"seed"`
	Source   string `json:"source,omitempty"`
	BitDepth int    `json:"bit_depth,omitempty"`
}

// Scan implements sql.Scanner for reading from the database.
func (m *PresetMeta) Scan(value any) error {
	if value == nil {
		*m = PresetMeta{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	case map[string]any:
		// pgx decodes jsonb into a map when scanning into any
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, m)
	default:
		return fmt.Errorf("db.PresetMeta.Scan: expected []byte or string, got %T", value)
	}
}

// Value implements driver.Valuer for writing to the database.
func (m PresetMeta) Value() (driver.Value, error) {
	return json.Marshal(m)
}
