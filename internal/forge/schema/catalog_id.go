package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CatalogID identifies a machine or hero from the game catalog. Older save
// documents use numbers, newer ones strings; the JSON type is preserved so an
// exported document matches what was imported.
type CatalogID struct {
	Value   string
	Numeric bool
}

// NumericID returns a numeric catalog id.
func NumericID(n int64) CatalogID {
	return CatalogID{Value: strconv.FormatInt(n, 10), Numeric: true}
}

// StringID returns a string catalog id.
func StringID(s string) CatalogID {
	return CatalogID{Value: s}
}

// IsZero reports whether the id is unset.
func (id CatalogID) IsZero() bool {
	return strings.TrimSpace(id.Value) == ""
}

func (id CatalogID) String() string {
	return id.Value
}

// MarshalJSON emits a JSON number for numeric ids and a string otherwise.
func (id CatalogID) MarshalJSON() ([]byte, error) {
	if id.Numeric {
		return []byte(id.Value), nil
	}
	return json.Marshal(id.Value)
}

// UnmarshalJSON accepts a JSON string or number.
func (id *CatalogID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("catalog id is required")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode catalog id: %w", err)
		}
		*id = StringID(s)
		return nil
	}
	value, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("catalog id must be a string or number, got %s", data)
	}
	if value == math.Trunc(value) && math.Abs(value) < 1<<53 {
		*id = NumericID(int64(value))
		return nil
	}
	*id = CatalogID{Value: strconv.FormatFloat(value, 'f', -1, 64), Numeric: true}
	return nil
}
