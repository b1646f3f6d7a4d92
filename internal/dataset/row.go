package dataset

import (
	"database/sql/driver"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// nullMarkers are the textual spellings treated as a missing value when read
// from CSV exports and database dumps.
var nullMarkers = map[string]bool{
	"":     true,
	"nan":  true,
	"null": true,
	"none": true,
	"na":   true,
	"n/a":  true,
	"<na>": true,
	"nat":  true,
}

// IsNull reports whether v is a missing value.
func IsNull(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return nullMarkers[strings.ToLower(strings.TrimSpace(x))]
	case []byte:
		return nullMarkers[strings.ToLower(strings.TrimSpace(string(x)))]
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	case *int64:
		return x == nil
	case *int:
		return x == nil
	case *string:
		return x == nil
	case *time.Time:
		return x == nil
	case decimal.NullDecimal:
		return !x.Valid
	}
	return false
}

// Row is a typed read accessor over one table row.
type Row struct {
	table  *Table
	values []any
}

// Value returns the raw cell for column, or false when the column is absent
// or the cell is missing.
func (r Row) Value(column string) (any, bool) {
	i := r.table.Index(column)
	if i < 0 || i >= len(r.values) {
		return nil, false
	}
	v := r.values[i]
	if valuer, ok := v.(driver.Valuer); ok {
		dv, err := valuer.Value()
		if err != nil {
			return nil, false
		}
		v = dv
	}
	if IsNull(v) {
		return nil, false
	}
	return v, true
}

// String returns the trimmed textual form of the cell.
func (r Row) String(column string) (string, bool) {
	v, ok := r.Value(column)
	if !ok {
		return "", false
	}
	s := strings.TrimSpace(Format(v))
	if s == "" {
		return "", false
	}
	return s, true
}

// Int returns the cell as an integer. Integral floats such as "123.0" are
// accepted since numeric columns with gaps are often exported as floats.
func (r Row) Int(column string) (int64, bool) {
	v, ok := r.Value(column)
	if !ok {
		return 0, false
	}
	return toInt(v)
}

// Decimal returns the cell as a decimal.
func (r Row) Decimal(column string) (decimal.Decimal, bool) {
	v, ok := r.Value(column)
	if !ok {
		return decimal.Decimal{}, false
	}
	switch x := v.(type) {
	case decimal.Decimal:
		return x, true
	case int64:
		return decimal.NewFromInt(x), true
	case int:
		return decimal.NewFromInt(int64(x)), true
	case int32:
		return decimal.NewFromInt32(x), true
	case float64:
		if math.IsInf(x, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(x), true
	case float32:
		return decimal.NewFromFloat32(x), true
	}
	d, err := decimal.NewFromString(strings.TrimSpace(Format(v)))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// Time returns the cell as a timestamp, parsing text with ParseTime.
func (r Row) Time(column string) (time.Time, bool) {
	v, ok := r.Value(column)
	if !ok {
		return time.Time{}, false
	}
	if t, ok := v.(time.Time); ok {
		return t, true
	}
	return ParseTime(Format(v))
}

func toInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case float64:
		return floatToInt(x)
	case float32:
		return floatToInt(float64(x))
	case decimal.Decimal:
		if !x.Equal(x.Truncate(0)) {
			return 0, false
		}
		return x.IntPart(), true
	}
	s := strings.TrimSpace(Format(v))
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return floatToInt(f)
}

func floatToInt(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// timeLayouts are tried in order by ParseTime.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999 MST",
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-01",
	"02/01/2006",
}

// ParseTime parses the timestamp spellings found in the raw exports.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Format renders a cell value as text. Missing values render as "".
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case float64:
		if math.IsNaN(x) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	case decimal.Decimal:
		return x.String()
	case decimal.NullDecimal:
		if !x.Valid {
			return ""
		}
		return x.Decimal.String()
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format("2006-01-02 15:04:05")
	case *int64:
		if x == nil {
			return ""
		}
		return strconv.FormatInt(*x, 10)
	case *int:
		if x == nil {
			return ""
		}
		return strconv.Itoa(*x)
	case *string:
		if x == nil {
			return ""
		}
		return *x
	case *time.Time:
		if x == nil {
			return ""
		}
		return Format(*x)
	}
	return fmt.Sprint(v)
}
