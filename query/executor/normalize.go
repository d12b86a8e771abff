package executor

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/satishbabariya/quarry/query/qerr"
)

// NormalizeRow maps one scanned row into portable values, keyed by the
// statement's output column names.
func NormalizeRow(columns, dbTypes []string, values []any) (Row, error) {
	row := make(Row, len(columns))
	for i, col := range columns {
		v, err := NormalizeCell(col, dbTypes[i], values[i])
		if err != nil {
			return nil, err
		}
		row[col] = v
	}
	return row, nil
}

// NormalizeCell maps a single driver value into the portable set: float64
// for all numbers, string for text, time.Time for timestamps, nil for SQL
// NULL. Exact integers convert to float64, so values wider than 53 bits
// lose precision. NUMERIC cells arrive as text and round to the nearest
// float. Anything else fails with an unrecognized-cell error.
func NormalizeCell(column, dbType string, v any) (any, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case time.Time:
		return v, nil
	case string:
		if isDecimalType(dbType) {
			return decimalToFloat(column, v)
		}
		return v, nil
	case []byte:
		if isDecimalType(dbType) {
			return decimalToFloat(column, string(v))
		}
		return string(v), nil
	}
	return nil, qerr.NewUnrecognizedCellError(column, v)
}

func isDecimalType(dbType string) bool {
	return dbType == "NUMERIC" || dbType == "DECIMAL"
}

func decimalToFloat(column, s string) (any, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, qerr.NewUnrecognizedCellError(column, s)
	}
	f, _ := d.Float64()
	return f, nil
}
