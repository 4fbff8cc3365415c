package salesagg

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// SaleRecord is one decoded row of the sales log.
type SaleRecord struct {
	ID         int64
	OrderID    int64
	CustomerID int64
	Total      float64
	Date       time.Time
	// Extra holds every column the schema does not type, as raw text.
	Extra map[string]string
}

// Field identifies which SaleRecord field a column decodes into.
type Field int

const (
	FieldID Field = iota
	FieldOrderID
	FieldCustomerID
	FieldTotal
	FieldDate
)

// Kind is the declared target type of a column decoder.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindTime:
		return "time"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Column declares how one named header column is decoded.
type Column struct {
	Name     string
	Field    Field
	Kind     Kind
	Required bool
}

// Schema is the typed decoder table, keyed by header name.
type Schema struct {
	Columns []Column
}

// ColumnNames lets callers rename the typed columns.
type ColumnNames struct {
	ID         string
	OrderID    string
	CustomerID string
	Total      string
	Date       string
}

// DefaultColumnNames matches the header written by Generate.
func DefaultColumnNames() ColumnNames {
	return ColumnNames{
		ID:         "ID",
		OrderID:    "order_id",
		CustomerID: "customer_id",
		Total:      "total",
		Date:       "fecha",
	}
}

// NewSchema builds the decoder table. Identifier columns are optional; total
// and date are required. An empty identifier name drops that column from the
// table so it passes through untyped.
func NewSchema(names ColumnNames) Schema {
	var cols []Column
	add := func(name string, f Field, k Kind, required bool) {
		if name == "" && !required {
			return
		}
		cols = append(cols, Column{Name: name, Field: f, Kind: k, Required: required})
	}
	add(names.ID, FieldID, KindInt, false)
	add(names.OrderID, FieldOrderID, KindInt, false)
	add(names.CustomerID, FieldCustomerID, KindInt, false)
	add(names.Total, FieldTotal, KindFloat, true)
	add(names.Date, FieldDate, KindTime, true)
	return Schema{Columns: cols}
}

// DefaultSchema is NewSchema(DefaultColumnNames()).
func DefaultSchema() Schema {
	return NewSchema(DefaultColumnNames())
}

// Binding maps header positions to schema columns. A nil entry means the
// column passes through into SaleRecord.Extra.
type Binding struct {
	header []string
	slots  []*Column
	extras int
}

// Bind validates a header row against the schema once, before any data row is
// decoded.
func (s Schema) Bind(header []string) (*Binding, error) {
	seen := make(map[string]int, len(header))
	for i, h := range header {
		if j, ok := seen[h]; ok {
			return nil, &ParseError{Line: 1, Column: h, Err: fmt.Errorf("%w at positions %d and %d", ErrDuplicateColumn, j+1, i+1)}
		}
		seen[h] = i
	}

	b := &Binding{header: header, slots: make([]*Column, len(header))}
	for i := range s.Columns {
		col := &s.Columns[i]
		pos, ok := seen[col.Name]
		if !ok {
			if col.Required {
				return nil, &ParseError{Line: 1, Column: col.Name, Err: ErrMissingColumn}
			}
			continue
		}
		b.slots[pos] = col
	}
	for _, c := range b.slots {
		if c == nil {
			b.extras++
		}
	}
	return b, nil
}

// Header returns the bound header row.
func (b *Binding) Header() []string { return b.header }

// decode fills rec from one csv row. The returned column name identifies the
// first value that failed its decoder.
func (b *Binding) decode(row []string, loc *time.Location, rec *SaleRecord) (string, error) {
	*rec = SaleRecord{}
	if b.extras > 0 {
		rec.Extra = make(map[string]string, b.extras)
	}
	for i, v := range row {
		col := b.slots[i]
		if col == nil {
			rec.Extra[b.header[i]] = v
			continue
		}
		if err := col.decodeInto(rec, v, loc); err != nil {
			return col.Name, err
		}
	}
	return "", nil
}

func (c *Column) decodeInto(rec *SaleRecord, v string, loc *time.Location) error {
	switch c.Kind {
	case KindInt:
		n, err := parseInt(v)
		if err != nil {
			return err
		}
		switch c.Field {
		case FieldID:
			rec.ID = n
		case FieldOrderID:
			rec.OrderID = n
		case FieldCustomerID:
			rec.CustomerID = n
		}
	case KindFloat:
		f, err := parseAmount(v)
		if err != nil {
			return err
		}
		rec.Total = f
	case KindTime:
		t, err := ParseTimestamp(v, loc)
		if err != nil {
			return err
		}
		rec.Date = t
	}
	return nil
}

func parseInt(v string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: integer %q", ErrInvalidValue, v)
	}
	return n, nil
}

func parseAmount(v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: amount %q", ErrInvalidValue, v)
	}
	return f, nil
}

var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04Z0700",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z0700",
	"2006-01-02 15:04Z07:00",
	"2006-01-02 15:04Z0700",
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp reads an ISO-8601-like timestamp. Values carrying an offset
// are converted into loc; naive values are interpreted in loc.
func ParseTimestamp(v string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	v = strings.TrimSpace(v)
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.In(loc), nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: timestamp %q", ErrInvalidValue, v)
}
