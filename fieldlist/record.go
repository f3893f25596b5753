package fieldlist

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/earthkit/fieldkit/errs"
	"github.com/earthkit/fieldkit/field"
	"github.com/earthkit/fieldkit/internal/options"
)

// recordConfig collects ToRecord options.
type recordConfig struct {
	columns []string
	filters Filters
	points  bool
}

// RecordOption configures ToRecord.
type RecordOption = options.Option[*recordConfig]

// WithColumns selects the metadata columns to export. Default: the first
// field's keys.
func WithColumns(keys ...string) RecordOption {
	return options.NoError(func(c *recordConfig) { c.columns = keys })
}

// WithFilters restricts the exported rows with the same per-column
// predicate semantics as Sel.
func WithFilters(filters Filters) RecordOption {
	return options.NoError(func(c *recordConfig) { c.filters = filters })
}

// WithPoints flattens every grid point into its own row, adding "lat",
// "lon" and "value" columns. Metadata columns repeat per point. All fields
// must share a geometry with coordinates.
func WithPoints() RecordOption {
	return options.NoError(func(c *recordConfig) { c.points = true })
}

// ToRecord exports the list as an Arrow record: one row per field by
// default, one row per grid point with WithPoints. The caller owns the
// returned record and must Release it.
func (fl *FieldList) ToRecord(opts ...RecordOption) (arrow.Record, error) {
	cfg := &recordConfig{}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	src := fl
	if len(cfg.filters) > 0 {
		src = fl.Sel(cfg.filters)
	}

	columns := cfg.columns
	if columns == nil && src.Len() > 0 {
		columns = src.At(0).Metadata().Keys()
	}

	if cfg.points {
		return src.pointsRecord(columns)
	}

	return src.fieldsRecord(columns)
}

func (fl *FieldList) fieldsRecord(columns []string) (arrow.Record, error) {
	rows := fl.MetadataColumns(columns...)

	schema, err := inferSchema(columns, rows)
	if err != nil {
		return nil, err
	}

	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()

	for _, row := range rows {
		for j, cell := range row {
			if err := appendCell(b.Field(j), cell); err != nil {
				return nil, err
			}
		}
	}

	return b.NewRecord(), nil
}

func (fl *FieldList) pointsRecord(columns []string) (arrow.Record, error) {
	lats, lons, err := fl.ToLatLon()
	if err != nil {
		return nil, err
	}

	rows := fl.MetadataColumns(columns...)

	schema, err := inferSchema(columns, rows)
	if err != nil {
		return nil, err
	}
	pointFields := []arrow.Field{
		{Name: "lat", Type: arrow.PrimitiveTypes.Float64},
		{Name: "lon", Type: arrow.PrimitiveTypes.Float64},
		{Name: "value", Type: arrow.PrimitiveTypes.Float64},
	}
	schema = arrow.NewSchema(append(schema.Fields(), pointFields...), nil)

	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()

	nmeta := len(columns)
	for i, f := range fl.fields {
		values, err := f.Values()
		if err != nil {
			return nil, err
		}

		for p, v := range values {
			for j, cell := range rows[i] {
				if err := appendCell(b.Field(j), cell); err != nil {
					return nil, err
				}
			}
			b.Field(nmeta).(*array.Float64Builder).Append(lats[p])
			b.Field(nmeta + 1).(*array.Float64Builder).Append(lons[p])
			b.Field(nmeta + 2).(*array.Float64Builder).Append(v)
		}
	}

	return b.NewRecord(), nil
}

// inferSchema derives each column's Arrow type from its first non-nil cell;
// all-nil columns fall back to string.
func inferSchema(columns []string, rows [][]any) (*arrow.Schema, error) {
	fields := make([]arrow.Field, len(columns))
	for j, name := range columns {
		var sample any
		for _, row := range rows {
			if row[j] != nil {
				sample = row[j]
				break
			}
		}

		dt, err := arrowType(sample)
		if err != nil {
			return nil, fmt.Errorf("%w: column %q: %w", errs.ErrEncoding, name, err)
		}
		fields[j] = arrow.Field{Name: name, Type: dt, Nullable: true}
	}

	return arrow.NewSchema(fields, nil), nil
}

func arrowType(sample any) (arrow.DataType, error) {
	switch sample.(type) {
	case nil, string:
		return arrow.BinaryTypes.String, nil
	case int, int64:
		return arrow.PrimitiveTypes.Int64, nil
	case float64, float32:
		return arrow.PrimitiveTypes.Float64, nil
	case bool:
		return arrow.FixedWidthTypes.Boolean, nil
	default:
		return nil, fmt.Errorf("unsupported cell type %T", sample)
	}
}

func appendCell(b array.Builder, cell any) error {
	if cell == nil {
		b.AppendNull()
		return nil
	}

	switch builder := b.(type) {
	case *array.StringBuilder:
		builder.Append(field.AsString(cell))
	case *array.Int64Builder:
		n, ok := field.AsInt(cell)
		if !ok {
			return fmt.Errorf("%w: %v is not integral", errs.ErrEncoding, cell)
		}
		builder.Append(n)
	case *array.Float64Builder:
		f, ok := field.AsFloat(cell)
		if !ok {
			return fmt.Errorf("%w: %v is not numeric", errs.ErrEncoding, cell)
		}
		builder.Append(f)
	case *array.BooleanBuilder:
		v, ok := cell.(bool)
		if !ok {
			return fmt.Errorf("%w: %v is not a bool", errs.ErrEncoding, cell)
		}
		builder.Append(v)
	default:
		return fmt.Errorf("%w: unsupported builder %T", errs.ErrEncoding, b)
	}

	return nil
}
