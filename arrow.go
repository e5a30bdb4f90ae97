package monetdbe

import (
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// MetaKeyNativeType is the Arrow field metadata key holding the engine's
// type name of a column.
const MetaKeyNativeType = "monetdbe.type"

// hugeintPrecision is the widest precision a Decimal128 can declare.
const hugeintPrecision = 38

// ArrowType returns the Arrow type a column of native type t is exported
// as. Scaled integer columns use Decimal128 and are resolved per column by
// ArrowSchema.
func ArrowType(t ColumnType) (arrow.DataType, error) {
	switch t {
	case TypeBool:
		return arrow.FixedWidthTypes.Boolean, nil
	case TypeInt8:
		return arrow.PrimitiveTypes.Int8, nil
	case TypeInt16:
		return arrow.PrimitiveTypes.Int16, nil
	case TypeInt32:
		return arrow.PrimitiveTypes.Int32, nil
	case TypeInt64:
		return arrow.PrimitiveTypes.Int64, nil
	case TypeInt128:
		return &arrow.Decimal128Type{Precision: hugeintPrecision, Scale: 0}, nil
	case TypeSize:
		return arrow.PrimitiveTypes.Uint64, nil
	case TypeFloat:
		return arrow.PrimitiveTypes.Float32, nil
	case TypeDouble:
		return arrow.PrimitiveTypes.Float64, nil
	case TypeString:
		return arrow.BinaryTypes.String, nil
	case TypeBlob:
		return arrow.BinaryTypes.Binary, nil
	case TypeDate:
		return arrow.FixedWidthTypes.Date32, nil
	case TypeTime:
		return arrow.FixedWidthTypes.Time64us, nil
	case TypeTimestamp:
		return &arrow.TimestampType{Unit: arrow.Microsecond}, nil
	}
	return nil, newError(CodeUnsupportedType, "no Arrow type for %s", t)
}

func (c *column) arrowField() (arrow.Field, error) {
	var dt arrow.DataType
	if c.decimalStorage() && c.typ != TypeInt128 {
		precision := c.precision()
		if precision > hugeintPrecision {
			precision = hugeintPrecision
		}
		dt = &arrow.Decimal128Type{Precision: int32(precision), Scale: c.scale}
	} else {
		var err error
		if dt, err = ArrowType(c.typ); err != nil {
			return arrow.Field{}, err
		}
		if c.typ == TypeInt128 && c.scale > 0 {
			dt = &arrow.Decimal128Type{Precision: hugeintPrecision, Scale: c.scale}
		}
	}
	return arrow.Field{
		Name:     c.name,
		Type:     dt,
		Nullable: true,
		Metadata: arrow.NewMetadata([]string{MetaKeyNativeType}, []string{c.typeName}),
	}, nil
}

// ArrowSchema describes the cursor columns as an Arrow schema.
func (c *Cursor) ArrowSchema() (*arrow.Schema, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	fields := make([]arrow.Field, len(c.columns))
	for i, col := range c.columns {
		f, err := col.arrowField()
		if err != nil {
			return nil, err
		}
		fields[i] = f
	}
	return arrow.NewSchema(fields, nil), nil
}

// ArrowRecord copies every row of the result into an Arrow record,
// independent of the cursor position. The caller releases the record. A
// nil mem uses memory.DefaultAllocator.
func (c *Cursor) ArrowRecord(mem memory.Allocator) (arrow.Record, error) {
	schema, err := c.ArrowSchema()
	if err != nil {
		return nil, err
	}
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	rb := array.NewRecordBuilder(mem, schema)
	defer rb.Release()

	for i, col := range c.columns {
		if err := col.appendTo(rb.Field(i)); err != nil {
			return nil, err
		}
	}
	return rb.NewRecord(), nil
}

// appendTo writes every cell of the column into b, which was built from
// the column's arrowField.
func (c *column) appendTo(b array.Builder) error {
	b.Reserve(c.rows)
	for row := 0; row < c.rows; row++ {
		if c.nulls[row] {
			b.AppendNull()
			continue
		}
		switch bld := b.(type) {
		case *array.Decimal128Builder:
			d, _ := c.exact(row)
			bld.Append(decimal128.FromBigInt(d.Unscaled()))
		case *array.BooleanBuilder:
			bld.Append(c.values.([]bool)[row])
		case *array.Int8Builder:
			bld.Append(c.values.([]int8)[row])
		case *array.Int16Builder:
			bld.Append(c.values.([]int16)[row])
		case *array.Int32Builder:
			bld.Append(c.values.([]int32)[row])
		case *array.Int64Builder:
			bld.Append(c.values.([]int64)[row])
		case *array.Uint64Builder:
			bld.Append(c.values.([]uint64)[row])
		case *array.Float32Builder:
			bld.Append(c.values.([]float32)[row])
		case *array.Float64Builder:
			bld.Append(c.values.([]float64)[row])
		case *array.StringBuilder:
			bld.Append(c.values.([]string)[row])
		case *array.BinaryBuilder:
			bld.Append(c.values.([][]byte)[row])
		case *array.Date32Builder:
			bld.Append(arrow.Date32FromTime(c.values.([]Date)[row].Timestamp()))
		case *array.Time64Builder:
			t := c.values.([]Time)[row]
			bld.Append(arrow.Time64(t.Hour*3600000000 + t.Minute*60000000 + t.Second*1000000 + t.Microsecond()))
		case *array.TimestampBuilder:
			bld.Append(arrow.Timestamp(c.values.([]time.Time)[row].UnixMicro()))
		default:
			return newError(CodeUnsupportedType, "cannot export column %q to Arrow %T", c.name, b)
		}
	}
	return nil
}
