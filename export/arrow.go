/*
	Package export writes attribute matrices as Apache Arrow IPC streams so per-voxel and
	per-feature data can be analyzed with standard dataframe tooling.  Each array becomes
	one column: single-component arrays map to primitive columns, multi-component arrays
	to fixed-size lists and neighbor lists to variable-length lists.
*/
package export

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"

	"github.com/janelia-flyem/voxfeat/buffer"
	"github.com/janelia-flyem/voxfeat/datastructure"
	"github.com/janelia-flyem/voxfeat/voxfeat"
)

// Metadata keys recorded in the Arrow schema.
const (
	metaMatrixName = "voxfeat.matrix"
	metaTupleShape = "voxfeat.tuple_shape"
	metaDataType   = "voxfeat.dtype"
	metaCompShape  = "voxfeat.component_shape"
)

// DefaultBatchSize is the maximum number of tuples per record batch.
const DefaultBatchSize = 64 * 1024

func formatShape(shape []int) string {
	parts := make([]string, len(shape))
	for i, n := range shape {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

func parseShape(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	var shape []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("bad shape %q: %v", s, err)
		}
		shape = append(shape, n)
	}
	return shape, nil
}

func metaValue(md arrow.Metadata, key string) (string, bool) {
	idx := md.FindKey(key)
	if idx < 0 {
		return "", false
	}
	return md.Values()[idx], true
}

// Schema returns the Arrow schema used to export am.
func Schema(am *datastructure.AttributeMatrix) (*arrow.Schema, error) {
	arrays := am.Arrays()
	fields := make([]arrow.Field, len(arrays))
	for i, a := range arrays {
		codec, err := codecFor(a.DataType())
		if err != nil {
			return nil, err
		}
		var dtype arrow.DataType
		switch {
		case a.IsNeighborList():
			dtype = arrow.ListOf(codec.primitive())
		case a.NumComponents() == 1:
			dtype = codec.primitive()
		default:
			dtype = arrow.FixedSizeListOf(int32(a.NumComponents()), codec.primitive())
		}
		fields[i] = arrow.Field{
			Name: a.Name(),
			Type: dtype,
			Metadata: arrow.NewMetadata(
				[]string{metaDataType, metaCompShape},
				[]string{a.DataType().String(), formatShape(a.ComponentShape())},
			),
		}
	}
	md := arrow.NewMetadata(
		[]string{metaMatrixName, metaTupleShape},
		[]string{am.Name(), formatShape(am.TupleShape())},
	)
	return arrow.NewSchema(fields, &md), nil
}

// WriteAttributeMatrix writes every array of am to w as an Arrow IPC stream in record
// batches of at most batchSize tuples.  A batchSize <= 0 uses DefaultBatchSize.
func WriteAttributeMatrix(w io.Writer, am *datastructure.AttributeMatrix, batchSize int) error {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	schema, err := Schema(am)
	if err != nil {
		return err
	}
	pool := memory.NewGoAllocator()
	writer := ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(pool))

	arrays := am.Arrays()
	numTuples := am.NumTuples()
	for beg := 0; beg < numTuples || beg == 0; beg += batchSize {
		end := beg + batchSize
		if end > numTuples {
			end = numTuples
		}
		if err := writeBatch(writer, pool, schema, arrays, beg, end); err != nil {
			writer.Close()
			return err
		}
		if numTuples == 0 {
			break
		}
	}
	return writer.Close()
}

func writeBatch(writer *ipc.Writer, pool memory.Allocator, schema *arrow.Schema, arrays []datastructure.Array, beg, end int) error {
	cols := make([]arrow.Array, len(arrays))
	defer func() {
		for _, col := range cols {
			if col != nil {
				col.Release()
			}
		}
	}()
	for i, a := range arrays {
		b := array.NewBuilder(pool, schema.Field(i).Type)
		codec, err := codecFor(a.DataType())
		if err != nil {
			b.Release()
			return err
		}
		err = codec.appendTuples(b, a, beg, end)
		if err == nil {
			cols[i] = b.NewArray()
		}
		b.Release()
		if err != nil {
			return err
		}
	}
	record := array.NewRecord(schema, cols, int64(end-beg))
	defer record.Release()
	return writer.Write(record)
}

// WriteFile exports am to a new Arrow IPC stream file at path.
func WriteFile(path string, am *datastructure.AttributeMatrix) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteAttributeMatrix(f, am, 0); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadTable reads an Arrow IPC stream written by WriteAttributeMatrix back into an
// attribute matrix.
func ReadTable(r io.Reader) (*datastructure.AttributeMatrix, error) {
	reader, err := ipc.NewReader(r, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, err
	}
	defer reader.Release()

	schema := reader.Schema()
	var records []arrow.Record
	defer func() {
		for _, rec := range records {
			rec.Release()
		}
	}()
	var numTuples int
	for reader.Next() {
		rec := reader.Record()
		rec.Retain()
		records = append(records, rec)
		numTuples += int(rec.NumRows())
	}
	if err := reader.Err(); err != nil && err != io.EOF {
		return nil, err
	}

	name, found := metaValue(schema.Metadata(), metaMatrixName)
	if !found || name == "" {
		name = "Table"
	}
	tupleShape := []int{numTuples}
	if s, found := metaValue(schema.Metadata(), metaTupleShape); found {
		if tupleShape, err = parseShape(s); err != nil {
			return nil, err
		}
	}
	am := datastructure.NewAttributeMatrix(name, tupleShape)
	if am.NumTuples() != numTuples {
		return nil, fmt.Errorf("matrix %q has tuple shape %v but stream holds %d rows", name, tupleShape, numTuples)
	}

	ds := datastructure.New()
	if err := ds.Insert(nil, am); err != nil {
		return nil, err
	}
	for i, field := range schema.Fields() {
		s, found := metaValue(field.Metadata, metaDataType)
		if !found {
			return nil, fmt.Errorf("column %q has no data type metadata", field.Name)
		}
		dt, err := voxfeat.ParseDataType(s)
		if err != nil {
			return nil, err
		}
		codec, err := codecFor(dt)
		if err != nil {
			return nil, err
		}
		compShape := []int{1}
		if s, found := metaValue(field.Metadata, metaCompShape); found {
			if compShape, err = parseShape(s); err != nil {
				return nil, err
			}
		}
		chunks := make([]arrow.Array, len(records))
		for r, rec := range records {
			chunks[r] = rec.Column(i)
		}
		a, err := codec.readColumn(field, chunks, compShape, numTuples)
		if err != nil {
			return nil, fmt.Errorf("column %q: %v", field.Name, err)
		}
		if err := ds.Insert(datastructure.DataPath{name}, a); err != nil {
			return nil, err
		}
	}
	return am, nil
}

// elemCodec moves arrays of one element type to and from Arrow.
type elemCodec interface {
	primitive() arrow.DataType
	appendTuples(b array.Builder, a datastructure.Array, beg, end int) error
	readColumn(field arrow.Field, chunks []arrow.Array, compShape []int, numTuples int) (datastructure.Array, error)
}

func codecFor(dt voxfeat.DataType) (elemCodec, error) {
	switch dt {
	case voxfeat.T_int8:
		return typedCodec[int8]{arrow.PrimitiveTypes.Int8}, nil
	case voxfeat.T_uint8:
		return typedCodec[uint8]{arrow.PrimitiveTypes.Uint8}, nil
	case voxfeat.T_int16:
		return typedCodec[int16]{arrow.PrimitiveTypes.Int16}, nil
	case voxfeat.T_uint16:
		return typedCodec[uint16]{arrow.PrimitiveTypes.Uint16}, nil
	case voxfeat.T_int32:
		return typedCodec[int32]{arrow.PrimitiveTypes.Int32}, nil
	case voxfeat.T_uint32:
		return typedCodec[uint32]{arrow.PrimitiveTypes.Uint32}, nil
	case voxfeat.T_int64:
		return typedCodec[int64]{arrow.PrimitiveTypes.Int64}, nil
	case voxfeat.T_uint64:
		return typedCodec[uint64]{arrow.PrimitiveTypes.Uint64}, nil
	case voxfeat.T_float32:
		return typedCodec[float32]{arrow.PrimitiveTypes.Float32}, nil
	case voxfeat.T_float64:
		return typedCodec[float64]{arrow.PrimitiveTypes.Float64}, nil
	case voxfeat.T_bool:
		return typedCodec[bool]{arrow.FixedWidthTypes.Boolean}, nil
	default:
		return nil, fmt.Errorf("%w: %s", datastructure.ErrUnsupportedType, dt)
	}
}

// valuesAppender is satisfied by every primitive Arrow builder.
type valuesAppender[T any] interface {
	AppendValues(v []T, valid []bool)
}

// valuer is satisfied by every primitive Arrow array.
type valuer[T any] interface {
	Value(i int) T
}

type typedCodec[T buffer.Element] struct {
	dtype arrow.DataType
}

func (c typedCodec[T]) primitive() arrow.DataType {
	return c.dtype
}

func (c typedCodec[T]) appendValues(b array.Builder, values []T) error {
	ap, ok := b.(valuesAppender[T])
	if !ok {
		return fmt.Errorf("builder %T cannot append %s values", b, c.dtype)
	}
	ap.AppendValues(values, nil)
	return nil
}

func (c typedCodec[T]) appendTuples(b array.Builder, a datastructure.Array, beg, end int) error {
	switch col := a.(type) {
	case *datastructure.NeighborList[T]:
		lb, ok := b.(*array.ListBuilder)
		if !ok {
			return fmt.Errorf("neighbor list %q needs a list builder, got %T", a.Name(), b)
		}
		for i := beg; i < end; i++ {
			lb.Append(true)
			if err := c.appendValues(lb.ValueBuilder(), col.List(i)); err != nil {
				return err
			}
		}
		return nil
	case *datastructure.DataArray[T]:
		n := col.NumComponents()
		values := col.Values()[beg*n : end*n]
		if n == 1 {
			return c.appendValues(b, values)
		}
		fb, ok := b.(*array.FixedSizeListBuilder)
		if !ok {
			return fmt.Errorf("array %q needs a fixed-size list builder, got %T", a.Name(), b)
		}
		for i := beg; i < end; i++ {
			fb.Append(true)
		}
		return c.appendValues(fb.ValueBuilder(), values)
	default:
		return fmt.Errorf("array %q has unexpected implementation %T", a.Name(), a)
	}
}

func (c typedCodec[T]) leafValues(leaf arrow.Array, beg, end int, dst []T) ([]T, error) {
	v, ok := leaf.(valuer[T])
	if !ok {
		return nil, fmt.Errorf("arrow array %T does not hold %s values", leaf, c.dtype)
	}
	for i := beg; i < end; i++ {
		dst = append(dst, v.Value(i))
	}
	return dst, nil
}

func (c typedCodec[T]) readColumn(field arrow.Field, chunks []arrow.Array, compShape []int, numTuples int) (datastructure.Array, error) {
	switch field.Type.ID() {
	case arrow.LIST:
		nl := datastructure.NewNeighborList[T](field.Name, numTuples)
		var tuple int
		for _, chunk := range chunks {
			list, ok := chunk.(*array.List)
			if !ok {
				return nil, fmt.Errorf("expected list array, got %T", chunk)
			}
			for i := 0; i < list.Len(); i++ {
				start, end := list.ValueOffsets(i)
				values, err := c.leafValues(list.ListValues(), int(start), int(end), nil)
				if err != nil {
					return nil, err
				}
				nl.SetList(tuple, values)
				tuple++
			}
		}
		return nl, nil

	case arrow.FIXED_SIZE_LIST:
		values := make([]T, 0, numTuples*shapeProduct(compShape))
		for _, chunk := range chunks {
			list, ok := chunk.(*array.FixedSizeList)
			if !ok {
				return nil, fmt.Errorf("expected fixed-size list array, got %T", chunk)
			}
			n := int(field.Type.(*arrow.FixedSizeListType).Len())
			start := list.Data().Offset() * n
			var err error
			if values, err = c.leafValues(list.ListValues(), start, start+list.Len()*n, values); err != nil {
				return nil, err
			}
		}
		return newDataArray(field.Name, values, compShape, numTuples)

	default:
		values := make([]T, 0, numTuples)
		for _, chunk := range chunks {
			var err error
			if values, err = c.leafValues(chunk, 0, chunk.Len(), values); err != nil {
				return nil, err
			}
		}
		return newDataArray(field.Name, values, compShape, numTuples)
	}
}

func newDataArray[T buffer.Element](name string, values []T, compShape []int, numTuples int) (datastructure.Array, error) {
	a := datastructure.NewDataArray[T](name, numTuples, compShape)
	if len(values) != len(a.Values()) {
		return nil, fmt.Errorf("read %d values, expected %d tuples x %v", len(values), numTuples, compShape)
	}
	copy(a.Values(), values)
	return a, nil
}

func shapeProduct(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
