package storage

import (
	"fmt"

	"github.com/blang/semver"
	"github.com/tinylib/msgp/msgp"

	"github.com/janelia-flyem/voxfeat/voxfeat"
)

// FormatVersion is written into every record.  Records with a different major
// version cannot be read.
var FormatVersion = semver.MustParse("1.0.0")

// NodeKind identifies the type of a stored node.
type NodeKind uint8

const (
	KindGroup NodeKind = iota
	KindAttributeMatrix
	KindImage
	KindDataArray
	KindNeighborList
)

var kindNames = map[NodeKind]string{
	KindGroup:           "group",
	KindAttributeMatrix: "attribute matrix",
	KindImage:           "image",
	KindDataArray:       "data array",
	KindNeighborList:    "neighbor list",
}

func (k NodeKind) String() string {
	if name, found := kindNames[k]; found {
		return name
	}
	return fmt.Sprintf("NodeKind(%d)", uint8(k))
}

// nodeRecord is the stored form of one node.  Fields unused by a kind are left zero.
type nodeRecord struct {
	Format   string
	Kind     NodeKind
	Name     string
	Children []string

	// attribute matrices and arrays
	TupleShape []int

	// images
	Dims    [3]int32
	Spacing [3]float32
	Origin  [3]float32

	// arrays
	DataType  voxfeat.DataType
	CompShape []int
	Payload   []byte
}

const nodeRecordFields = 11

func appendInts(b []byte, vals []int) []byte {
	b = msgp.AppendArrayHeader(b, uint32(len(vals)))
	for _, v := range vals {
		b = msgp.AppendInt(b, v)
	}
	return b
}

func readInts(b []byte) ([]int, []byte, error) {
	sz, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return nil, b, err
	}
	vals := make([]int, sz)
	for i := range vals {
		if vals[i], b, err = msgp.ReadIntBytes(b); err != nil {
			return nil, b, err
		}
	}
	return vals, b, nil
}

func appendFloat3(b []byte, v [3]float32) []byte {
	b = msgp.AppendArrayHeader(b, 3)
	for _, f := range v {
		b = msgp.AppendFloat32(b, f)
	}
	return b
}

func readFloat3(b []byte) (v [3]float32, o []byte, err error) {
	var sz uint32
	if sz, b, err = msgp.ReadArrayHeaderBytes(b); err != nil {
		return v, b, err
	}
	if sz != 3 {
		return v, b, msgp.ArrayError{Wanted: 3, Got: sz}
	}
	for i := range v {
		if v[i], b, err = msgp.ReadFloat32Bytes(b); err != nil {
			return v, b, err
		}
	}
	return v, b, nil
}

// MarshalMsg implements msgp.Marshaler
func (z *nodeRecord) MarshalMsg(b []byte) ([]byte, error) {
	o := msgp.Require(b, z.Msgsize())
	o = msgp.AppendArrayHeader(o, nodeRecordFields)
	o = msgp.AppendString(o, z.Format)
	o = msgp.AppendUint8(o, uint8(z.Kind))
	o = msgp.AppendString(o, z.Name)
	o = msgp.AppendArrayHeader(o, uint32(len(z.Children)))
	for _, child := range z.Children {
		o = msgp.AppendString(o, child)
	}
	o = appendInts(o, z.TupleShape)
	o = msgp.AppendArrayHeader(o, 3)
	for _, d := range z.Dims {
		o = msgp.AppendInt32(o, d)
	}
	o = appendFloat3(o, z.Spacing)
	o = appendFloat3(o, z.Origin)
	o = msgp.AppendUint8(o, uint8(z.DataType))
	o = appendInts(o, z.CompShape)
	o = msgp.AppendBytes(o, z.Payload)
	return o, nil
}

// UnmarshalMsg implements msgp.Unmarshaler
func (z *nodeRecord) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var sz uint32
	if sz, bts, err = msgp.ReadArrayHeaderBytes(bts); err != nil {
		return
	}
	if sz != nodeRecordFields {
		err = msgp.ArrayError{Wanted: nodeRecordFields, Got: sz}
		return
	}
	if z.Format, bts, err = msgp.ReadStringBytes(bts); err != nil {
		return
	}
	var u uint8
	if u, bts, err = msgp.ReadUint8Bytes(bts); err != nil {
		return
	}
	z.Kind = NodeKind(u)
	if z.Name, bts, err = msgp.ReadStringBytes(bts); err != nil {
		return
	}
	if sz, bts, err = msgp.ReadArrayHeaderBytes(bts); err != nil {
		return
	}
	z.Children = make([]string, sz)
	for i := range z.Children {
		if z.Children[i], bts, err = msgp.ReadStringBytes(bts); err != nil {
			return
		}
	}
	if z.TupleShape, bts, err = readInts(bts); err != nil {
		return
	}
	if sz, bts, err = msgp.ReadArrayHeaderBytes(bts); err != nil {
		return
	}
	if sz != 3 {
		err = msgp.ArrayError{Wanted: 3, Got: sz}
		return
	}
	for i := range z.Dims {
		if z.Dims[i], bts, err = msgp.ReadInt32Bytes(bts); err != nil {
			return
		}
	}
	if z.Spacing, bts, err = readFloat3(bts); err != nil {
		return
	}
	if z.Origin, bts, err = readFloat3(bts); err != nil {
		return
	}
	if u, bts, err = msgp.ReadUint8Bytes(bts); err != nil {
		return
	}
	z.DataType = voxfeat.DataType(u)
	if z.CompShape, bts, err = readInts(bts); err != nil {
		return
	}
	if z.Payload, bts, err = msgp.ReadBytesBytes(bts, nil); err != nil {
		return
	}
	o = bts
	return
}

func (z *nodeRecord) Msgsize() (s int) {
	s = msgp.ArrayHeaderSize + msgp.StringPrefixSize + len(z.Format) + msgp.Uint8Size +
		msgp.StringPrefixSize + len(z.Name) + msgp.ArrayHeaderSize
	for _, child := range z.Children {
		s += msgp.StringPrefixSize + len(child)
	}
	s += msgp.ArrayHeaderSize + len(z.TupleShape)*msgp.IntSize
	s += 3 * (msgp.ArrayHeaderSize + 3*msgp.Float32Size)
	s += msgp.Uint8Size + msgp.ArrayHeaderSize + len(z.CompShape)*msgp.IntSize
	s += msgp.BytesPrefixSize + len(z.Payload)
	return
}

// checkFormat rejects records written by an incompatible format version.
func (z *nodeRecord) checkFormat() error {
	v, err := semver.Make(z.Format)
	if err != nil {
		return fmt.Errorf("record %q has bad format version %q: %v", z.Name, z.Format, err)
	}
	if v.Major != FormatVersion.Major {
		return fmt.Errorf("record %q has format %s, incompatible with %s", z.Name, v, FormatVersion)
	}
	return nil
}
