package storage

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/janelia-flyem/voxfeat/datastructure"
	"github.com/janelia-flyem/voxfeat/geometry"
	"github.com/janelia-flyem/voxfeat/voxfeat"
)

// Codec selects how array payloads are encoded.
type Codec struct {
	Compression voxfeat.Compression
	Checksum    voxfeat.Checksum
}

func encodeArray(a datastructure.Array, codec Codec) (*nodeRecord, error) {
	raw, err := a.MarshalBinary()
	if err != nil {
		return nil, err
	}
	payload, err := voxfeat.SerializeData(raw, codec.Compression, codec.Checksum)
	if err != nil {
		return nil, fmt.Errorf("unable to serialize array %q: %v", a.Name(), err)
	}
	rec := &nodeRecord{
		Format:     FormatVersion.String(),
		Kind:       KindDataArray,
		Name:       a.Name(),
		TupleShape: []int{a.NumTuples()},
		DataType:   a.DataType(),
		CompShape:  a.ComponentShape(),
		Payload:    payload,
	}
	if a.IsNeighborList() {
		rec.Kind = KindNeighborList
	}
	return rec, nil
}

func decodeArray(rec *nodeRecord) (datastructure.Array, error) {
	if len(rec.TupleShape) != 1 {
		return nil, fmt.Errorf("array %q has bad tuple shape %v", rec.Name, rec.TupleShape)
	}
	numTuples := rec.TupleShape[0]
	var a datastructure.Array
	var err error
	switch rec.Kind {
	case KindDataArray:
		a, err = datastructure.NewArray(rec.DataType, rec.Name, 0, rec.CompShape)
	case KindNeighborList:
		a, err = datastructure.NewNeighborListOf(rec.DataType, rec.Name, 0)
	default:
		return nil, fmt.Errorf("record %q is a %s, not an array", rec.Name, rec.Kind)
	}
	if err != nil {
		return nil, err
	}
	raw, _, err := voxfeat.DeserializeData(rec.Payload)
	if err != nil {
		return nil, fmt.Errorf("unable to deserialize array %q: %v", rec.Name, err)
	}
	if err := a.UnmarshalBinary(raw); err != nil {
		return nil, err
	}
	if a.NumTuples() != numTuples {
		return nil, fmt.Errorf("array %q decoded %d tuples, header says %d", rec.Name, a.NumTuples(), numTuples)
	}
	return a, nil
}

func putRecord(store Store, key []byte, rec *nodeRecord) error {
	b, err := rec.MarshalMsg(nil)
	if err != nil {
		return err
	}
	return store.Put(key, b)
}

func getRecord(store Store, key []byte) (*nodeRecord, error) {
	b, err := store.Get(key)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("%w: key %q", ErrNotStored, key)
	}
	rec := new(nodeRecord)
	if _, err := rec.UnmarshalMsg(b); err != nil {
		return nil, fmt.Errorf("bad record at key %q: %v", key, err)
	}
	if err := rec.checkFormat(); err != nil {
		return nil, err
	}
	return rec, nil
}

// SaveArray stores a single array under key.
func SaveArray(store Store, key string, a datastructure.Array, codec Codec) error {
	rec, err := encodeArray(a, codec)
	if err != nil {
		return err
	}
	return putRecord(store, []byte(key), rec)
}

// LoadArray retrieves an array stored by SaveArray.
func LoadArray(store Store, key string) (datastructure.Array, error) {
	rec, err := getRecord(store, []byte(key))
	if err != nil {
		return nil, err
	}
	return decodeArray(rec)
}

// SaveStructure stores every node of ds under name, replacing any structure
// previously saved with that name.
func SaveStructure(store Store, name string, ds *datastructure.DataStructure, codec Codec) error {
	if err := DeleteStructure(store, name); err != nil {
		return err
	}
	timedLog := voxfeat.NewTimeLog()
	var numBytes int
	var numNodes int

	var save func(path datastructure.DataPath, obj datastructure.Object) error
	save = func(path datastructure.DataPath, obj datastructure.Object) error {
		var rec *nodeRecord
		var children []datastructure.Object
		switch node := obj.(type) {
		case *datastructure.Image:
			geom := node.Geom
			rec = &nodeRecord{Kind: KindImage, Dims: geom.Dims(), Spacing: geom.Spacing(), Origin: geom.Origin()}
			children = node.Children()
		case *datastructure.AttributeMatrix:
			rec = &nodeRecord{Kind: KindAttributeMatrix, TupleShape: node.TupleShape()}
			children = node.Children()
		case *datastructure.Group:
			rec = &nodeRecord{Kind: KindGroup}
			children = node.Children()
		case datastructure.Array:
			var err error
			if rec, err = encodeArray(node, codec); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unable to store object %q of type %T", path, obj)
		}
		rec.Format = FormatVersion.String()
		rec.Name = obj.Name()
		for _, child := range children {
			rec.Children = append(rec.Children, child.Name())
		}
		b, err := rec.MarshalMsg(nil)
		if err != nil {
			return err
		}
		if err := store.Put(nodeKey(name, path), b); err != nil {
			return err
		}
		numBytes += len(b)
		numNodes++
		for _, child := range children {
			if err := save(path.Child(child.Name()), child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := save(nil, ds.Root()); err != nil {
		return err
	}
	timedLog.Infof("Saved structure %q: %d nodes, %s", name, numNodes, humanize.Bytes(uint64(numBytes)))
	return nil
}

// LoadStructure rebuilds a DataStructure saved under name.
func LoadStructure(store Store, name string) (*datastructure.DataStructure, error) {
	ds := datastructure.New()
	root, err := getRecord(store, nodeKey(name, nil))
	if err != nil {
		return nil, err
	}
	if root.Kind != KindGroup {
		return nil, fmt.Errorf("structure %q root is a %s", name, root.Kind)
	}

	var load func(parent datastructure.DataPath, childName string) error
	load = func(parent datastructure.DataPath, childName string) error {
		path := parent.Child(childName)
		rec, err := getRecord(store, nodeKey(name, path))
		if err != nil {
			return err
		}
		var obj datastructure.Object
		switch rec.Kind {
		case KindGroup:
			obj = datastructure.NewGroup(rec.Name)
		case KindAttributeMatrix:
			obj = datastructure.NewAttributeMatrix(rec.Name, rec.TupleShape)
		case KindImage:
			geom, err := geometry.NewImageGeomWithSpacing(rec.Dims, rec.Spacing, rec.Origin)
			if err != nil {
				return fmt.Errorf("image %q: %v", path, err)
			}
			obj = datastructure.NewImage(rec.Name, geom)
		case KindDataArray, KindNeighborList:
			if obj, err = decodeArray(rec); err != nil {
				return err
			}
		default:
			return fmt.Errorf("record %q has unknown kind %s", path, rec.Kind)
		}
		if err := ds.Insert(parent, obj); err != nil {
			return err
		}
		if rec.Kind == KindImage {
			// Replaced by the stored cell data matrix.
			if err := ds.Remove(path.Child(datastructure.CellDataName)); err != nil {
				return err
			}
		}
		for _, child := range rec.Children {
			if err := load(path, child); err != nil {
				return err
			}
		}
		return nil
	}
	for _, child := range root.Children {
		if err := load(nil, child); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// DeleteStructure removes every record saved under name.
func DeleteStructure(store Store, name string) error {
	keys, err := store.Keys(nodeKey(name, nil))
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := store.Delete(k); err != nil {
			return err
		}
	}
	return nil
}
