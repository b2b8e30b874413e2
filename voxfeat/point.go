package voxfeat

import "fmt"

// Point3d is an ordered list of three 32-bit signed integers that implements the Point interface.
type Point3d [3]int32

// Prod returns the product of the point coordinates.
func (p Point3d) Prod() int64 {
	return int64(p[0]) * int64(p[1]) * int64(p[2])
}

// Equals returns true if the two points are identical.
func (p Point3d) Equals(p2 Point3d) bool {
	return p[0] == p2[0] && p[1] == p2[1] && p[2] == p2[2]
}

// Add returns the vector sum of two points.
func (p Point3d) Add(p2 Point3d) Point3d {
	return Point3d{p[0] + p2[0], p[1] + p2[1], p[2] + p2[2]}
}

// Sub returns p - p2.
func (p Point3d) Sub(p2 Point3d) Point3d {
	return Point3d{p[0] - p2[0], p[1] - p2[1], p[2] - p2[2]}
}

func (p Point3d) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p[0], p[1], p[2])
}

// StringDims returns a string like "3x3x1" suitable for dimensions.
func (p Point3d) StringDims() string {
	return fmt.Sprintf("%dx%dx%d", p[0], p[1], p[2])
}
