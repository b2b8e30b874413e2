package voxfeat

import (
	"fmt"
	"strconv"
	"strings"
)

// Keys for optional command line settings given as "key=value" strings.
const (
	KeyFeatures = "features"
	KeySpacing  = "spacing"
	KeyOrigin   = "origin"
	KeyBatch    = "batch"
)

var setKeys = map[string]bool{
	KeyFeatures: true,
	KeySpacing:  true,
	KeyOrigin:   true,
	KeyBatch:    true,
}

// Command is a command line split into words.  The first item is the command name.
// The other items are positional arguments or optional settings of the form
// "<key>=<value>".
type Command []string

// String returns a space-separated command line
func (cmd Command) String() string {
	return strings.Join([]string(cmd), " ")
}

// Name returns the first argument which is assumed to be the name of the command.
func (cmd Command) Name() string {
	if len(cmd) == 0 {
		return ""
	}
	return cmd[0]
}

// Parameter scans a command for any "key=value" argument and returns
// the value of the passed 'key'.
func (cmd Command) Parameter(key string) (value string, found bool) {
	if len(cmd) > 1 {
		for _, arg := range cmd[1:] {
			elems := strings.SplitN(arg, "=", 2)
			if len(elems) == 2 && elems[0] == key {
				return elems[1], true
			}
		}
	}
	return
}

// CommandArgs sets a variadic argument set of string pointers to positional
// command arguments, ignoring setting arguments of the form "<key>=<value>".
// If there aren't enough arguments to set a target, the target is set to the
// empty string.  It returns an 'overflow' slice that has all arguments beyond
// those needed for targets.
func (cmd Command) CommandArgs(targets ...*string) (overflow []string) {
	for _, target := range targets {
		*target = ""
	}
	if len(cmd) < 2 {
		return
	}
	curTarget := 0
	for _, arg := range cmd[1:] {
		elems := strings.SplitN(arg, "=", 2)
		if len(elems) == 2 && setKeys[elems[0]] {
			continue
		}
		if curTarget >= len(targets) {
			overflow = append(overflow, arg)
		} else {
			*(targets[curTarget]) = arg
		}
		curTarget++
	}
	return
}

func splitTriple(s string) ([]string, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == 'x' })
	if len(parts) != 3 {
		return nil, fmt.Errorf("expected 3 values in %q", s)
	}
	return parts, nil
}

// ParsePoint3d parses "X,Y,Z" or "XxYxZ".
func ParsePoint3d(s string) (Point3d, error) {
	parts, err := splitTriple(s)
	if err != nil {
		return Point3d{}, err
	}
	var p Point3d
	for i, part := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 32)
		if err != nil {
			return Point3d{}, fmt.Errorf("bad point %q: %v", s, err)
		}
		p[i] = int32(n)
	}
	return p, nil
}

// ParseFloat3 parses "X,Y,Z" into three floats.
func ParseFloat3(s string) ([3]float32, error) {
	var v [3]float32
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return v, fmt.Errorf("expected 3 comma-separated values in %q", s)
	}
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return v, fmt.Errorf("bad value %q: %v", s, err)
		}
		v[i] = float32(f)
	}
	return v, nil
}
