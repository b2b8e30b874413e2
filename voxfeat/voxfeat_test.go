package voxfeat

import (
	"fmt"
	"strings"
	"testing"

	. "github.com/janelia-flyem/go/gocheck"
)

// Hook up gocheck into the "go test" runner.
func Test(t *testing.T) { TestingT(t) }

type CoreSuite struct{}

var _ = Suite(&CoreSuite{})

func (s *CoreSuite) TestDataTypes(c *C) {
	c.Assert(T_int32.Bytes(), Equals, 4)
	c.Assert(T_bool.Bytes(), Equals, 1)
	c.Assert(T_float64.Bytes(), Equals, 8)
	c.Assert(DataType(200).Valid(), Equals, false)
	c.Assert(DataType(200).Bytes(), Equals, 0)

	for dt := T_int8; dt <= T_bool; dt++ {
		parsed, err := ParseDataType(dt.String())
		c.Assert(err, IsNil)
		c.Assert(parsed, Equals, dt)
	}
	_, err := ParseDataType("complex128")
	c.Assert(err, NotNil)

	b, err := T_uint16.MarshalJSON()
	c.Assert(err, IsNil)
	c.Assert(string(b), Equals, `"uint16"`)

	var dt DataType
	c.Assert(dt.UnmarshalJSON([]byte(`"float32"`)), IsNil)
	c.Assert(dt, Equals, T_float32)
}

func (s *CoreSuite) TestPoint3d(c *C) {
	p := Point3d{4, 5, 6}
	c.Assert(p.Prod(), Equals, int64(120))
	c.Assert(p.StringDims(), Equals, "4x5x6")
	c.Assert(p.Add(Point3d{1, 1, 1}), Equals, Point3d{5, 6, 7})
	c.Assert(p.Sub(Point3d{4, 5, 6}).Equals(Point3d{}), Equals, true)
}

func (s *CoreSuite) TestSerialization(c *C) {
	data := make([]byte, 4096)
	for i := range data {
		data[i] = byte(i % 17)
	}
	for _, compression := range []Compression{Uncompressed, Snappy, Zstd} {
		for _, checksum := range []Checksum{NoChecksum, CRC32} {
			ser, err := SerializeData(data, compression, checksum)
			c.Assert(err, IsNil)

			got, compress, err := DeserializeData(ser)
			c.Assert(err, IsNil)
			c.Assert(compress, Equals, compression)
			c.Assert(got, DeepEquals, data)

			if checksum != NoChecksum {
				ser[len(ser)-1] ^= 0x04 // Flip a bit
				_, _, err = DeserializeData(ser)
				c.Assert(err, NotNil)
			}
		}
	}
}

func (s *CoreSuite) TestParseCompression(c *C) {
	for name, expected := range map[string]Compression{"": Uncompressed, "none": Uncompressed, "snappy": Snappy, "zstd": Zstd} {
		got, err := ParseCompression(name)
		c.Assert(err, IsNil)
		c.Assert(got, Equals, expected)
	}
	_, err := ParseCompression("lz4")
	c.Assert(err, NotNil)
}

func (s *CoreSuite) TestMessenger(c *C) {
	var got []string
	m := Messenger{Handler: func(msg string) { got = append(got, msg) }, Prefix: "MinSize"}
	m.Send("Feature Count Changed: Previous: %d New: %d", 10, 7)
	c.Assert(got, DeepEquals, []string{"MinSize: Feature Count Changed: Previous: 10 New: 7"})

	// nil handler must be harmless
	Messenger{}.Send("nothing listens")
}

func (s *CoreSuite) TestConvertToAbsolute(c *C) {
	p, err := ConvertToAbsolute("/abs/path", "/base")
	c.Assert(err, IsNil)
	c.Assert(p, Equals, "/abs/path")
	p, err = ConvertToAbsolute("rel/file.log", "/base")
	c.Assert(err, IsNil)
	c.Assert(p, Equals, "/base/rel/file.log")
	_, err = ConvertToAbsolute("", "/base")
	c.Assert(err, NotNil)
}

func (s *CoreSuite) TestCommand(c *C) {
	cmd := Command{"import", "scan", "10x20x30", "features=grains.arrow", "cells.arrow", "extra"}
	c.Assert(cmd.Name(), Equals, "import")

	var name, dims, cells string
	overflow := cmd.CommandArgs(&name, &dims, &cells)
	c.Assert(name, Equals, "scan")
	c.Assert(dims, Equals, "10x20x30")
	c.Assert(cells, Equals, "cells.arrow")
	c.Assert(overflow, DeepEquals, []string{"extra"})

	features, found := cmd.Parameter(KeyFeatures)
	c.Assert(found, Equals, true)
	c.Assert(features, Equals, "grains.arrow")
	_, found = cmd.Parameter(KeySpacing)
	c.Assert(found, Equals, false)

	p, err := ParsePoint3d(dims)
	c.Assert(err, IsNil)
	c.Assert(p, Equals, Point3d{10, 20, 30})
	p, err = ParsePoint3d("4,5,6")
	c.Assert(err, IsNil)
	c.Assert(p, Equals, Point3d{4, 5, 6})
	_, err = ParsePoint3d("4,5")
	c.Assert(err, NotNil)

	v, err := ParseFloat3("0.5, 0.5, 2")
	c.Assert(err, IsNil)
	c.Assert(v, Equals, [3]float32{0.5, 0.5, 2})
}

type recordLogger struct {
	msgs []string
}

func (r *recordLogger) record(format string, args ...interface{}) {
	r.msgs = append(r.msgs, fmt.Sprintf(format, args...))
}

func (r *recordLogger) Debugf(format string, args ...interface{})    { r.record(format, args...) }
func (r *recordLogger) Infof(format string, args ...interface{})     { r.record(format, args...) }
func (r *recordLogger) Warningf(format string, args ...interface{})  { r.record(format, args...) }
func (r *recordLogger) Errorf(format string, args ...interface{})    { r.record(format, args...) }
func (r *recordLogger) Criticalf(format string, args ...interface{}) { r.record(format, args...) }
func (r *recordLogger) Shutdown()                                    {}

func (s *CoreSuite) TestTimeLog(c *C) {
	rec := &recordLogger{}
	oldLogger, oldMode := logger, LogMode()
	logger = rec
	defer func() {
		logger = oldLogger
		SetLogMode(oldMode)
	}()

	SetLogMode(InfoMode)
	timedLog := NewTimeLog()
	timedLog.Debugf("hidden %d", 1)
	timedLog.Infof("removed %d of %d", 2, 5)
	timedLog.Warningf("stopped")
	c.Assert(rec.msgs, HasLen, 2)
	c.Assert(strings.HasPrefix(rec.msgs[0], "removed 2 of 5: "), Equals, true)
	c.Assert(strings.HasSuffix(rec.msgs[0], "\n"), Equals, true)
	c.Assert(strings.Contains(rec.msgs[0], "%!"), Equals, false)
	c.Assert(strings.HasPrefix(rec.msgs[1], "stopped: "), Equals, true)
	c.Assert(timedLog.Elapsed() >= 0, Equals, true)
}
