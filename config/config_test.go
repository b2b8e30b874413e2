package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/janelia-flyem/voxfeat/storage"
	"github.com/janelia-flyem/voxfeat/voxfeat"
)

const testConfig = `
[logging]
logfile = "logs/voxfeat.log"
max_log_size = 10
max_log_age = 2

[store]
path = "db"
compression = "zstd"
checksum = false

[cache]
size = 4

[engine]
workers = 3
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, testConfig)
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Dir(path)
	if c.Logging.Logfile != filepath.Join(dir, "logs/voxfeat.log") {
		t.Errorf("expected absolute logfile, got %q\n", c.Logging.Logfile)
	}
	if c.Logging.MaxSize != 10 || c.Logging.MaxAge != 2 {
		t.Errorf("bad logging config: %+v\n", c.Logging)
	}
	if c.Store.Path != filepath.Join(dir, "db") {
		t.Errorf("expected absolute store path, got %q\n", c.Store.Path)
	}
	if c.Cache.Size != 4 || c.Engine.Workers != 3 {
		t.Errorf("bad cache/engine config: %+v %+v\n", c.Cache, c.Engine)
	}
	codec, err := c.Codec()
	if err != nil {
		t.Fatal(err)
	}
	if codec.Compression != voxfeat.Zstd || codec.Checksum != voxfeat.NoChecksum {
		t.Errorf("bad codec: %+v\n", codec)
	}
	if c.Location() != path {
		t.Errorf("expected location %q, got %q\n", path, c.Location())
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(writeConfig(t, "[store]\ncompression = \"lz4\"\n")); err == nil {
		t.Errorf("expected error for unknown compression\n")
	}
	if _, err := Load(writeConfig(t, "[engine\nworkers = 3\n")); err == nil {
		t.Errorf("expected error for malformed TOML\n")
	}
	if _, err := Load(writeConfig(t, "[engine]\nworkers = -1\n")); err == nil {
		t.Errorf("expected error for negative workers\n")
	}
}

func TestDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, "[engine]\nworkers = 2\n"))
	if err != nil {
		t.Fatal(err)
	}
	codec, _ := c.Codec()
	if codec.Compression != voxfeat.Snappy || codec.Checksum != voxfeat.CRC32 {
		t.Errorf("expected default snappy/crc32 codec, got %+v\n", codec)
	}
	if filepath.Base(c.Store.Path) != DefaultStorePath {
		t.Errorf("expected default store path, got %q\n", c.Store.Path)
	}
}

func TestOpenStore(t *testing.T) {
	c := Default()
	c.Store.InMemory = true
	c.Cache.Size = 1
	store, err := c.OpenStore()
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if _, ok := store.(*storage.CachedStore); !ok {
		t.Errorf("expected cached store, got %T\n", store)
	}
	if err := store.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatal(err)
	}
	v, err := store.Get([]byte("k"))
	if err != nil || string(v) != "v" {
		t.Errorf("bad get: %q %v\n", v, err)
	}
}
