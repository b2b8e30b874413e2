/*
	Package config loads the TOML configuration shared by voxfeat commands:

	[logging]
	logfile = "/var/log/voxfeat.log"
	max_log_size = 500 # MB
	max_log_age = 30   # days

	[store]
	path = "data/voxfeat.db"  # relative paths are relative to this file
	compression = "zstd"      # "none", "snappy" or "zstd"
	checksum = true

	[cache]
	size = 256  # MB of freecache in front of the store; 0 disables

	[engine]
	workers = 8  # concurrent partitions for donor scans
*/
package config

import (
	"fmt"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/janelia-flyem/voxfeat/storage"
	"github.com/janelia-flyem/voxfeat/voxfeat"
)

// DefaultStorePath is used when no [store] path is configured.
const DefaultStorePath = "voxfeat.db"

type StoreConfig struct {
	Path        string
	InMemory    bool `toml:"in_memory"`
	Compression string
	Checksum    bool
}

type CacheConfig struct {
	Size int // MB
}

type EngineConfig struct {
	Workers int
}

// Config is the parsed TOML configuration.
type Config struct {
	Logging voxfeat.LogConfig
	Store   StoreConfig
	Cache   CacheConfig
	Engine  EngineConfig

	location string
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Store: StoreConfig{Path: DefaultStorePath, Compression: "snappy", Checksum: true},
	}
}

// Load reads a TOML configuration file.  Settings missing from the file keep their
// default values.
func Load(filename string) (*Config, error) {
	c := Default()
	md, err := toml.DecodeFile(filename, c)
	if err != nil {
		return nil, fmt.Errorf("could not decode TOML config: %v", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		voxfeat.Warningf("Ignoring unknown settings in %s: %v\n", filename, undecoded)
	}
	c.location = filename
	if err := c.convertPathsToAbsolute(filename); err != nil {
		return nil, fmt.Errorf("could not convert relative paths to absolute paths in TOML config: %v", err)
	}
	if _, err := c.Codec(); err != nil {
		return nil, err
	}
	if c.Cache.Size < 0 || c.Engine.Workers < 0 {
		return nil, fmt.Errorf("cache size and engine workers must be non-negative")
	}
	voxfeat.Debugf("tomlConfig: %+v\n", *c)
	return c, nil
}

// Location returns the file the configuration was loaded from, if any.
func (c *Config) Location() string {
	return c.location
}

// Some settings in the TOML can be given as relative paths.
// This converts them in-place to absolute paths, assuming the given paths
// were relative to the TOML file's own directory.
func (c *Config) convertPathsToAbsolute(configPath string) error {
	var err error
	configDir := filepath.Dir(configPath)

	// [logging].logfile
	if c.Logging.Logfile != "" {
		c.Logging.Logfile, err = voxfeat.ConvertToAbsolute(c.Logging.Logfile, configDir)
		if err != nil {
			return fmt.Errorf("error converting logfile setting to absolute path")
		}
	}

	// [store].path
	if c.Store.Path != "" && !c.Store.InMemory {
		c.Store.Path, err = voxfeat.ConvertToAbsolute(c.Store.Path, configDir)
		if err != nil {
			return fmt.Errorf("error converting store path %q to absolute path", c.Store.Path)
		}
	}
	return nil
}

// Codec returns the array encoding selected by [store].
func (c *Config) Codec() (storage.Codec, error) {
	compress, err := voxfeat.ParseCompression(c.Store.Compression)
	if err != nil {
		return storage.Codec{}, err
	}
	codec := storage.Codec{Compression: compress, Checksum: voxfeat.NoChecksum}
	if c.Store.Checksum {
		codec.Checksum = voxfeat.CRC32
	}
	return codec, nil
}

// OpenStore opens the configured store, wrapped in a read cache if [cache] size is set.
func (c *Config) OpenStore() (storage.Store, error) {
	db, err := storage.OpenBadger(storage.BadgerOptions{Path: c.Store.Path, InMemory: c.Store.InMemory})
	if err != nil {
		return nil, err
	}
	if c.Cache.Size > 0 {
		return storage.NewCachedStore(db, c.Cache.Size*voxfeat.Mega), nil
	}
	return db, nil
}
