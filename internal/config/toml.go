// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Net     NetConfig     `toml:"net"`
	Output  OutputConfig  `toml:"output"`
	History HistoryConfig `toml:"history"`
}

// NetConfig maps transfer settings.
type NetConfig struct {
	Port    *int  `toml:"port"`
	UDP     *bool `toml:"udp"`
	BufLen  *int  `toml:"buflen"`
	NumBufs *int  `toml:"nbuf"`
	SockBuf *int  `toml:"sockbuf"`
	NoDelay *bool `toml:"nodelay"`
}

// OutputConfig maps reporting settings.
type OutputConfig struct {
	Format    *string `toml:"format"`
	Progress  *bool   `toml:"progress"`
	Speed     *bool   `toml:"speed"`
	Verbose   *bool   `toml:"verbose"`
	LineWidth *int    `toml:"line-width"`
}

// HistoryConfig maps run history settings.
type HistoryConfig struct {
	Record *bool   `toml:"record"`
	DB     *string `toml:"db"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
