package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// DefaultEnvFile is read when no env file is given.
const DefaultEnvFile = ".env"

// Environment variable names.
const (
	EnvPort    = "TTCP_PORT"
	EnvFormat  = "TTCP_FORMAT"
	EnvBufLen  = "TTCP_BUFLEN"
	EnvNumBufs = "TTCP_NBUF"
	EnvUDP     = "TTCP_UDP"
	EnvRecord  = "TTCP_RECORD"
	EnvDB      = "TTCP_DB"
)

// EnvConfig holds settings taken from the environment. Nil means unset.
type EnvConfig struct {
	Port    *int
	Format  *string
	BufLen  *int
	NumBufs *int
	UDP     *bool
	Record  *bool
	DB      *string
}

// LoadEnv reads TTCP_* settings from an env file and the process
// environment, with the process environment taking precedence. An empty path
// reads DefaultEnvFile if it exists; an explicit path must exist.
func LoadEnv(path string) (EnvConfig, error) {
	values := map[string]string{}
	file := path
	if file == "" {
		file = DefaultEnvFile
	}
	if _, err := os.Stat(file); err == nil || path != "" {
		read, err := godotenv.Read(file)
		if err != nil {
			return EnvConfig{}, fmt.Errorf("failed to read env file: %w", err)
		}
		values = read
	}
	for _, key := range []string{EnvPort, EnvFormat, EnvBufLen, EnvNumBufs, EnvUDP, EnvRecord, EnvDB} {
		if v, ok := os.LookupEnv(key); ok {
			values[key] = v
		}
	}

	var cfg EnvConfig
	var err error
	if cfg.Port, err = envInt(values, EnvPort); err != nil {
		return EnvConfig{}, err
	}
	if cfg.BufLen, err = envInt(values, EnvBufLen); err != nil {
		return EnvConfig{}, err
	}
	if cfg.NumBufs, err = envInt(values, EnvNumBufs); err != nil {
		return EnvConfig{}, err
	}
	if cfg.UDP, err = envBool(values, EnvUDP); err != nil {
		return EnvConfig{}, err
	}
	if cfg.Record, err = envBool(values, EnvRecord); err != nil {
		return EnvConfig{}, err
	}
	cfg.Format = envString(values, EnvFormat)
	cfg.DB = envString(values, EnvDB)
	return cfg, nil
}

func envString(values map[string]string, key string) *string {
	v, ok := values[key]
	if !ok || v == "" {
		return nil
	}
	return &v
}

func envInt(values map[string]string, key string) (*int, error) {
	s := envString(values, key)
	if s == nil {
		return nil, nil
	}
	v, err := strconv.Atoi(*s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return &v, nil
}

func envBool(values map[string]string, key string) (*bool, error) {
	s := envString(values, key)
	if s == nil {
		return nil, nil
	}
	v, err := strconv.ParseBool(*s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return &v, nil
}
