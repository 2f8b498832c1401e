package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ApplyEnv overrides file values with TASKDASH_* variables. getenv is
// os.Getenv outside tests.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getEnvString(getenv, "TASKDASH_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := getEnvString(getenv, "TASKDASH_STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v := getEnvString(getenv, "TASKDASH_DSN"); v != "" {
		c.Storage.DSN = v
	}
	if v := getEnvString(getenv, "TASKDASH_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := getEnvString(getenv, "TASKDASH_ADD_TARGET"); v != "" {
		c.Dashboard.AddTarget = strings.ToLower(v)
	}
	if v := getEnvString(getenv, "TASKDASH_DEV_STATIC"); v != "" {
		b, err := parseBool(v)
		if err != nil {
			return fmt.Errorf("TASKDASH_DEV_STATIC: %w", err)
		}
		c.Server.DevStatic = b
	}
	if v := getEnvString(getenv, "TASKDASH_MUTATION_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TASKDASH_MUTATION_TIMEOUT: %w", err)
		}
		c.Dashboard.MutationTimeout = d
	}
	return nil
}

func getEnvString(getenv func(string) string, key string) string {
	return strings.TrimSpace(getenv(key))
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return strconv.ParseBool(s)
}
