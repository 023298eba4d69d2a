package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// source resolves a setting from the environment, then the config file, then
// the default. File keys are flattened to env names: [auth] issuer is AUTH_ISSUER.
type source struct {
	file map[string]string
}

// Load reads .env.local (if present) into the environment and then the optional
// config file at path. TOML and YAML are chosen by extension.
func Load(path string) (Config, error) {
	loadEnvFile()

	src := &source{}
	if path == "" {
		return newMainConfig(src), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("[config.Load] reading %s: %w", path, err)
	}

	raw := map[string]any{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return nil, fmt.Errorf("[config.Load] decoding TOML: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("[config.Load] decoding YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("[config.Load] unsupported config file type %q", ext)
	}

	src.file = make(map[string]string)
	flatten("", raw, src.file)
	return newMainConfig(src), nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}
	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}
	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

func flatten(prefix string, in map[string]any, out map[string]string) {
	for k, v := range in {
		key := strings.ToUpper(strings.ReplaceAll(k, "-", "_"))
		if prefix != "" {
			key = prefix + "_" + key
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case []any:
			parts := make([]string, 0, len(val))
			for _, item := range val {
				parts = append(parts, fmt.Sprint(item))
			}
			out[key] = strings.Join(parts, ",")
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

func (s *source) get(name, defaultValue string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	if value, ok := s.file[name]; ok && value != "" {
		return value
	}
	return defaultValue
}

func (s *source) getDuration(name string, defaultValue time.Duration) time.Duration {
	raw := s.get(name, "")
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	// Bare numbers are seconds
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func (s *source) getInt(name string, defaultValue int) int {
	if v, err := strconv.Atoi(s.get(name, "")); err == nil {
		return v
	}
	return defaultValue
}

func (s *source) getFloat(name string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(s.get(name, ""), 64); err == nil {
		return v
	}
	return defaultValue
}

func (s *source) getList(name string, defaultValue []string) []string {
	raw := s.get(name, "")
	if raw == "" {
		return defaultValue
	}
	return strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' })
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
