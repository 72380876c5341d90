package cfiverify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	// Globals are applicable to all rules and used for general
	// configuration settings for cfiverify.
	Globals = "global"
)

// GlobalOption defines the name of the global options
type GlobalOption string

const (
	// FailFast stops checking a function at its first violation
	FailFast GlobalOption = "failfast"
	// Concurrency bounds how many functions are checked in parallel
	Concurrency GlobalOption = "concurrency"
	// IncludeRules lists the rule IDs to run, comma separated
	IncludeRules GlobalOption = "include"
	// ExcludeRules lists the rule IDs to skip, comma separated
	ExcludeRules GlobalOption = "exclude"
)

// Config is used to provide configuration and customization to each of the rules.
type Config map[string]interface{}

// NewConfig initializes a new configuration instance. The configuration data then
// needs to be loaded via c.ReadFrom(strings.NewReader("config data"))
// or from a *os.File.
func NewConfig() Config {
	cfg := make(Config)
	cfg[Globals] = make(map[GlobalOption]string)
	return cfg
}

// LoadConfig reads a configuration file. The encoding is picked from the
// extension: .json, .yaml, .yml or .toml.
func LoadConfig(path string) (Config, error) {
	// #nosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := NewConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		_, err = c.ReadFrom(bytes.NewReader(data))
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &c)
	case ".toml":
		_, err = toml.Decode(string(data), &c)
	default:
		return nil, fmt.Errorf("unsupported config extension %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	c.convertGlobals()
	return c, nil
}

func (c Config) keyToGlobalOptions(key string) GlobalOption {
	return GlobalOption(key)
}

func (c Config) convertGlobals() {
	if globals, ok := c[Globals]; ok {
		if settings, ok := globals.(map[string]interface{}); ok {
			validGlobals := map[GlobalOption]string{}
			for k, v := range settings {
				validGlobals[c.keyToGlobalOptions(k)] = fmt.Sprintf("%v", v)
			}
			c[Globals] = validGlobals
		}
	}
}

// ReadFrom implements the io.ReaderFrom interface. This
// should be used with io.Reader to load configuration from
// file or from string etc.
func (c Config) ReadFrom(r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return int64(len(data)), err
	}
	if err = json.Unmarshal(data, &c); err != nil {
		return int64(len(data)), err
	}
	c.convertGlobals()
	return int64(len(data)), nil
}

// WriteTo implements the io.WriteTo interface. This should
// be used to save or print out the configuration information.
func (c Config) WriteTo(w io.Writer) (int64, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return int64(len(data)), err
	}
	return io.Copy(w, bytes.NewReader(data))
}

// Get returns the configuration section for the supplied key
func (c Config) Get(section string) (interface{}, error) {
	settings, found := c[section]
	if !found {
		return nil, fmt.Errorf("section %s not in configuration", section)
	}
	return settings, nil
}

// Set section in the configuration
func (c Config) Set(section string, value interface{}) {
	c[section] = value
}

// GetGlobal returns value associated with global configuration option
func (c Config) GetGlobal(option GlobalOption) (string, error) {
	if globals, ok := c[Globals]; ok {
		if settings, ok := globals.(map[GlobalOption]string); ok {
			if value, ok := settings[option]; ok {
				return value, nil
			}
			return "", fmt.Errorf("global setting for %s not found", option)
		}
	}
	return "", fmt.Errorf("no global config options found")
}

// SetGlobal associates a value with a global configuration option
func (c Config) SetGlobal(option GlobalOption, value string) {
	if globals, ok := c[Globals]; ok {
		if settings, ok := globals.(map[GlobalOption]string); ok {
			settings[option] = value
		}
	}
}

// IsGlobalEnabled checks if a global option is enabled
func (c Config) IsGlobalEnabled(option GlobalOption) (bool, error) {
	value, err := c.GetGlobal(option)
	if err != nil {
		return false, err
	}
	return (value == "true" || value == "enabled"), nil
}

// concurrency returns the configured worker count, defaulting to the
// number of CPUs
func (c Config) concurrency() int {
	value, err := c.GetGlobal(Concurrency)
	if err != nil {
		return runtime.NumCPU()
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return runtime.NumCPU()
	}
	return n
}

// ruleIDs splits a comma separated global option
func (c Config) ruleIDs(option GlobalOption) []string {
	value, err := c.GetGlobal(option)
	if err != nil {
		return nil
	}
	var ids []string
	for _, id := range strings.Split(value, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
