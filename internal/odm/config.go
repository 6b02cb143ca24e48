package odm

import (
	"fmt"
	"os"
	"strings"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// Config controls how the mapper reads type declarations and entries.
type Config struct {
	// Struct tag key holding field-level mapping options.
	TagKey string `yaml:"tag_key" default:"ldap"`

	// Reserved attribute holding an entry's object classes.
	ObjectClassAttribute string `yaml:"object_class_attribute" default:"objectClass"`

	// Attributes always handled as raw bytes regardless of field tags.
	BinaryAttributes []string `yaml:"binary_attributes" default:"[\"objectGUID\",\"objectSid\"]"`

	// Check at registration that every attribute has converters in both directions.
	ValidateConverters bool `yaml:"validate_converters" default:"true"`

	// tflog subsystem name.
	LogSubsystem string `yaml:"log_subsystem" default:"odm"`
}

// DefaultConfig returns a configuration with all defaults applied.
func DefaultConfig() *Config {
	config := &Config{}
	if err := defaults.Set(config); err != nil {
		panic(fmt.Sprintf("failed to apply config defaults: %v", err))
	}
	return config
}

// ParseConfig parses a YAML document over the default configuration.
func ParseConfig(data []byte) (*Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadConfig reads and parses a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// Validate checks that required settings are present.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.TagKey) == "" {
		return fmt.Errorf("tag_key cannot be empty")
	}
	if strings.TrimSpace(c.ObjectClassAttribute) == "" {
		return fmt.Errorf("object_class_attribute cannot be empty")
	}
	if strings.TrimSpace(c.LogSubsystem) == "" {
		return fmt.Errorf("log_subsystem cannot be empty")
	}
	for _, name := range c.BinaryAttributes {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("binary_attributes cannot contain empty names")
		}
	}
	return nil
}

func (c *Config) isBinaryAttribute(name string) bool {
	for _, binary := range c.BinaryAttributes {
		if strings.EqualFold(binary, name) {
			return true
		}
	}
	return false
}
