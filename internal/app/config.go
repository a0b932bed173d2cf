package app

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	santhosh "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSettingsFile     = "appsettings.json"
	DefaultConnectionString = "mongodb://localhost:27017"
	DefaultDatabase         = "TestDB"
)

//go:embed appsettings.schema.json
var settingsSchemaJSON []byte

// Settings mirrors the settings file.
type Settings struct {
	Mongo MongoSettings `json:"mongo" yaml:"mongo"`
}

type MongoSettings struct {
	ConnectionString string `json:"connection_string" yaml:"connection_string"`
	Database         string `json:"database,omitempty" yaml:"database,omitempty"`
}

func DefaultSettings() Settings {
	return Settings{Mongo: MongoSettings{
		ConnectionString: DefaultConnectionString,
		Database:         DefaultDatabase,
	}}
}

// LoadSettings reads path, writing the defaults there first when the file
// does not exist. The second return value reports whether it was created.
// Files ending in .yaml or .yml are YAML, everything else JSON.
func LoadSettings(path string) (Settings, bool, error) {
	if path == "" {
		path = DefaultSettingsFile
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		settings := DefaultSettings()
		if err := SaveSettings(path, settings); err != nil {
			return Settings{}, false, err
		}
		return settings, true, nil
	}
	if err != nil {
		return Settings{}, false, fmt.Errorf("read settings %s: %w", path, err)
	}

	doc, err := decodeSettingsDocument(path, raw)
	if err != nil {
		return Settings{}, false, err
	}
	if err := validateSettings(doc); err != nil {
		return Settings{}, false, fmt.Errorf("settings %s: %w", path, err)
	}

	normalized, err := json.Marshal(doc)
	if err != nil {
		return Settings{}, false, fmt.Errorf("normalize settings: %w", err)
	}
	var settings Settings
	if err := json.Unmarshal(normalized, &settings); err != nil {
		return Settings{}, false, fmt.Errorf("decode settings %s: %w", path, err)
	}
	return settings, false, nil
}

func SaveSettings(path string, settings Settings) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(settings)
	} else {
		data, err = json.MarshalIndent(settings, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write settings %s: %w", path, err)
	}
	return nil
}

// decodeSettingsDocument returns the file as generic JSON values, the shape
// the schema validator expects.
func decodeSettingsDocument(path string, raw []byte) (any, error) {
	if isYAML(path) {
		var doc any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse settings %s: %w", path, err)
		}
		asJSON, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("parse settings %s: %w", path, err)
		}
		raw = asJSON
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return doc, nil
}

func validateSettings(doc any) error {
	compiler := santhosh.NewCompiler()
	compiler.Draft = santhosh.Draft7
	if err := compiler.AddResource("appsettings.schema.json", bytes.NewReader(settingsSchemaJSON)); err != nil {
		return err
	}
	schema, err := compiler.Compile("appsettings.schema.json")
	if err != nil {
		return err
	}
	if err := schema.Validate(doc); err != nil {
		var ve *santhosh.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("invalid settings: %s", strings.Join(collectValidationErrors(ve), "; "))
		}
		return err
	}
	return nil
}

func collectValidationErrors(ve *santhosh.ValidationError) []string {
	var msgs []string
	for _, cause := range ve.Causes {
		msgs = append(msgs, collectValidationErrors(cause)...)
	}
	if len(ve.Causes) == 0 {
		msgs = append(msgs, ve.Error())
	}
	return msgs
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
