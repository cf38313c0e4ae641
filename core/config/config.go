package config

import (
	_ "embed"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

//go:embed default/config.yaml
var defaultConfigData []byte

const (
	ConfigurationName = "config.yaml"
	HistoryName       = "history"
	AppLogName        = "app.log"
)

// Configuration holds the shell's settings, loaded from a YAML file in the
// configuration directory.
type Configuration struct {
	configFs         afero.Fs
	configurationDir string

	// Motd is printed once when an interactive session starts.
	Motd string `json:"motd"`

	// Prompt is a PS1 style prompt supporting \u, \h, \w and \$.
	Prompt string `json:"prompt" validate:"required"`

	// DefaultPath seeds PATH when the environment doesn't set one.
	DefaultPath string `json:"default_path" validate:"required"`

	// HistorySize caps the number of lines kept in the history file.
	HistorySize int `json:"history_size" validate:"gte=0"`

	// Env is applied to the shell's environment at startup. Existing
	// variables are not overwritten.
	Env map[string]string `json:"env"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

func (c *Configuration) fs() afero.Fs {
	return c.configFs
}

// Dir returns the configuration directory, or "" when the configuration is
// not backed by the host filesystem.
func (c *Configuration) Dir() string {
	return c.configurationDir
}

// HistoryPath returns the host path of the history file, or "" when the
// configuration is not backed by the host filesystem.
func (c *Configuration) HistoryPath() string {
	if c.configurationDir == "" {
		return ""
	}
	return filepath.Join(c.configurationDir, HistoryName)
}

// OpenAppLog opens the application log in an append only state.
func (c *Configuration) OpenAppLog() (afero.File, error) {
	return c.fs().OpenFile(AppLogName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

// ReadAppLog opens the application log for reading.
func (c *Configuration) ReadAppLog() (afero.File, error) {
	return c.fs().OpenFile(AppLogName, os.O_RDONLY, 0600)
}

// OpenHistory opens the command history file, creating it if absent.
func (c *Configuration) OpenHistory() (afero.File, error) {
	return c.fs().OpenFile(HistoryName, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0600)
}

func defaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}

// Initialize writes the default configuration into the directory backed by
// fs. Files that already exist are kept.
func Initialize(fs afero.Fs, logger *log.Logger) (*Configuration, error) {
	exists, err := afero.Exists(fs, ConfigurationName)
	switch {
	case err != nil:
		return nil, err
	case exists:
		logger.Printf("%s already exists, skipping", ConfigurationName)
	default:
		logger.Printf("creating %s", ConfigurationName)
		if err := afero.WriteFile(fs, ConfigurationName, defaultConfigData, 0600); err != nil {
			return nil, err
		}
	}

	return LoadFs(fs)
}
