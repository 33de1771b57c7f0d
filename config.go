package ballot

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/user"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/fatih/structs"
	"github.com/koding/multiconfig"
	"github.com/rs/zerolog"
)

// Config uses the multiconfig loader and validators to store configuration
// values required to run the ballot service. Configuration can be stored as
// a JSON, TOML, or YAML file in the current working directory as
// ballot.json, in the user's home directory as .ballot.json or in
// /etc/ballot.json (with the extension of the file format of choice).
// Configuration can also be added from the environment using environment
// variables prefixed with $BALLOT_ and the all caps version of the
// configuration name.
type Config struct {
	Name          string `required:"false" json:"name"`                            // unique name of the service, hostname by default
	BindAddr      string `default:":4157" json:"bind_addr"`                        // address the HTTP API listens on
	Owner         string `required:"false" json:"owner"`                           // identity of the distinguished owner admin (required at New)
	Secret        string `required:"false" json:"secret"`                          // HS256 signing key for identity tokens
	LogLevel      string `default:"info" validate:"zerolog" json:"log_level"`      // verbosity of logging
	Journal       string `required:"false" json:"journal,omitempty"`               // path to the durable event journal (empty disables)
	SweepInterval string `default:"30s" validate:"duration" json:"sweep_interval"` // how often to sweep for expired elections
	TokenDuration string `default:"24h" validate:"duration" json:"token_duration"` // validity period of minted identity tokens
	Uptime        string `required:"false" validate:"duration" json:"uptime"`      // run for a time limit and then shutdown
	Metrics       string `required:"false" json:"metrics"`                         // location to write operation metrics to disk
}

// Load the configuration from default values, then from a configuration file,
// and finally from the environment. Validate the configuration when loaded.
func (c *Config) Load() error {
	loaders := []multiconfig.Loader{}

	// Read default values defined via tag fields "default"
	loaders = append(loaders, &multiconfig.TagLoader{})

	// Find the config path and the appropriate file loader
	if path, err := c.GetPath(); err == nil {
		if strings.HasSuffix(path, "toml") {
			loaders = append(loaders, &multiconfig.TOMLLoader{Path: path})
		}

		if strings.HasSuffix(path, "json") {
			loaders = append(loaders, &multiconfig.JSONLoader{Path: path})
		}

		if strings.HasSuffix(path, "yml") || strings.HasSuffix(path, "yaml") {
			loaders = append(loaders, &multiconfig.YAMLLoader{Path: path})
		}

	}

	// Load the environment variable loader
	env := &multiconfig.EnvironmentLoader{Prefix: "BALLOT", CamelCase: true}
	loaders = append(loaders, env)

	loader := multiconfig.MultiLoader(loaders...)
	if err := loader.Load(c); err != nil {
		return err
	}

	return c.Validate()
}

// Validate the loaded configuration using the multiconfig multi validator.
func (c *Config) Validate() error {
	validators := multiconfig.MultiValidator(
		&multiconfig.RequiredValidator{},
		&ComplexValidator{},
	)

	return validators.Validate(c)
}

// Update the configuration from another configuration struct
func (c *Config) Update(o *Config) error {
	if o == nil {
		return nil
	}

	conf := structs.New(c)

	// Then update the current config with values from the other config
	for _, field := range structs.Fields(o) {
		if !field.IsZero() {
			updateField := conf.Field(field.Name())
			updateField.Set(field.Value())
		}
	}

	return c.Validate()
}

// GetName returns the name of the service defined by the configuration or
// using the hostname by default.
func (c *Config) GetName() (name string, err error) {
	if c.Name == "" {
		if name, err = os.Hostname(); err != nil {
			return "", errors.New("could not find unique name of localhost")
		}
		return name, nil
	}

	return c.Name, nil
}

// GetLogLevel parses the log level configuration into a zerolog level,
// defaulting to info if the level is unparseable.
func (c *Config) GetLogLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// GetPath searches possible configuration paths returning the first path it
// finds; this path is used when loading the configuration from disk. An
// error is returned if no configuration file exists.
func (c *Config) GetPath() (string, error) {
	// Prepare PATH list
	paths := make([]string, 0, 3)

	// Look in CWD directory first
	if path, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(path, "ballot"))
	}

	// Look in user's home directory next
	if user, err := user.Current(); err == nil {
		paths = append(paths, filepath.Join(user.HomeDir, ".ballot"))
	}

	// Finally look in etc for the global configuration
	paths = append(paths, "/etc/ballot")

	for _, path := range paths {
		for _, ext := range []string{".toml", ".json", ".yml", ".yaml"} {
			fpath := path + ext
			if _, err := os.Stat(fpath); !os.IsNotExist(err) {
				return fpath, nil
			}
		}
	}

	return "", errors.New("no configuration file found")
}

// GetSweepInterval parses the sweep interval duration and returns it.
func (c *Config) GetSweepInterval() (time.Duration, error) {
	return time.ParseDuration(c.SweepInterval)
}

// GetTokenDuration parses the token validity duration and returns it.
func (c *Config) GetTokenDuration() (time.Duration, error) {
	return time.ParseDuration(c.TokenDuration)
}

// GetUptime parses the uptime duration and returns it.
func (c *Config) GetUptime() (time.Duration, error) {
	return time.ParseDuration(c.Uptime)
}

//===========================================================================
// Validators
//===========================================================================

// ComplexValidator validates complex types that multiconfig doesn't understand
type ComplexValidator struct {
	TagName string
}

// Validate implements the multiconfig.Validator interface.
func (v *ComplexValidator) Validate(s interface{}) error {
	if v.TagName == "" {
		v.TagName = "validate"
	}

	for _, field := range structs.Fields(s) {
		if err := v.processField("", field); err != nil {
			return err
		}
	}

	return nil
}

func (v *ComplexValidator) processField(fieldName string, field *structs.Field) error {
	fieldName += field.Name()
	switch field.Kind() {
	case reflect.Struct:
		fieldName += "."
		for _, f := range field.Fields() {
			if err := v.processField(fieldName, f); err != nil {
				return err
			}
		}
	default:
		if field.IsZero() {
			return nil
		}

		switch strings.ToLower(field.Tag(v.TagName)) {
		case "":
			return nil
		case "duration":
			return v.processDurationField(fieldName, field)
		case "url":
			return v.processURLField(fieldName, field)
		case "zerolog":
			return v.processLogLevelField(fieldName, field)
		case "uint":
			return v.processUintField(fieldName, field)
		default:
			return fmt.Errorf("cannot validate type '%s'", field.Tag(v.TagName))
		}

	}

	return nil
}

func (v *ComplexValidator) processDurationField(fieldName string, field *structs.Field) error {
	_, err := time.ParseDuration(field.Value().(string))
	if err != nil {
		return fmt.Errorf("could not validate %s: %s", fieldName, err.Error())
	}
	return nil
}

func (v *ComplexValidator) processURLField(fieldName string, field *structs.Field) error {
	if _, err := url.Parse(field.Value().(string)); err != nil {
		return fmt.Errorf("could not validate %s: %s", fieldName, err.Error())
	}

	return nil
}

func (v *ComplexValidator) processLogLevelField(fieldName string, field *structs.Field) error {
	if _, err := zerolog.ParseLevel(strings.ToLower(field.Value().(string))); err != nil {
		return fmt.Errorf("could not validate %s: %s", fieldName, err.Error())
	}
	return nil
}

func (v *ComplexValidator) processUintField(fieldName string, field *structs.Field) error {
	val := field.Value().(int)
	if val < 0 {
		return fmt.Errorf("%s is less than zero", fieldName)
	}
	return nil
}
