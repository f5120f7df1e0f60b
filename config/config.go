package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/objbridge/errors"
)

// validate is shared; building a validator is expensive.
var validate = validator.New()

// Defaults.
const (
	DefaultWorkers      = 4
	DefaultProxyTimeout = 30 * time.Second
	DefaultResolution   = "first-match"
	DefaultLogLevel     = "info"
)

// Config is the boot configuration.
type Config struct {
	Classpath    []string `yaml:"classpath" json:"classpath,omitempty" validate:"dive,required" jsonschema:"description=Directories and WebAssembly modules searched for classes"`
	Options      []string `yaml:"options" json:"options,omitempty" validate:"dive,required" jsonschema:"description=Runtime options such as -Dname and -Xmx512m"`
	Workers      int      `yaml:"workers" json:"workers,omitempty" validate:"min=1,max=1024" jsonschema:"minimum=1,maximum=1024,default=4,description=Managed threads serving asynchronous calls"`
	ProxyTimeout Duration `yaml:"proxy_timeout" json:"proxy_timeout,omitempty" validate:"gt=0" jsonschema:"description=How long a managed thread waits for a host callback"`
	Resolution   string   `yaml:"resolution" json:"resolution,omitempty" validate:"oneof=first-match most-specific" jsonschema:"enum=first-match,enum=most-specific,default=first-match"`
	LogLevel     string   `yaml:"log_level" json:"log_level,omitempty" validate:"oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,default=info"`
}

// Default returns a configuration with every default applied.
func Default() Config {
	return Config{
		Workers:      DefaultWorkers,
		ProxyTimeout: Duration(DefaultProxyTimeout),
		Resolution:   DefaultResolution,
		LogLevel:     DefaultLogLevel,
	}
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag())
			}
			return errors.Configuration("invalid configuration: "+strings.Join(msgs, "; "), err)
		}
		return errors.Configuration("invalid configuration", err)
	}
	return nil
}

// Clone returns a deep copy.
func (c Config) Clone() Config {
	c.Classpath = append([]string(nil), c.Classpath...)
	c.Options = append([]string(nil), c.Options...)
	return c
}

// Duration is a time.Duration written as "30s" or "1m30s".
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a string like \"30s\"", n.Line)
	}
	v, err := time.ParseDuration(n.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText renders d as a duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// JSONSchema describes Duration as a string.
func (Duration) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
		Description: "Go duration string, e.g. 30s",
		Default:     DefaultProxyTimeout.String(),
	}
}
