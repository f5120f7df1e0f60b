package config

import (
	"bytes"
	"io"
	"os"
	"reflect"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/objbridge/errors"
)

// Load reads a YAML configuration file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Configuration("cannot read "+path, err)
	}
	return Parse(data)
}

// Parse decodes YAML over Default and validates the result. Unknown keys
// are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Config{}, errors.Configuration("invalid YAML", err)
	}
	if len(doc.Content) == 0 {
		return cfg, nil
	}
	if err := checkShape(doc.Content[0]); err != nil {
		return Config{}, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, errors.Configuration("invalid configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// checkShape verifies that the list keys hold sequences of strings before
// decoding, so the messages match those for host values.
func checkShape(root *yaml.Node) error {
	if root.Kind != yaml.MappingNode {
		return errors.Configuration("configuration must be a mapping", nil)
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i].Value, root.Content[i+1]
		if key != "classpath" && key != "options" {
			continue
		}
		if val.Kind != yaml.SequenceNode {
			return errors.Configuration(key+" must be an array", nil)
		}
		for _, item := range val.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return errors.Configuration(key+" must only contain strings", nil)
			}
		}
	}
	return nil
}

// Strings checks a raw host value used as a string list. nil yields an
// empty list.
func Strings(name string, v any) ([]string, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return append([]string(nil), x...), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, errors.Configuration(name+" must be an array", nil)
	}
	out := make([]string, rv.Len())
	for i := range out {
		s, ok := rv.Index(i).Interface().(string)
		if !ok {
			return nil, errors.Configuration(name+" must only contain strings", nil)
		}
		out[i] = s
	}
	return out, nil
}

// FromHost builds a configuration from raw host values for the classpath
// and the options. Other fields keep their defaults.
func FromHost(classpath, options any) (Config, error) {
	cfg := Default()
	var err error
	if cfg.Classpath, err = Strings("classpath", classpath); err != nil {
		return Config{}, err
	}
	if cfg.Options, err = Strings("options", options); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
