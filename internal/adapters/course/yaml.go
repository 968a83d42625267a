package course

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/jacktrack/internal/domain/model"
)

//go:embed sample_course.yaml
var sampleCourse []byte

// YAMLFile reads a course from a YAML document:
//
//	name: Pebble Beach Golf Links
//	holes:
//	  - number: 7
//	    par: 4
//	    yardage: 392
//	    tee: {lat: 36.5650, lon: -121.9480}
//	    pin: {lat: 36.5674, lon: -121.9500}
func YAMLFile(path string) Provider {
	return ProviderFunc(func(_ context.Context) (model.Course, error) {
		return decodeYAML(file.Provider(path), path)
	})
}

// Sample returns the embedded demo course.
func Sample() Provider {
	return ProviderFunc(func(_ context.Context) (model.Course, error) {
		return decodeYAML(rawBytes(sampleCourse), "sample")
	})
}

func decodeYAML(p koanf.Provider, name string) (model.Course, error) {
	k := koanf.New(".")
	if err := k.Load(p, yaml.Parser()); err != nil {
		return model.Course{}, fmt.Errorf("load course %s: %w", name, err)
	}
	var c model.Course
	if err := k.Unmarshal("", &c); err != nil {
		return model.Course{}, fmt.Errorf("decode course %s: %w", name, err)
	}
	return c, nil
}

// rawBytes is a koanf provider over an in-memory document.
type rawBytes []byte

func (b rawBytes) ReadBytes() ([]byte, error) { return b, nil }

func (rawBytes) Read() (map[string]interface{}, error) {
	return nil, errors.New("rawBytes provider does not support Read")
}
