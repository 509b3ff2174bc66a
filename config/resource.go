package config

import (
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// An AttributeMap is a model specific set of attributes for a component.
type AttributeMap map[string]interface{}

// Has returns whether or not the given name is in the map.
func (am AttributeMap) Has(name string) bool {
	_, has := am[name]
	return has
}

// A Component describes the configuration of a single piece of drivetrain hardware.
type Component struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Model string `json:"model"`

	Attributes          AttributeMap `json:"attributes"`
	ConvertedAttributes interface{}  `json:"-"`
}

type validator interface {
	Validate(path string) error
}

// Validate ensures all parts of the config are valid. Converted attributes that know how to
// validate themselves are validated too.
func (config *Component) Validate(path string) error {
	if config.Name == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "name")
	}
	if config.Type == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "type")
	}
	if config.Model == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "model")
	}
	if v, ok := config.ConvertedAttributes.(validator); ok {
		if err := v.Validate(path); err != nil {
			return err
		}
	}
	return nil
}

// TransformAttributeMapToStruct uses an attribute map to transform attributes to the prescribed
// format. Attribute names are matched against json tags and unknown attributes are an error.
func TransformAttributeMapToStruct(to interface{}, attributes AttributeMap) (interface{}, error) {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      to,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, errors.Wrap(err, "cannot convert attributes")
	}
	return to, nil
}

// An AttributeMapConverter converts an attribute map into a typed attribute struct.
type AttributeMapConverter func(attributes AttributeMap) (interface{}, error)

type converterKey struct {
	typ, model string
}

var (
	convertersMu sync.RWMutex
	converters   = map[converterKey]AttributeMapConverter{}
)

// RegisterComponentAttributeMapConverter associates a component type and model with a way to
// convert its attributes. It panics if the pair is registered twice.
func RegisterComponentAttributeMapConverter(typ, model string, conv AttributeMapConverter) {
	convertersMu.Lock()
	defer convertersMu.Unlock()
	key := converterKey{typ, model}
	if _, ok := converters[key]; ok {
		panic(errors.Errorf("trying to register two attribute converters for %s/%s", typ, model))
	}
	converters[key] = conv
}

func findConverter(typ, model string) (AttributeMapConverter, bool) {
	convertersMu.RLock()
	defer convertersMu.RUnlock()
	conv, ok := converters[converterKey{typ, model}]
	return conv, ok
}

// convertAttributes fills in ConvertedAttributes from a registered converter, if any.
func (config *Component) convertAttributes() error {
	conv, ok := findConverter(config.Type, config.Model)
	if !ok {
		return nil
	}
	converted, err := conv(config.Attributes)
	if err != nil {
		return errors.Wrapf(err, "error converting attributes for (%s, %s)", config.Type, config.Model)
	}
	config.ConvertedAttributes = converted
	return nil
}
