// Package registry operates the global registry of drivetrain hardware models.
package registry

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/sysid/config"
	"go.viam.com/sysid/logging"
	"go.viam.com/sysid/utils"
)

// Dependencies are the components built so far, keyed by name.
type Dependencies map[string]interface{}

// A CreateComponent creates a component from a given config.
type CreateComponent func(
	ctx context.Context,
	deps Dependencies,
	config config.Component,
	logger logging.Logger,
) (interface{}, error)

// Component stores a component constructor and, optionally, its attribute converter.
type Component struct {
	Constructor           CreateComponent
	AttributeMapConverter config.AttributeMapConverter
	// DependsOn lists the component names this one needs built first.
	DependsOn func(config config.Component) []string
}

type key struct {
	typ, model string
}

var (
	registryMu        sync.RWMutex
	componentRegistry = map[key]Component{}
)

// RegisterComponent registers a component type and model to a creator.
func RegisterComponent(typ, model string, creator Component) {
	registryMu.Lock()
	defer registryMu.Unlock()
	k := key{typ, model}
	if _, old := componentRegistry[k]; old {
		panic(errors.Errorf("trying to register two of the same component type:%s, model:%s", typ, model))
	}
	if creator.Constructor == nil {
		panic(errors.Errorf("cannot register a nil constructor for type:%s, model:%s", typ, model))
	}
	componentRegistry[k] = creator
	if creator.AttributeMapConverter != nil {
		config.RegisterComponentAttributeMapConverter(typ, model, creator.AttributeMapConverter)
	}
}

// ComponentLookup looks up a creator by the given type and model. nil is returned if
// there is no creator registered.
func ComponentLookup(typ, model string) *Component {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if registration, ok := componentRegistry[key{typ, model}]; ok {
		return &registration
	}
	return nil
}

// Build constructs every configured component in dependency order.
func Build(ctx context.Context, cfg *config.Config, logger logging.Logger) (Dependencies, error) {
	deps := Dependencies{}
	pending := make([]config.Component, len(cfg.Components))
	copy(pending, cfg.Components)

	for len(pending) > 0 {
		var next []config.Component
		for _, conf := range pending {
			registration := ComponentLookup(conf.Type, conf.Model)
			if registration == nil {
				return nil, errors.Errorf("unknown component type: %s model: %s", conf.Type, conf.Model)
			}
			if !dependenciesBuilt(registration, conf, deps) {
				next = append(next, conf)
				continue
			}
			built, err := registration.Constructor(ctx, deps, conf, logger.Sublogger(conf.Name))
			if err != nil {
				return nil, errors.Wrapf(err, "error building component %q", conf.Name)
			}
			deps[conf.Name] = built
		}
		if len(next) == len(pending) {
			return nil, errors.Errorf("cannot resolve dependencies of component %q", next[0].Name)
		}
		pending = next
	}
	return deps, nil
}

func dependenciesBuilt(registration *Component, conf config.Component, deps Dependencies) bool {
	if registration.DependsOn == nil {
		return true
	}
	for _, name := range registration.DependsOn(conf) {
		if _, ok := deps[name]; !ok {
			return false
		}
	}
	return true
}

// FromDependencies returns the named dependency typed as T.
func FromDependencies[T any](deps Dependencies, name string) (T, error) {
	var zero T
	raw, ok := deps[name]
	if !ok {
		return zero, utils.NewResourceNotFoundError(name)
	}
	typed, ok := raw.(T)
	if !ok {
		return zero, utils.DependencyTypeError[T](name, raw)
	}
	return typed, nil
}
