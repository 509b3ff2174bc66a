package utils

import (
	"reflect"

	"github.com/pkg/errors"
)

// NewResourceNotFoundError is used when a resource is not found.
func NewResourceNotFoundError(name string) error {
	return errors.Errorf("resource %q not found", name)
}

// DependencyTypeError is used when a resolved dependency is not a T.
func DependencyTypeError[T any](name string, actual interface{}) error {
	return errors.Errorf("dependency %q should be an implementation of %s but it was a %T",
		name, reflect.TypeOf((*T)(nil)).Elem(), actual)
}
