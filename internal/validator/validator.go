package validator

import (
	"fmt"
	"reflect"
)

// Validate reports an error when any constructor dependency is nil or the
// zero value for its type. Components use it to fail fast on wiring bugs.
func Validate(name string, deps ...any) error {
	for i, dep := range deps {
		if dep == nil || isZero(reflect.ValueOf(dep)) {
			return fmt.Errorf("missing required dep %d for component: %s", i, name)
		}
	}

	return nil
}

func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return v.IsNil()
	default:
		return v.IsZero()
	}
}
