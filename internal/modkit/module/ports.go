package module

import "reflect"

// PortsOf finds T in m.Ports(). The port set may be T itself or a struct whose
// exported fields hold ports; a field declared as T wins over a field that merely
// implements it, and nil fields are skipped.
func PortsOf[T any](m Module) (T, bool) {
	var zero T
	p := m.Ports()
	if p == nil {
		return zero, false
	}
	if v, ok := p.(T); ok {
		return v, true
	}

	rv := reflect.ValueOf(p)
	if rv.Kind() != reflect.Struct {
		return zero, false
	}
	want := reflect.TypeFor[T]()

	var fallback reflect.Value
	for i := range rv.NumField() {
		f := rv.Field(i)
		if !f.CanInterface() || isNil(f) {
			continue
		}
		if f.Type() == want {
			return f.Interface().(T), true
		}
		if !fallback.IsValid() {
			if _, ok := f.Interface().(T); ok {
				fallback = f
			}
		}
	}
	if fallback.IsValid() {
		return fallback.Interface().(T), true
	}
	return zero, false
}

// MustPortsOf is PortsOf that panics naming the module
func MustPortsOf[T any](m Module) T {
	if v, ok := PortsOf[T](m); ok {
		return v
	}
	panic("module: requested port not found on module " + m.Name())
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
