package middlewares

import "reflect"

// IsEmpty reports whether the pointed-to config struct holds only zero
// values, meaning the corresponding middleware was never configured.
func IsEmpty(cfg interface{}) bool {
	zero := reflect.New(reflect.TypeOf(cfg).Elem()).Interface()
	return reflect.DeepEqual(cfg, zero)
}

// boolVal dereferences an optional config flag, nil counts as false.
func boolVal(b *bool) bool {
	return b != nil && *b
}

// BoolPtr builds a *bool for the tri-state config flags (unset, false, true).
func BoolPtr(v bool) *bool {
	return &v
}
