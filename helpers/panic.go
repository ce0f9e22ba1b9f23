package helpers

import "reflect"

// StrPanic panics with panicMessage if p is empty, otherwise returns p.
// Only p == "" is checked, whitespace is not trimmed.
//
// Used for fail-fast validation of required constructor strings (instance name, service type, Redis prefix).
func StrPanic(p string, panicMessage string) string {
	if p == "" {
		panic(panicMessage)
	}
	return p
}

// NilPanic panics with panicMessage if v is nil (nil interface, pointer, slice, map, chan or func), otherwise returns v.
//
// Called from discovery.NewBrowser, discovery.NewReaper, discovery.NewService, handlers.NewHTTPServer,
// myredis.NewEventMirror and other constructors when validating required dependencies.
func NilPanic[T any](v T, panicMessage string) T {
	if isNil(v) {
		panic(panicMessage)
	}
	return v
}

// isNil reports whether v is nil or a typed nil pointer/slice/map/chan/func/interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
