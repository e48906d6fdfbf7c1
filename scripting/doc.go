// Package scripting is the org.openjdk.nashorn.api.scripting engine API,
// backed by goja.
//
// A Factory describes the engine and creates Engines. An Engine owns one
// default global; evaluating against bindings that are not a global of the
// engine creates a fresh global and associates it with those bindings
// under NashornGlobal, so later evaluations against the same bindings see
// the same global.
//
// Script objects cross into Go as *Mirror values. Primitive results are
// returned as their Go equivalents (int64, float64, string, bool), null as
// nil and undefined as Undefined.
//
// Engines and mirrors are not safe for concurrent use.
package scripting
