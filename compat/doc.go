// Package compat is the legacy jdk.nashorn.api.scripting surface.
//
// Each type wraps exactly one instance from package scripting and forwards
// every call to it. Values crossing a wrapper are translated: results that
// are scripting engines or mirrors come back wrapped in their legacy type,
// and legacy wrappers passed as arguments are unwrapped before they reach
// the instance. Every other value passes through unchanged.
//
// Wrapping is not deduplicated: two calls returning the same script object
// yield two wrappers that compare Equal but are distinct pointers. Use a
// Canonical cache where a single wrapper per instance is required.
package compat
