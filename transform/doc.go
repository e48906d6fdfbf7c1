// Package transform rewrites legacy jdk.nashorn references in code units as
// they are loaded.
//
// Apply visits every name-bearing slot of a unit through a remap.Remapper:
//
//	import module names      package names, prefix form
//	import field names       prefix form
//	export names             prefix form
//	custom section names     prefix form
//	name section entries     prefix form
//	constant pool strings    substring form
//
// A unit without legacy references comes back as the very same slice. A
// unit that fails to decode is a fatal error: there are no bytes that could
// be substituted for it.
//
// Plugin adapts Apply to the host's transformer table. It only handles
// non-empty units loaded with host.ReasonDefine.
package transform
