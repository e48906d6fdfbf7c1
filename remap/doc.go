// Package remap decides whether a name belongs to the legacy jdk.nashorn
// namespace and computes its org.openjdk.nashorn form.
//
// Names come in two spellings, dotted ("jdk.nashorn.api.scripting") and
// path-style ("jdk/nashorn/api/scripting"). Two forms of rewriting apply:
//
//   - prefix form: the name is a declared identifier that starts with the
//     legacy prefix. The check is a fixed-length literal comparison.
//   - substring form: the name is free text that may mention the legacy
//     token anywhere. Every occurrence is replaced, then the doubled prefix
//     produced by re-rewriting already migrated text is collapsed.
//
// The new prefix contains the legacy one ("org.open" + "jdk.nashorn."), so the
// repair pass is what makes the substring form idempotent.
//
// A Remapper records every rewrite it performs. Prefix-form rewrites of type
// and package names also report the package to a Granter so it can be made
// visible to code outside any named module. A Remapper belongs to a single
// transformation and must not be shared.
package remap
