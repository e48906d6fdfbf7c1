// Package bootstrap splices the org.openjdk.nashorn component into a
// host's module graph.
//
// Run performs the splice in a fixed order, each step completing before
// the next begins:
//
//  1. unlock the graph capability
//  2. locate candidate components and their declared dependencies
//  3. drop requirements on the transformation tooling library
//  4. resolve the candidates against the boot configuration
//  5. define the resolved modules and publish them as one layer
//  6. grant readability between the new component, the compat plugin and
//     unnamed code, then install the remapping plugin
//
// Any failure is returned as a single fatal error. Once runs the whole
// sequence at most once per process.
package bootstrap
