// Package msbuild reads and edits MSBuild project files. It exposes a
// project's assembly and project references, adds and removes them while
// keeping the file's existing layout, and resolves the identity of compiled
// assemblies (name, version, culture, public key token) both from reference
// include strings and from the CLI metadata of the files themselves.
//
// Store is the entry point for callers working with solution units: it
// caches loaded projects by path and writes each change back to disk as soon
// as it is made.
package msbuild
