// Package workspace reads a Visual Studio solution file into a tree of units
// (projects and solution folders) and flattens that tree for callers that
// process every project in turn.
package workspace
