// Package state persists the record of every assembly reference that was
// converted into a project reference, so the conversion can be undone with
// the original artifact paths. One YAML artifact is kept next to each
// solution file; its name is derived from the solution's own file name.
package state
