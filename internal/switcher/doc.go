// Package switcher flips dependency edges between projects of a solution.
//
// ToProjectReferences replaces assembly references that point at another
// project's output with project references, recording each original artifact
// path first. SwitchBackToAssemblyReferences undoes that from the record and
// repairs hint paths the reference store normalised on the way.
package switcher
