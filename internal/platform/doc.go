// Package platform provides cross-platform path handling for solution and
// project files. MSBuild files always spell paths with backslashes, while the
// persisted switch state uses forward slashes; the helpers here convert
// between those forms and the host OS separator, and relate artifact paths
// to the project files that reference them.
package platform
