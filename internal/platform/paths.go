package platform

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ToRelative returns filePath relative to the directory containing
// relativeTo, using forward slashes. A path that is not rooted is returned
// unchanged. When no relative form exists (for example a different volume
// on Windows) the absolute path is returned with forward slashes.
func ToRelative(filePath, relativeTo string) string {
	if filePath == "" || !filepath.IsAbs(FromMSBuild(filePath)) {
		return filePath
	}

	base := filepath.Dir(FromMSBuild(relativeTo))
	rel, err := filepath.Rel(base, filepath.Clean(FromMSBuild(filePath)))
	if err != nil {
		return filepath.ToSlash(filepath.Clean(FromMSBuild(filePath)))
	}
	return filepath.ToSlash(rel)
}

// ToAbsolute resolves filePath against the directory containing relativeTo.
// Rooted paths are only cleaned.
func ToAbsolute(filePath, relativeTo string) string {
	p := FromMSBuild(filepath.FromSlash(filePath))
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Clean(filepath.Join(filepath.Dir(FromMSBuild(relativeTo)), p))
}

// FromMSBuild converts an MSBuild path (backslash separated) to the host
// separator. On Windows it is a no-op.
func FromMSBuild(p string) string {
	if runtime.GOOS == "windows" {
		return p
	}
	return strings.ReplaceAll(p, `\`, "/")
}

// ToMSBuild converts a host or slash-separated path to the backslash form
// used inside project and solution files.
func ToMSBuild(p string) string {
	return strings.ReplaceAll(filepath.ToSlash(p), "/", `\`)
}

// SamePath reports whether a and b name the same location after cleaning.
// The comparison is case-insensitive on Windows and macOS, where the
// default filesystems are.
func SamePath(a, b string) bool {
	if a == "" || b == "" {
		return a == b
	}
	ca := filepath.Clean(FromMSBuild(a))
	cb := filepath.Clean(FromMSBuild(b))
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		return strings.EqualFold(ca, cb)
	}
	return ca == cb
}

// EqualFoldPath compares two paths after cleaning, ignoring case on every
// platform.
func EqualFoldPath(a, b string) bool {
	return strings.EqualFold(filepath.Clean(FromMSBuild(a)), filepath.Clean(FromMSBuild(b)))
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// Stem returns the file name of p without its extension.
func Stem(p string) string {
	base := filepath.Base(FromMSBuild(p))
	return strings.TrimSuffix(base, filepath.Ext(base))
}
