package msbuild

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Identity is the logical identity of an assembly. Empty Version, Culture
// and PublicKeyToken mean the component is absent; a neutral culture is
// stored as empty.
type Identity struct {
	Name           string
	Version        string
	Culture        string
	PublicKeyToken []byte
}

// ParseIdentity parses a display name such as
// "Lib, Version=1.0.0.0, Culture=neutral, PublicKeyToken=null".
// Unknown attributes (processorArchitecture, Retargetable, ...) are ignored.
func ParseIdentity(s string) (Identity, error) {
	parts := strings.Split(s, ",")
	name := strings.TrimSpace(parts[0])
	if name == "" {
		return Identity{}, fmt.Errorf("assembly name %q: missing simple name", s)
	}

	id := Identity{Name: name}
	for _, part := range parts[1:] {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return Identity{}, fmt.Errorf("assembly name %q: malformed attribute %q", s, strings.TrimSpace(part))
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch strings.ToLower(key) {
		case "version":
			v, err := normalizeVersion(value)
			if err != nil {
				return Identity{}, fmt.Errorf("assembly name %q: %w", s, err)
			}
			id.Version = v
		case "culture":
			if !strings.EqualFold(value, "neutral") {
				id.Culture = value
			}
		case "publickeytoken":
			if strings.EqualFold(value, "null") || value == "" {
				continue
			}
			token, err := hex.DecodeString(value)
			if err != nil || len(token) != 8 {
				return Identity{}, fmt.Errorf("assembly name %q: invalid public key token %q", s, value)
			}
			id.PublicKeyToken = token
		}
	}
	return id, nil
}

// normalizeVersion accepts two to four dot-separated 16-bit components.
func normalizeVersion(v string) (string, error) {
	parts := strings.Split(v, ".")
	if len(parts) < 2 || len(parts) > 4 {
		return "", fmt.Errorf("invalid version %q", v)
	}
	for i, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 16)
		if err != nil {
			return "", fmt.Errorf("invalid version %q", v)
		}
		parts[i] = strconv.FormatUint(n, 10)
	}
	return strings.Join(parts, "."), nil
}

// Matches reports whether two identities denote the same assembly: names
// compare case-insensitively, version and culture exactly (absent only
// matches absent) and public key tokens byte for byte.
func (id Identity) Matches(other Identity) bool {
	return strings.EqualFold(id.Name, other.Name) &&
		id.Version == other.Version &&
		id.Culture == other.Culture &&
		bytes.Equal(id.PublicKeyToken, other.PublicKeyToken)
}

// String renders the identity in display-name form. A bare name is returned
// when no other component is known.
func (id Identity) String() string {
	if id.Version == "" && id.Culture == "" && len(id.PublicKeyToken) == 0 {
		return id.Name
	}

	var b strings.Builder
	b.WriteString(id.Name)
	if id.Version != "" {
		b.WriteString(", Version=")
		b.WriteString(id.Version)
	}
	b.WriteString(", Culture=")
	if id.Culture == "" {
		b.WriteString("neutral")
	} else {
		b.WriteString(id.Culture)
	}
	b.WriteString(", PublicKeyToken=")
	if len(id.PublicKeyToken) == 0 {
		b.WriteString("null")
	} else {
		b.WriteString(hex.EncodeToString(id.PublicKeyToken))
	}
	return b.String()
}

// simpleName returns the name part of an include, or the include itself when
// it cannot be parsed as an assembly name.
func simpleName(include string) string {
	id, err := ParseIdentity(include)
	if err != nil {
		return strings.TrimSpace(include)
	}
	return id.Name
}
