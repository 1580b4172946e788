package msbuild

import (
	"bytes"
	"crypto/sha1"
	"debug/pe"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

type stream struct {
	name string
	data []byte
}

// buildMetadata assembles a minimal metadata root holding a Module row and
// an Assembly row.
func buildMetadata(name, culture string, version [4]uint16, flags uint32, key []byte) []byte {
	strs := []byte{0}
	nameIdx := uint16(len(strs))
	strs = append(append(strs, name...), 0)
	var cultureIdx uint16
	if culture != "" {
		cultureIdx = uint16(len(strs))
		strs = append(append(strs, culture...), 0)
	}

	blobs := []byte{0}
	var keyIdx uint16
	if len(key) > 0 {
		keyIdx = uint16(len(blobs))
		blobs = append(append(blobs, byte(len(key))), key...)
	}

	var tables bytes.Buffer
	w := func(v any) { _ = binary.Write(&tables, binary.LittleEndian, v) }
	w(uint32(0))
	w(uint8(2))
	w(uint8(0))
	w(uint8(0)) // heap sizes: all 2-byte indexes
	w(uint8(1))
	w(uint64(1<<tModule | 1<<tAssembly))
	w(uint64(0))
	w(uint32(1)) // Module rows
	w(uint32(1)) // Assembly rows
	tables.Write(make([]byte, 10))
	w(uint32(0x8004))
	for _, v := range version {
		w(v)
	}
	w(flags)
	w(keyIdx)
	w(nameIdx)
	w(cultureIdx)

	streams := []stream{{"#~", tables.Bytes()}, {"#Strings", strs}, {"#Blob", blobs}}
	versionString := []byte("v4.0.30319\x00\x00")

	headerLen := 16 + len(versionString) + 4
	for _, s := range streams {
		headerLen += 8 + align4(len(s.name)+1)
	}

	var md bytes.Buffer
	m := func(v any) { _ = binary.Write(&md, binary.LittleEndian, v) }
	m(uint32(metadataSignature))
	m(uint16(1))
	m(uint16(1))
	m(uint32(0))
	m(uint32(len(versionString)))
	md.Write(versionString)
	m(uint16(0))
	m(uint16(len(streams)))

	offset := headerLen
	for _, s := range streams {
		m(uint32(offset))
		m(uint32(len(s.data)))
		nameBytes := make([]byte, align4(len(s.name)+1))
		copy(nameBytes, s.name)
		md.Write(nameBytes)
		offset += len(s.data)
	}
	for _, s := range streams {
		md.Write(s.data)
	}
	return md.Bytes()
}

func TestParseMetadata_AssemblyRow(t *testing.T) {
	md := buildMetadata("Contoso.Lib", "", [4]uint16{2, 1, 0, 7}, 0, nil)

	id, err := parseMetadata(md)
	if err != nil {
		t.Fatalf("parseMetadata failed: %v", err)
	}
	if id.Name != "Contoso.Lib" {
		t.Errorf("Name = %q", id.Name)
	}
	if id.Version != "2.1.0.7" {
		t.Errorf("Version = %q", id.Version)
	}
	if id.Culture != "" {
		t.Errorf("Culture = %q, want neutral", id.Culture)
	}
	if len(id.PublicKeyToken) != 0 {
		t.Errorf("unexpected token %x", id.PublicKeyToken)
	}
}

func TestParseMetadata_PublicKeyToken(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i * 7)
	}
	md := buildMetadata("Signed", "en-US", [4]uint16{1, 0, 0, 0}, afPublicKey, key)

	id, err := parseMetadata(md)
	if err != nil {
		t.Fatalf("parseMetadata failed: %v", err)
	}

	sum := sha1.Sum(key)
	want := make([]byte, 8)
	for i := range want {
		want[i] = sum[19-i]
	}
	if !bytes.Equal(id.PublicKeyToken, want) {
		t.Errorf("token = %x, want %x", id.PublicKeyToken, want)
	}
	if id.Culture != "en-US" {
		t.Errorf("Culture = %q", id.Culture)
	}
}

func TestParseMetadata_Rejects(t *testing.T) {
	if _, err := parseMetadata([]byte("not metadata at all")); err == nil {
		t.Error("expected bad signature error")
	}

	md := buildMetadata("Lib", "", [4]uint16{1, 0, 0, 0}, 0, nil)
	if _, err := parseMetadata(md[:40]); err == nil {
		t.Error("expected error for truncated metadata")
	}
}

func TestReadIdentity_FallsBackToFileName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Plain.Lib.dll")
	if err := os.WriteFile(path, []byte("not a PE image"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := ReadAssemblyIdentity(path); err == nil {
		t.Error("expected ReadAssemblyIdentity to fail for a non-PE file")
	}

	id := ReadIdentity(path)
	if id.Name != "Plain.Lib" || id.Version != "" {
		t.Errorf("fallback identity = %+v", id)
	}
}

func TestReadRVA_BoundsBySection(t *testing.T) {
	raw := make([]byte, 0x100)
	copy(raw[0x10:], "header")
	f := &pe.File{Sections: []*pe.Section{{
		SectionHeader: pe.SectionHeader{Name: ".text", VirtualAddress: 0x2000, VirtualSize: 0x400, Size: 0x100},
		ReaderAt:      bytes.NewReader(raw),
	}}}

	buf, err := readRVA(f, 0x2010, 6)
	if err != nil {
		t.Fatalf("readRVA: %v", err)
	}
	if string(buf) != "header" {
		t.Errorf("readRVA = %q", buf)
	}

	tests := map[string]struct{ rva, size uint32 }{
		"huge size":         {0x2010, 0xFFFFFFF0},
		"past raw data":     {0x20F0, 0x20},
		"virtual-only area": {0x2200, 4},
		"outside sections":  {0x9000, 4},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := readRVA(f, tt.rva, tt.size); err == nil {
				t.Errorf("readRVA(%#x, %#x) succeeded", tt.rva, tt.size)
			}
		})
	}
}
