package msbuild

import (
	"crypto/sha1"
	"debug/pe"
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/refswitch/refswitch/internal/platform"
)

// ErrNotManaged is returned for PE images without CLI metadata.
var ErrNotManaged = errors.New("not a managed assembly")

const (
	metadataSignature = 0x424A5342
	comDescriptorDir  = 14
	cliHeaderSize     = 72
	afPublicKey       = 0x0001
)

// Metadata table numbers (ECMA-335 II.22).
const (
	tModule = iota
	tTypeRef
	tTypeDef
	tFieldPtr
	tField
	tMethodPtr
	tMethodDef
	tParamPtr
	tParam
	tInterfaceImpl
	tMemberRef
	tConstant
	tCustomAttribute
	tFieldMarshal
	tDeclSecurity
	tClassLayout
	tFieldLayout
	tStandAloneSig
	tEventMap
	tEventPtr
	tEvent
	tPropertyMap
	tPropertyPtr
	tProperty
	tMethodSemantics
	tMethodImpl
	tModuleRef
	tTypeSpec
	tImplMap
	tFieldRVA
	tEncLog
	tEncMap
	tAssembly
)

const (
	tAssemblyRef            = 0x23
	tFile                   = 0x26
	tExportedType           = 0x27
	tManifestResource       = 0x28
	tGenericParam           = 0x2A
	tMethodSpec             = 0x2B
	tGenericParamConstraint = 0x2C
)

var le = binary.LittleEndian

// ReadIdentity returns the identity of the assembly at path. Files that are
// not managed assemblies fall back to an identity carrying only the file
// stem as name, which is how such references are written by hand.
func ReadIdentity(path string) Identity {
	id, err := ReadAssemblyIdentity(path)
	if err != nil {
		return Identity{Name: platform.Stem(path)}
	}
	return id
}

// ReadAssemblyIdentity reads the Assembly metadata row of a managed PE image.
func ReadAssemblyIdentity(path string) (Identity, error) {
	f, err := pe.Open(filepath.Clean(path))
	if err != nil {
		return Identity{}, fmt.Errorf("reading PE image %s: %w", path, err)
	}
	defer f.Close()

	var dir pe.DataDirectory
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		if oh.NumberOfRvaAndSizes <= comDescriptorDir {
			return Identity{}, ErrNotManaged
		}
		dir = oh.DataDirectory[comDescriptorDir]
	case *pe.OptionalHeader64:
		if oh.NumberOfRvaAndSizes <= comDescriptorDir {
			return Identity{}, ErrNotManaged
		}
		dir = oh.DataDirectory[comDescriptorDir]
	default:
		return Identity{}, ErrNotManaged
	}
	if dir.VirtualAddress == 0 {
		return Identity{}, ErrNotManaged
	}

	cli, err := readRVA(f, dir.VirtualAddress, cliHeaderSize)
	if err != nil {
		return Identity{}, fmt.Errorf("reading CLI header of %s: %w", path, err)
	}
	md, err := readRVA(f, le.Uint32(cli[8:12]), le.Uint32(cli[12:16]))
	if err != nil {
		return Identity{}, fmt.Errorf("reading metadata of %s: %w", path, err)
	}

	id, err := parseMetadata(md)
	if err != nil {
		return Identity{}, fmt.Errorf("parsing metadata of %s: %w", path, err)
	}
	return id, nil
}

func readRVA(f *pe.File, rva, size uint32) ([]byte, error) {
	for _, s := range f.Sections {
		start := uint64(s.VirtualAddress)
		if uint64(rva) < start || uint64(rva) >= start+uint64(max(s.VirtualSize, s.Size)) {
			continue
		}
		// Sizes come from the file itself; never allocate past the section's raw data.
		if uint64(rva)-start+uint64(size) > uint64(s.Size) {
			return nil, fmt.Errorf("%d bytes at rva %#x run past section %s", size, rva, s.Name)
		}
		buf := make([]byte, size)
		n, err := s.ReadAt(buf, int64(rva-s.VirtualAddress))
		if n < int(size) {
			return nil, fmt.Errorf("short read at rva %#x: %w", rva, err)
		}
		return buf, nil
	}
	return nil, fmt.Errorf("rva %#x outside of any section", rva)
}

// parseMetadata walks the metadata root, locates the table stream and reads
// the first row of the Assembly table.
func parseMetadata(md []byte) (Identity, error) {
	if len(md) < 16 || le.Uint32(md[0:4]) != metadataSignature {
		return Identity{}, errors.New("bad metadata signature")
	}
	off := 16 + int(le.Uint32(md[12:16]))
	if off+4 > len(md) {
		return Identity{}, errors.New("truncated metadata root")
	}
	count := int(le.Uint16(md[off+2 : off+4]))
	off += 4

	streams := make(map[string][]byte, count)
	for i := 0; i < count; i++ {
		if off+8 > len(md) {
			return Identity{}, errors.New("truncated stream header")
		}
		start := int(le.Uint32(md[off : off+4]))
		size := int(le.Uint32(md[off+4 : off+8]))
		nameEnd := off + 8
		for nameEnd < len(md) && md[nameEnd] != 0 {
			nameEnd++
		}
		name := string(md[off+8 : nameEnd])
		off = off + 8 + align4(nameEnd-(off+8)+1)
		if start+size > len(md) {
			return Identity{}, fmt.Errorf("stream %s out of range", name)
		}
		streams[name] = md[start : start+size]
	}

	tables, ok := streams["#~"]
	if !ok {
		tables, ok = streams["#-"]
	}
	if !ok {
		return Identity{}, errors.New("no metadata table stream")
	}
	return readAssemblyRow(tables, streams["#Strings"], streams["#Blob"])
}

func align4(n int) int {
	return (n + 3) &^ 3
}

// layout knows the width of heap indexes, table indexes and coded indexes
// for one metadata image.
type layout struct {
	rows            [64]uint32
	str, guid, blob int
}

func (l *layout) index(table int) int {
	if l.rows[table] < 1<<16 {
		return 2
	}
	return 4
}

func (l *layout) coded(tagBits uint, tables ...int) int {
	var most uint32
	for _, t := range tables {
		most = max(most, l.rows[t])
	}
	if most < 1<<(16-tagBits) {
		return 2
	}
	return 4
}

// rowSize returns the byte width of a row in tables preceding Assembly.
func (l *layout) rowSize(table int) int {
	typeDefOrRef := l.coded(2, tTypeDef, tTypeRef, tTypeSpec)
	memberRefParent := l.coded(3, tTypeDef, tTypeRef, tModuleRef, tMethodDef, tTypeSpec)
	methodDefOrRef := l.coded(1, tMethodDef, tMemberRef)

	switch table {
	case tModule:
		return 2 + l.str + 3*l.guid
	case tTypeRef:
		return l.coded(2, tModule, tModuleRef, tAssemblyRef, tTypeRef) + 2*l.str
	case tTypeDef:
		return 4 + 2*l.str + typeDefOrRef + l.index(tField) + l.index(tMethodDef)
	case tFieldPtr:
		return l.index(tField)
	case tField:
		return 2 + l.str + l.blob
	case tMethodPtr:
		return l.index(tMethodDef)
	case tMethodDef:
		return 8 + l.str + l.blob + l.index(tParam)
	case tParamPtr:
		return l.index(tParam)
	case tParam:
		return 4 + l.str
	case tInterfaceImpl:
		return l.index(tTypeDef) + typeDefOrRef
	case tMemberRef:
		return memberRefParent + l.str + l.blob
	case tConstant:
		return 2 + l.coded(2, tField, tParam, tProperty) + l.blob
	case tCustomAttribute:
		hasCustomAttribute := l.coded(5, tMethodDef, tField, tTypeRef, tTypeDef, tParam,
			tInterfaceImpl, tMemberRef, tModule, tDeclSecurity, tProperty, tEvent,
			tStandAloneSig, tModuleRef, tTypeSpec, tAssembly, tAssemblyRef, tFile,
			tExportedType, tManifestResource, tGenericParam, tGenericParamConstraint, tMethodSpec)
		return hasCustomAttribute + l.coded(3, tMethodDef, tMemberRef) + l.blob
	case tFieldMarshal:
		return l.coded(1, tField, tParam) + l.blob
	case tDeclSecurity:
		return 2 + l.coded(2, tTypeDef, tMethodDef, tAssembly) + l.blob
	case tClassLayout:
		return 6 + l.index(tTypeDef)
	case tFieldLayout:
		return 4 + l.index(tField)
	case tStandAloneSig:
		return l.blob
	case tEventMap:
		return l.index(tTypeDef) + l.index(tEvent)
	case tEventPtr:
		return l.index(tEvent)
	case tEvent:
		return 2 + l.str + typeDefOrRef
	case tPropertyMap:
		return l.index(tTypeDef) + l.index(tProperty)
	case tPropertyPtr:
		return l.index(tProperty)
	case tProperty:
		return 2 + l.str + l.blob
	case tMethodSemantics:
		return 2 + l.index(tMethodDef) + l.coded(1, tEvent, tProperty)
	case tMethodImpl:
		return l.index(tTypeDef) + 2*methodDefOrRef
	case tModuleRef:
		return l.str
	case tTypeSpec:
		return l.blob
	case tImplMap:
		return 2 + l.coded(1, tField, tMethodDef) + l.str + l.index(tModuleRef)
	case tFieldRVA:
		return 4 + l.index(tField)
	case tEncLog:
		return 8
	case tEncMap:
		return 4
	}
	return 0
}

func readAssemblyRow(tables, strs, blobs []byte) (Identity, error) {
	if len(tables) < 24 {
		return Identity{}, errors.New("truncated table stream header")
	}
	heapSizes := tables[6]
	valid := le.Uint64(tables[8:16])

	l := &layout{str: 2, guid: 2, blob: 2}
	if heapSizes&0x01 != 0 {
		l.str = 4
	}
	if heapSizes&0x02 != 0 {
		l.guid = 4
	}
	if heapSizes&0x04 != 0 {
		l.blob = 4
	}

	pos := 24
	for i := 0; i < 64; i++ {
		if valid&(1<<uint(i)) == 0 {
			continue
		}
		if pos+4 > len(tables) {
			return Identity{}, errors.New("truncated row counts")
		}
		l.rows[i] = le.Uint32(tables[pos : pos+4])
		pos += 4
	}
	if heapSizes&0x40 != 0 {
		pos += 4
	}
	if l.rows[tAssembly] == 0 {
		return Identity{}, errors.New("image has no assembly manifest")
	}

	for t := tModule; t < tAssembly; t++ {
		pos += int(l.rows[t]) * l.rowSize(t)
	}

	rowLen := 16 + l.blob + 2*l.str
	if pos+rowLen > len(tables) {
		return Identity{}, errors.New("assembly row out of range")
	}
	row := tables[pos : pos+rowLen]

	version := fmt.Sprintf("%d.%d.%d.%d",
		le.Uint16(row[4:6]), le.Uint16(row[6:8]), le.Uint16(row[8:10]), le.Uint16(row[10:12]))
	flags := le.Uint32(row[12:16])
	at := 16
	keyIdx := readIndex(row[at:], l.blob)
	at += l.blob
	nameIdx := readIndex(row[at:], l.str)
	at += l.str
	cultureIdx := readIndex(row[at:], l.str)

	name, err := heapString(strs, nameIdx)
	if err != nil {
		return Identity{}, err
	}
	culture, err := heapString(strs, cultureIdx)
	if err != nil {
		return Identity{}, err
	}
	key, err := heapBlob(blobs, keyIdx)
	if err != nil {
		return Identity{}, err
	}

	id := Identity{Name: name, Version: version}
	if !strings.EqualFold(culture, "neutral") {
		id.Culture = culture
	}
	if len(key) > 0 {
		if flags&afPublicKey != 0 {
			id.PublicKeyToken = publicKeyToken(key)
		} else {
			id.PublicKeyToken = key
		}
	}
	return id, nil
}

func readIndex(b []byte, size int) uint32 {
	if size == 4 {
		return le.Uint32(b)
	}
	return uint32(le.Uint16(b))
}

func heapString(heap []byte, idx uint32) (string, error) {
	if int(idx) > len(heap) {
		return "", fmt.Errorf("string index %d out of range", idx)
	}
	end := int(idx)
	for end < len(heap) && heap[end] != 0 {
		end++
	}
	return string(heap[idx:end]), nil
}

func heapBlob(heap []byte, idx uint32) ([]byte, error) {
	if idx == 0 {
		return nil, nil
	}
	i := int(idx)
	if i >= len(heap) {
		return nil, fmt.Errorf("blob index %d out of range", idx)
	}

	var n, hdr int
	b := heap[i]
	switch {
	case b&0x80 == 0:
		n, hdr = int(b), 1
	case b&0xC0 == 0x80 && i+1 < len(heap):
		n, hdr = int(b&0x3F)<<8|int(heap[i+1]), 2
	case b&0xE0 == 0xC0 && i+3 < len(heap):
		n, hdr = int(b&0x1F)<<24|int(heap[i+1])<<16|int(heap[i+2])<<8|int(heap[i+3]), 4
	default:
		return nil, fmt.Errorf("bad blob header at %d", idx)
	}
	if i+hdr+n > len(heap) {
		return nil, fmt.Errorf("blob at %d out of range", idx)
	}
	return heap[i+hdr : i+hdr+n], nil
}

// publicKeyToken is the last eight bytes of the SHA-1 of the key, reversed.
func publicKeyToken(key []byte) []byte {
	sum := sha1.Sum(key)
	token := make([]byte, 8)
	for i := 0; i < 8; i++ {
		token[i] = sum[len(sum)-1-i]
	}
	return token
}
