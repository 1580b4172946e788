package msbuild

import (
	"bytes"
	"testing"
)

func TestParseIdentity(t *testing.T) {
	tests := []struct {
		in      string
		want    Identity
		wantErr bool
	}{
		{
			in:   "Lib",
			want: Identity{Name: "Lib"},
		},
		{
			in: "System.Core, Version=4.0.0.0, Culture=neutral, PublicKeyToken=b77a5c561934e089, processorArchitecture=MSIL",
			want: Identity{
				Name:           "System.Core",
				Version:        "4.0.0.0",
				PublicKeyToken: []byte{0xb7, 0x7a, 0x5c, 0x56, 0x19, 0x34, 0xe0, 0x89},
			},
		},
		{
			in:   "Lib.Resources, Version=1.2, Culture=de-DE, PublicKeyToken=null",
			want: Identity{Name: "Lib.Resources", Version: "1.2", Culture: "de-DE"},
		},
		{
			in:   "Lib, Version=01.002.0.0",
			want: Identity{Name: "Lib", Version: "1.2.0.0"},
		},
		{in: "", wantErr: true},
		{in: "Lib, Version=one", wantErr: true},
		{in: "Lib, Version=1", wantErr: true},
		{in: "Lib, PublicKeyToken=abc", wantErr: true},
		{in: "Lib, garbage", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseIdentity(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Name != tt.want.Name || got.Version != tt.want.Version || got.Culture != tt.want.Culture {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
			if !bytes.Equal(got.PublicKeyToken, tt.want.PublicKeyToken) {
				t.Errorf("token = %x, want %x", got.PublicKeyToken, tt.want.PublicKeyToken)
			}
		})
	}
}

func TestIdentityMatches(t *testing.T) {
	token := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	base := Identity{Name: "Lib", Version: "1.0.0.0", PublicKeyToken: token}

	tests := []struct {
		name  string
		other Identity
		want  bool
	}{
		{"identical", Identity{Name: "Lib", Version: "1.0.0.0", PublicKeyToken: token}, true},
		{"name case differs", Identity{Name: "LIB", Version: "1.0.0.0", PublicKeyToken: token}, true},
		{"version differs", Identity{Name: "Lib", Version: "1.0.0.1", PublicKeyToken: token}, false},
		{"version absent on one side", Identity{Name: "Lib", PublicKeyToken: token}, false},
		{"culture differs", Identity{Name: "Lib", Version: "1.0.0.0", Culture: "fr", PublicKeyToken: token}, false},
		{"token absent on one side", Identity{Name: "Lib", Version: "1.0.0.0"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Matches(tt.other); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}

	if !(Identity{Name: "A", PublicKeyToken: []byte{}}).Matches(Identity{Name: "a"}) {
		t.Error("empty and nil tokens should match")
	}
}

func TestIdentityString(t *testing.T) {
	if got := (Identity{Name: "Lib"}).String(); got != "Lib" {
		t.Errorf("bare name = %q", got)
	}

	id := Identity{Name: "Lib", Version: "1.0.0.0", PublicKeyToken: []byte{0xb7, 0x7a, 0x5c, 0x56, 0x19, 0x34, 0xe0, 0x89}}
	want := "Lib, Version=1.0.0.0, Culture=neutral, PublicKeyToken=b77a5c561934e089"
	if got := id.String(); got != want {
		t.Errorf("String = %q, want %q", got, want)
	}

	parsed, err := ParseIdentity(id.String())
	if err != nil {
		t.Fatalf("reparse failed: %v", err)
	}
	if !parsed.Matches(id) {
		t.Errorf("reparsed %+v does not match %+v", parsed, id)
	}
}
