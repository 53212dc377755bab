package container

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestEncodeString(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []byte
		wantErr error
	}{
		{name: "empty", in: "", want: []byte{1, 0, 0}},
		{name: "ascii", in: "bin", want: []byte{4, 0, 'b', 'i', 'n', 0}},
		{name: "longest", in: strings.Repeat("a", MaxStringLen-1)},
		{name: "too long", in: strings.Repeat("a", MaxStringLen), wantErr: ErrStringTooLong},
		{name: "embedded NUL", in: "a\x00b", wantErr: ErrStringTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeString(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if tt.want != nil && !bytes.Equal(got, tt.want) {
				t.Errorf("EncodeString(%q) = %v, want %v", tt.in, got, tt.want)
			}

			decoded, n, err := DecodeString(got)
			if err != nil {
				t.Fatal(err)
			}
			if decoded != tt.in || n != len(got) {
				t.Errorf("DecodeString() = (%d bytes, %d consumed), want (%d, %d)", len(decoded), n, len(tt.in), len(got))
			}
		})
	}
}

func TestWriteSizeLimit(t *testing.T) {
	w := NewWriter(&bytes.Buffer{}, '/')
	if err := w.WriteSize(MaxSize); err != nil {
		t.Errorf("WriteSize(MaxSize) = %v", err)
	}
	if err := w.WriteSize(MaxSize + 1); !errors.Is(err, ErrSizeTooLarge) {
		t.Errorf("expected ErrSizeTooLarge, got %v", err)
	}
	if err := w.WriteSize(-1); !errors.Is(err, ErrSizeTooLarge) {
		t.Errorf("expected ErrSizeTooLarge for negative size, got %v", err)
	}
}

func TestWriterCountsBytes(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, '/')
	if err := w.CreateDirectory("src"); err != nil {
		t.Fatal(err)
	}
	if err := w.CreateData("src/a.rb", []byte("puts 1")); err != nil {
		t.Fatal(err)
	}
	if err := w.End(); err != nil {
		t.Fatal(err)
	}
	if w.Size() != int64(buf.Len()) {
		t.Errorf("Size() = %d, buffer holds %d", w.Size(), buf.Len())
	}
}

func TestEntryPointSeparators(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, '\\')
	if err := w.SetEntryPoint("bin/ruby.exe", "src/app.rb", "--dir=a/b"); err != nil {
		t.Fatal(err)
	}
	if err := w.End(); err != nil {
		t.Fatal(err)
	}

	records, err := DecodeOps(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	want := []string{`bin\ruby.exe`, `src\app.rb`, "--dir=a/b"}
	got := records[0].Args
	if len(got) != len(want) {
		t.Fatalf("Args = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Args[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestHeaderFlags(t *testing.T) {
	tests := []struct {
		name                              string
		debug, extract, chdir, compressed bool
		want                              Flags
	}{
		{name: "defaults", chdir: true, compressed: true, want: FlagAutoCleanInstDir | FlagChdirBeforeScript | FlagDataCompressed},
		{name: "debug extract", debug: true, extract: true, want: FlagDebugMode | FlagExtractToExeDir},
		{name: "nothing", want: FlagAutoCleanInstDir},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HeaderFlags(tt.debug, tt.extract, tt.chdir, tt.compressed)
			if got != tt.want {
				t.Errorf("HeaderFlags() = %#02x, want %#02x", byte(got), byte(tt.want))
			}
			if got.Has(FlagExtractToExeDir) == got.Has(FlagAutoCleanInstDir) {
				t.Error("exactly one extraction mode must be set")
			}
		})
	}
}

func TestDecodeOpsRejectsGarbage(t *testing.T) {
	tests := []struct {
		name   string
		stream []byte
	}{
		{name: "empty", stream: nil},
		{name: "unknown opcode", stream: []byte{9, 0}},
		{name: "truncated string", stream: []byte{byte(OpCreateDirectory), 5, 0, 'a'}},
		{name: "trailing bytes", stream: []byte{0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeOps(tt.stream); !errors.Is(err, ErrBadArtifact) {
				t.Errorf("expected ErrBadArtifact, got %v", err)
			}
		})
	}
}
