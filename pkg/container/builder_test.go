package container

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/arc-language/stubpack/pkg/builder"
	"github.com/arc-language/stubpack/pkg/pathset"
	"github.com/arc-language/stubpack/pkg/platform"
)

var stubBytes = []byte("MZ-fake-extractor-stub")

type fixture struct {
	dir         string
	stub        string
	interpreter string
	script      string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	fx := fixture{
		dir:         dir,
		stub:        filepath.Join(dir, "stub.bin"),
		interpreter: filepath.Join(dir, "ruby", "bin", "ruby"),
		script:      filepath.Join(dir, "proj", "app.rb"),
	}
	write(t, fx.stub, stubBytes)
	write(t, fx.interpreter, []byte("\x7fELF interpreter"))
	write(t, fx.script, []byte("puts 'hello'\n"))
	return fx
}

func write(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func linux(t *testing.T) *platform.Platform {
	t.Helper()
	p, err := platform.ForOS("linux", "amd64")
	if err != nil {
		t.Fatal(err)
	}
	return p
}

// emitApp writes the operations of a single-script package
func (fx fixture) emitApp(b *Builder) error {
	if err := b.CreateFile(fx.interpreter, "bin/ruby"); err != nil {
		return err
	}
	if err := b.CreateFile(fx.script, "src/app.rb"); err != nil {
		return err
	}
	if err := b.SetEnvironment("RUBYLIB", ""); err != nil {
		return err
	}
	if err := b.SetEnvironment("GEM_PATH", "|/gems"); err != nil {
		return err
	}
	return b.SetEntryPoint("bin/ruby", "src/app.rb")
}

func TestBuildUncompressed(t *testing.T) {
	fx := newFixture(t)
	out := filepath.Join(fx.dir, "app")

	res, err := Build(context.Background(), Options{
		Stub:        fx.stub,
		Output:      out,
		Platform:    linux(t),
		ChdirBefore: true,
	}, fx.emitApp)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, stubBytes) {
		t.Error("artifact does not start with the stub")
	}
	if res.Offset != int64(len(stubBytes)) {
		t.Errorf("Offset = %d, want %d", res.Offset, len(stubBytes))
	}
	if res.Size != int64(len(data)) {
		t.Errorf("Size = %d, file is %d bytes", res.Size, len(data))
	}

	tail := data[len(data)-TrailerLen:]
	if got := binary.LittleEndian.Uint32(tail[:4]); got != uint32(len(stubBytes)) {
		t.Errorf("trailer offset = %d", got)
	}
	if !bytes.Equal(tail[4:], []byte{0x4E, 0xBA, 0xB6, 0x41}) {
		t.Errorf("signature = % x", tail[4:])
	}

	a, err := ParseArtifact(data)
	if err != nil {
		t.Fatal(err)
	}
	if a.Flags != FlagAutoCleanInstDir|FlagChdirBeforeScript {
		t.Errorf("flags = %#02x", byte(a.Flags))
	}
	if int64(len(a.Payload)) != res.DataSize {
		t.Errorf("payload %d bytes, DataSize %d", len(a.Payload), res.DataSize)
	}

	records, err := DecodeOps(a.Payload)
	if err != nil {
		t.Fatal(err)
	}
	wantOps := []Opcode{OpCreateFile, OpCreateFile, OpSetEnvironment, OpSetEnvironment, OpSetEntryPoint, OpEnd}
	if len(records) != len(wantOps) {
		t.Fatalf("decoded %d records, want %d: %v", len(records), len(wantOps), records)
	}
	for i, op := range wantOps {
		if records[i].Op != op {
			t.Errorf("record %d = %s, want %s", i, records[i].Op, op)
		}
	}
	if records[1].Path != "src/app.rb" || string(records[1].Data) != "puts 'hello'\n" {
		t.Errorf("script record = %v", records[1])
	}
	if args := records[4].Args; len(args) != 2 || args[0] != "bin/ruby" || args[1] != "src/app.rb" {
		t.Errorf("entry point = %q", args)
	}

	if info, err := os.Stat(out); err == nil && info.Mode().Perm()&0100 == 0 {
		t.Errorf("artifact is not executable: %v", info.Mode())
	}
}

func TestBuildCompressed(t *testing.T) {
	fx := newFixture(t)
	out := filepath.Join(fx.dir, "app")

	res, err := Build(context.Background(), Options{
		Stub:       fx.stub,
		Output:     out,
		Platform:   linux(t),
		Compressor: &LZMA{},
	}, fx.emitApp)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	a, err := ReadArtifact(out)
	if err != nil {
		t.Fatal(err)
	}
	if !a.Compressed() {
		t.Fatal("compressed flag not set")
	}

	size, err := a.DeclaredSize(LZMAHeaderSize)
	if err != nil {
		t.Fatal(err)
	}
	if size != uint64(res.DataSize) {
		t.Errorf("declared size = %d, DataSize = %d", size, res.DataSize)
	}

	stream, err := a.Stream()
	if err != nil {
		t.Fatal(err)
	}
	if int64(len(stream)) != res.DataSize {
		t.Errorf("decoded %d bytes, want %d", len(stream), res.DataSize)
	}
	records, err := DecodeOps(stream)
	if err != nil {
		t.Fatal(err)
	}
	if records[len(records)-1].Op != OpEnd {
		t.Error("stream does not end with END")
	}
}

func TestBuildRemovesPartialArtifact(t *testing.T) {
	fx := newFixture(t)
	out := filepath.Join(fx.dir, "app")

	_, err := Build(context.Background(), Options{
		Stub:     fx.stub,
		Output:   out,
		Platform: linux(t),
	}, func(b *Builder) error {
		return b.CreateFile(filepath.Join(fx.dir, "missing.rb"), "src/missing.rb")
	})
	if !errors.Is(err, ErrSourceMissing) {
		t.Fatalf("expected ErrSourceMissing, got %v", err)
	}

	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("output exists after failed build")
	}
	leftovers, _ := filepath.Glob(filepath.Join(fx.dir, ".app.*"))
	if len(leftovers) != 0 {
		t.Errorf("temporary files left behind: %v", leftovers)
	}
}

func TestBuildFailingIconPatcher(t *testing.T) {
	fx := newFixture(t)
	out := filepath.Join(fx.dir, "app")
	called := false

	_, err := Build(context.Background(), Options{
		Stub:     fx.stub,
		Output:   out,
		Platform: linux(t),
		IconPatcher: func(ctx context.Context, path string) error {
			called = true
			return errors.New("icon tool exited with status 1")
		},
	}, fx.emitApp)
	if err == nil {
		t.Fatal("expected error from icon patcher")
	}
	if !called {
		t.Error("icon patcher was not run")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("output exists after failed build")
	}
}

func TestBuilderDeduplication(t *testing.T) {
	fx := newFixture(t)
	other := filepath.Join(fx.dir, "other", "app.rb")
	write(t, other, []byte("puts 2"))

	res, err := Build(context.Background(), Options{
		Stub:     fx.stub,
		Output:   filepath.Join(fx.dir, "dedup"),
		Platform: linux(t),
	}, func(b *Builder) error {
		for i := 0; i < 2; i++ {
			if err := b.CreateDirectory("src"); err != nil {
				return err
			}
			if err := b.CreateFile(fx.script, "src/app.rb"); err != nil {
				return err
			}
			if err := b.Touch("src/.keep"); err != nil {
				return err
			}
		}
		if err := b.CreateFile(other, "src/app.rb"); !errors.Is(err, pathset.ErrConflict) {
			t.Errorf("expected conflict, got %v", err)
		}
		if err := b.SetEntryPoint("bin/ruby", "src/app.rb"); err != nil {
			return err
		}
		if err := b.SetEntryPoint("bin/ruby", "src/app.rb"); !errors.Is(err, builder.ErrEntryPointSet) {
			t.Errorf("expected ErrEntryPointSet, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	a, err := ReadArtifact(res.Path)
	if err != nil {
		t.Fatal(err)
	}
	records, err := DecodeOps(a.Payload)
	if err != nil {
		t.Fatal(err)
	}
	// mkdir, cp, touch, exec, END
	if len(records) != 5 {
		t.Fatalf("got %d records: %v", len(records), records)
	}
	if records[2].Path != "src/.keep" || len(records[2].Data) != 0 {
		t.Errorf("touch record = %v", records[2])
	}
}

func TestBuildNativeSeparators(t *testing.T) {
	fx := newFixture(t)
	win, err := platform.ForOS("windows", "amd64")
	if err != nil {
		t.Fatal(err)
	}

	res, err := Build(context.Background(), Options{
		Stub:     fx.stub,
		Output:   filepath.Join(fx.dir, "app.exe"),
		Platform: win,
	}, func(b *Builder) error {
		if err := b.CreateDirectory("src/lib"); err != nil {
			return err
		}
		return b.SetEntryPoint("bin/ruby.exe", "src/app.rb")
	})
	if err != nil {
		t.Fatal(err)
	}

	a, err := ReadArtifact(res.Path)
	if err != nil {
		t.Fatal(err)
	}
	records, err := DecodeOps(a.Payload)
	if err != nil {
		t.Fatal(err)
	}
	if records[0].Path != `src\lib` {
		t.Errorf("directory = %q", records[0].Path)
	}
	if records[1].Args[0] != `bin\ruby.exe` || records[1].Args[1] != `src\app.rb` {
		t.Errorf("entry point = %q", records[1].Args)
	}
}
