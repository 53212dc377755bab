// pkg/container/builder.go
package container

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/arc-language/stubpack/pkg/builder"
	"github.com/arc-language/stubpack/pkg/pathset"
	"github.com/arc-language/stubpack/pkg/platform"
	"github.com/charmbracelet/log"
)

// IconPatcher rewrites resources of the stub copy at path before the
// payload is appended
type IconPatcher func(ctx context.Context, path string) error

// Options configures Build
type Options struct {
	Stub         string             // Prebuilt extractor stub
	Output       string             // Artifact path
	Platform     *platform.Platform // Target platform; nil selects the host
	DebugMode    bool               // Extractor prints debug output
	DebugExtract bool               // Extract next to the artifact and keep the files
	ChdirBefore  bool               // Change into the source directory before launching
	Compressor   Compressor         // nil writes the stream uncompressed
	IconPatcher  IconPatcher        // Optional resource patcher for the stub copy
	Logger       *log.Logger
}

// Result describes a finished artifact
type Result struct {
	Path       string
	Offset     int64 // Position of the flags byte
	DataSize   int64 // Uncompressed operation stream size
	Size       int64 // Total artifact size
	Flags      Flags
	Compressed bool
}

// Builder writes operations straight into the artifact's stream. It is
// only valid inside the function passed to Build.
type Builder struct {
	w        *Writer
	dirs     *pathset.Set
	files    *pathset.Set
	entrySet bool
}

var (
	_ builder.Builder = (*Builder)(nil)
	_ builder.Toucher = (*Builder)(nil)
)

// CreateDirectory implements builder.Builder
func (b *Builder) CreateDirectory(target string) error {
	added, err := b.dirs.Add(builder.DirectorySource, target)
	if err != nil || !added {
		return err
	}
	t, _ := pathset.CleanTarget(target)
	return b.w.CreateDirectory(t)
}

// CreateFile implements builder.Builder. The source must exist.
func (b *Builder) CreateFile(source, target string) error {
	info, err := os.Stat(source)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w (%s)", ErrSourceMissing, source)
		}
		return fmt.Errorf("checking %s: %w", source, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", source)
	}

	added, err := b.files.Add(source, target)
	if err != nil || !added {
		return err
	}
	t, _ := pathset.CleanTarget(target)
	return b.w.CreateFile(t, source)
}

// Touch implements builder.Toucher with an empty CREATE_FILE record
func (b *Builder) Touch(target string) error {
	added, err := b.files.Add(builder.PlaceholderSource, target)
	if err != nil || !added {
		return err
	}
	t, _ := pathset.CleanTarget(target)
	return b.w.CreateData(t, nil)
}

// SetEnvironment implements builder.Builder
func (b *Builder) SetEnvironment(name, value string) error {
	return b.w.SetEnvironment(name, value)
}

// SetEntryPoint implements builder.Builder
func (b *Builder) SetEntryPoint(interpreter, script string, args ...string) error {
	if b.entrySet {
		return builder.ErrEntryPointSet
	}
	b.entrySet = true
	return b.w.SetEntryPoint(interpreter, script, args...)
}

// Build creates the artifact at opts.Output. The stub is copied to a
// temporary file next to the output, fn emits the operations, and the
// trailer is appended. The output only appears when every step succeeded;
// on failure the temporary file is removed.
func Build(ctx context.Context, opts Options, fn func(*Builder) error) (*Result, error) {
	if opts.Stub == "" {
		return nil, errors.New("no stub given")
	}
	if opts.Output == "" {
		return nil, errors.New("no output path given")
	}
	plat := opts.Platform
	if plat == nil {
		detected, err := platform.Detect()
		if err != nil {
			return nil, err
		}
		plat = detected
	}
	logger := opts.Logger
	if logger == nil {
		logger = builder.DiscardLogger()
	}

	out, err := filepath.Abs(opts.Output)
	if err != nil {
		return nil, fmt.Errorf("resolving output path: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(out), "."+filepath.Base(out)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("creating temporary file: %w", err)
	}
	tmpName := tmp.Name()
	f := tmp

	success := false
	defer func() {
		if !success {
			if f != nil {
				f.Close()
			}
			os.Remove(tmpName)
		}
	}()

	if err := copyStub(tmp, opts.Stub); err != nil {
		return nil, err
	}

	if opts.IconPatcher != nil {
		// The patcher works on the path; release our handle first.
		if err := tmp.Close(); err != nil {
			return nil, fmt.Errorf("closing stub copy: %w", err)
		}
		f = nil
		logger.Infof("Patching resources of %s", opts.Stub)
		if err := opts.IconPatcher(ctx, tmpName); err != nil {
			return nil, fmt.Errorf("patching stub resources: %w", err)
		}
		f, err = os.OpenFile(tmpName, os.O_RDWR, 0)
		if err != nil {
			return nil, fmt.Errorf("reopening stub copy: %w", err)
		}
	}

	offset, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("seeking stub copy: %w", err)
	}
	if offset > MaxSize {
		return nil, fmt.Errorf("%w: payload offset %d", ErrSizeTooLarge, offset)
	}

	compressed := opts.Compressor != nil
	flags := HeaderFlags(opts.DebugMode, opts.DebugExtract, opts.ChdirBefore, compressed)
	if _, err := f.Write([]byte{byte(flags)}); err != nil {
		return nil, fmt.Errorf("writing flags: %w", err)
	}

	b := &Builder{
		dirs:  pathset.New(plat.CaseInsensitive),
		files: pathset.New(plat.CaseInsensitive),
	}
	produce := func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		b.w = NewWriter(bw, plat.Separator)
		if err := fn(b); err != nil {
			return err
		}
		if err := b.w.End(); err != nil {
			return err
		}
		return bw.Flush()
	}

	if compressed {
		logger.Infof("Compressing with %s", opts.Compressor.Name())
		if err := opts.Compressor.Compress(ctx, f, produce); err != nil {
			return nil, err
		}
		var size [SizeFieldLen]byte
		binary.LittleEndian.PutUint64(size[:], uint64(b.w.Size()))
		if _, err := f.WriteAt(size[:], offset+1+opts.Compressor.HeaderSize()); err != nil {
			return nil, fmt.Errorf("writing uncompressed size: %w", err)
		}
		if _, err := f.Seek(0, io.SeekEnd); err != nil {
			return nil, fmt.Errorf("seeking artifact: %w", err)
		}
	} else if err := produce(f); err != nil {
		return nil, err
	}

	var trailer [TrailerLen]byte
	binary.LittleEndian.PutUint32(trailer[:4], uint32(offset))
	copy(trailer[4:], Signature[:])
	if _, err := f.Write(trailer[:]); err != nil {
		return nil, fmt.Errorf("writing trailer: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("checking artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("closing artifact: %w", err)
	}
	f = nil
	if err := os.Chmod(tmpName, 0755); err != nil {
		return nil, fmt.Errorf("setting artifact mode: %w", err)
	}
	if err := os.Rename(tmpName, out); err != nil {
		return nil, fmt.Errorf("moving artifact into place: %w", err)
	}
	success = true

	logger.Debugf("payload at offset %d, %d bytes of operations", offset, b.w.Size())
	return &Result{
		Path:       out,
		Offset:     offset,
		DataSize:   b.w.Size(),
		Size:       info.Size(),
		Flags:      flags,
		Compressed: compressed,
	}, nil
}

func copyStub(dst *os.File, stub string) error {
	src, err := os.Open(stub)
	if err != nil {
		return fmt.Errorf("opening stub: %w", err)
	}
	defer src.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copying stub: %w", err)
	}
	return nil
}
