// pkg/container/compress.go
package container

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/ulikunitz/xz/lzma"
	"golang.org/x/sync/errgroup"
)

// LZMAHeaderSize is the properties block of an LZMA-alone stream, which
// precedes the uncompressed-size field
const LZMAHeaderSize = 5

// DefaultCompressorArgs make an LZMA command line tool read stdin and
// write stdout
var DefaultCompressorArgs = []string{"e", "-si", "-so"}

// Compressor turns the operation stream into an LZMA-alone stream.
// Compress calls produce exactly once with the writer that feeds the coder
// and returns after the coded output has been fully written to dst.
type Compressor interface {
	// HeaderSize is the number of coder header bytes before the size field
	HeaderSize() int64

	// Compress codes everything produce writes into dst
	Compress(ctx context.Context, dst io.Writer, produce func(io.Writer) error) error

	// Name identifies the compressor in logs
	Name() string
}

// LZMA compresses in-process
type LZMA struct {
	DictCap int // Dictionary capacity; zero selects the coder default
}

func (c *LZMA) Name() string { return "lzma" }

func (c *LZMA) HeaderSize() int64 { return LZMAHeaderSize }

// Compress runs the producer and the coder concurrently, joined by a pipe
func (c *LZMA) Compress(ctx context.Context, dst io.Writer, produce func(io.Writer) error) error {
	pr, pw := io.Pipe()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := produce(pw)
		pw.CloseWithError(err)
		return err
	})
	g.Go(func() error {
		zw, err := lzma.WriterConfig{DictCap: c.DictCap}.NewWriter(dst)
		if err != nil {
			pr.CloseWithError(err)
			return fmt.Errorf("creating lzma writer: %w", err)
		}
		if _, err := io.Copy(zw, contextReader{ctx, pr}); err != nil {
			pr.CloseWithError(err)
			return err
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("finishing lzma stream: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// Exec pipes the stream through an external compressor
type Exec struct {
	Path   string   // Compressor executable
	Args   []string // Arguments; nil selects DefaultCompressorArgs
	Header int64    // Header size; zero selects LZMAHeaderSize
}

func (c *Exec) Name() string { return c.Path }

func (c *Exec) HeaderSize() int64 {
	if c.Header > 0 {
		return c.Header
	}
	return LZMAHeaderSize
}

// Compress starts the compressor and runs two workers: one feeds the
// producer's output to its stdin and closes it, the other drains its stdout
// into dst. A failed drain kills the process so the feeder cannot block.
// The process is reaped after both workers are done.
func (c *Exec) Compress(ctx context.Context, dst io.Writer, produce func(io.Writer) error) error {
	args := c.Args
	if args == nil {
		args = DefaultCompressorArgs
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("compressor stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("compressor stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return &CompressorError{Path: c.Path, Err: err}
	}

	var g errgroup.Group
	var produceErr, drainErr error
	g.Go(func() error {
		produceErr = produce(stdin)
		if err := stdin.Close(); err != nil && produceErr == nil {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if _, err := io.Copy(dst, stdout); err != nil {
			drainErr = err
			cancel()
		}
		return nil
	})
	feedErr := g.Wait()
	waitErr := cmd.Wait()

	switch {
	case drainErr != nil:
		return fmt.Errorf("writing output of compressor %s: %w", c.Path, drainErr)
	case waitErr != nil:
		return newCompressorError(c.Path, waitErr, stderr.String())
	case produceErr != nil:
		return produceErr
	case feedErr != nil:
		return fmt.Errorf("compressor %s: %w", c.Path, feedErr)
	}
	return nil
}

// CompressorError reports an external compressor that did not succeed
type CompressorError struct {
	Path     string
	ExitCode int
	Signaled bool
	Stderr   string
	Err      error
	started  bool
}

func newCompressorError(path string, err error, stderr string) *CompressorError {
	ce := &CompressorError{Path: path, Stderr: strings.TrimSpace(stderr), Err: err, started: true}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		ce.ExitCode = exitErr.ExitCode()
		ce.Signaled = ce.ExitCode < 0
	}
	return ce
}

func (e *CompressorError) Error() string {
	var msg string
	switch {
	case !e.started && e.Err != nil:
		msg = fmt.Sprintf("could not run compressor %s: %v", e.Path, e.Err)
	case e.Signaled:
		msg = fmt.Sprintf("compressor %s was terminated: %v", e.Path, e.Err)
	case e.ExitCode == 0:
		msg = fmt.Sprintf("compressor %s reported success, but the system reported an error: %v", e.Path, e.Err)
	default:
		msg = fmt.Sprintf("compressor %s failed with exit code %d", e.Path, e.ExitCode)
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CompressorError) Unwrap() error { return e.Err }

func (e *CompressorError) Is(target error) bool { return target == ErrCompressor }

// contextReader stops reading once ctx is done
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (r contextReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Decompress decodes an LZMA-alone stream. The size field is ignored in
// favor of the end marker, so streams whose size was patched after coding
// decode the same way as unpatched ones.
func Decompress(data []byte, headerSize int64) ([]byte, error) {
	if int64(len(data)) < headerSize+SizeFieldLen {
		return nil, fmt.Errorf("%w: compressed stream too short", ErrBadArtifact)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	for i := headerSize; i < headerSize+SizeFieldLen; i++ {
		buf[i] = 0xFF
	}
	zr, err := lzma.NewReader(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadArtifact, err)
	}
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding stream: %v", ErrBadArtifact, err)
	}
	return out, nil
}
