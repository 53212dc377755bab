package container

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func produceString(s string) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	}
}

func TestLZMARoundTrip(t *testing.T) {
	payload := strings.Repeat("CREATE_FILE src/app.rb ", 500)

	var buf bytes.Buffer
	c := &LZMA{}
	if err := c.Compress(context.Background(), &buf, produceString(payload)); err != nil {
		t.Fatal(err)
	}
	if buf.Len() >= len(payload) {
		t.Errorf("compressed %d bytes into %d", len(payload), buf.Len())
	}

	got, err := Decompress(buf.Bytes(), c.HeaderSize())
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != payload {
		t.Error("round trip changed the payload")
	}
}

func TestLZMAProducerError(t *testing.T) {
	boom := errors.New("boom")
	err := (&LZMA{}).Compress(context.Background(), io.Discard, func(w io.Writer) error {
		io.WriteString(w, "partial")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected producer error, got %v", err)
	}
}

func TestExecPipesThrough(t *testing.T) {
	cat, err := exec.LookPath("cat")
	if err != nil {
		t.Skip("cat not available")
	}

	var buf bytes.Buffer
	c := &Exec{Path: cat, Args: []string{}}
	if err := c.Compress(context.Background(), &buf, produceString("payload")); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "payload" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestExecFailure(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}

	c := &Exec{Path: sh, Args: []string{"-c", "cat >/dev/null; echo bad input >&2; exit 3"}}
	err = c.Compress(context.Background(), io.Discard, produceString("payload"))
	if !errors.Is(err, ErrCompressor) {
		t.Fatalf("expected ErrCompressor, got %v", err)
	}
	var ce *CompressorError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CompressorError, got %T", err)
	}
	if ce.ExitCode != 3 || ce.Signaled {
		t.Errorf("ExitCode = %d, Signaled = %v", ce.ExitCode, ce.Signaled)
	}
	if !strings.Contains(err.Error(), "bad input") {
		t.Errorf("stderr missing from %q", err.Error())
	}
}

// failingWriter accepts limit bytes, then fails every write
type failingWriter struct {
	limit int
	n     int
}

var errDiskFull = errors.New("disk full")

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.n+len(p) > w.limit {
		return 0, errDiskFull
	}
	w.n += len(p)
	return len(p), nil
}

func TestExecOutputFailureStopsCompressor(t *testing.T) {
	cat, err := exec.LookPath("cat")
	if err != nil {
		t.Skip("cat not available")
	}

	payload := bytes.Repeat([]byte("0123456789abcdef"), 512*1024)
	c := &Exec{Path: cat, Args: []string{}}

	done := make(chan error, 1)
	go func() {
		done <- c.Compress(context.Background(), &failingWriter{limit: 1024}, func(w io.Writer) error {
			_, err := w.Write(payload)
			return err
		})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, errDiskFull) {
			t.Fatalf("Compress() error = %v, want the output error", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Compress() did not return after the output writer failed")
	}
}

func TestExecMissingBinary(t *testing.T) {
	c := &Exec{Path: "/nonexistent/lzma"}
	err := c.Compress(context.Background(), io.Discard, produceString("payload"))
	if !errors.Is(err, ErrCompressor) {
		t.Errorf("expected ErrCompressor, got %v", err)
	}
}

func TestCompressorErrorMessages(t *testing.T) {
	failed := &CompressorError{Path: "lzma", ExitCode: 1}
	if !strings.Contains(failed.Error(), "exit code 1") {
		t.Errorf("message = %q", failed.Error())
	}
	race := newCompressorError("lzma", errors.New("wait failed"), "")
	if !strings.Contains(race.Error(), "reported success") {
		t.Errorf("message = %q", race.Error())
	}
}

func TestStreamRejectsSizeMismatch(t *testing.T) {
	var buf bytes.Buffer
	if err := (&LZMA{}).Compress(context.Background(), &buf, produceString("abc")); err != nil {
		t.Fatal(err)
	}
	payload := buf.Bytes()
	// declare one byte more than the coded stream holds
	payload[LZMAHeaderSize] = 4
	for i := LZMAHeaderSize + 1; i < LZMAHeaderSize+SizeFieldLen; i++ {
		payload[i] = 0
	}

	a := &Artifact{Flags: FlagDataCompressed, Payload: payload}
	if _, err := a.Stream(); !errors.Is(err, ErrBadArtifact) {
		t.Errorf("expected ErrBadArtifact, got %v", err)
	}
}
