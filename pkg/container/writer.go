// pkg/container/writer.go
package container

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"
)

// Writer encodes operation records. Size reports how many stream bytes were
// produced, which is the uncompressed payload size when a coder is used.
type Writer struct {
	w   io.Writer
	n   int64
	sep byte
}

// NewWriter creates a Writer that converts target paths to use sep
func NewWriter(w io.Writer, sep byte) *Writer {
	if sep == 0 {
		sep = '/'
	}
	return &Writer{w: w, sep: sep}
}

// Size returns the number of bytes written so far
func (w *Writer) Size() int64 {
	return w.n
}

func (w *Writer) write(p []byte) error {
	n, err := w.w.Write(p)
	w.n += int64(n)
	return err
}

// WriteOpcode writes a single opcode byte
func (w *Writer) WriteOpcode(op Opcode) error {
	return w.write([]byte{byte(op)})
}

// WriteSize writes a 32-bit little-endian size field
func (w *Writer) WriteSize(size int64) error {
	if size < 0 || size > MaxSize {
		return fmt.Errorf("%w: %d must be a 32-bit unsigned integer (0 to %d)", ErrSizeTooLarge, size, uint64(MaxSize))
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(size))
	return w.write(b[:])
}

// WriteString writes a length-prefixed, NUL-terminated string
func (w *Writer) WriteString(s string) error {
	b, err := EncodeString(s)
	if err != nil {
		return err
	}
	return w.write(b)
}

// WritePath writes a target path using the native separator
func (w *Writer) WritePath(p string) error {
	return w.WriteString(w.native(p))
}

// WriteStringArray writes a size field followed by NUL-terminated strings
func (w *Writer) WriteStringArray(strs ...string) error {
	var size int64
	for _, s := range strs {
		if strings.IndexByte(s, 0) >= 0 {
			return fmt.Errorf("%w: string %q contains a NUL byte", ErrStringTooLong, s)
		}
		size += int64(len(s)) + 1
	}
	if err := w.WriteSize(size); err != nil {
		return err
	}
	for _, s := range strs {
		if err := w.write(append([]byte(s), 0)); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile writes a size field followed by the contents of src
func (w *Writer) WriteFile(src string) error {
	f, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w (%s)", ErrSourceMissing, src)
		}
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("checking %s: %w", src, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", src)
	}
	if info.Size() > MaxSize {
		return fmt.Errorf("%w: %s is %d bytes", ErrSizeTooLarge, src, info.Size())
	}

	if err := w.WriteSize(info.Size()); err != nil {
		return err
	}
	n, err := io.CopyN(w.w, f, info.Size())
	w.n += n
	if err != nil {
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return nil
}

// CreateDirectory writes a CREATE_DIRECTORY record
func (w *Writer) CreateDirectory(target string) error {
	if err := w.WriteOpcode(OpCreateDirectory); err != nil {
		return err
	}
	return w.WritePath(target)
}

// CreateFile writes a CREATE_FILE record holding the contents of src
func (w *Writer) CreateFile(target, src string) error {
	if err := w.WriteOpcode(OpCreateFile); err != nil {
		return err
	}
	if err := w.WritePath(target); err != nil {
		return err
	}
	return w.WriteFile(src)
}

// CreateData writes a CREATE_FILE record holding data
func (w *Writer) CreateData(target string, data []byte) error {
	if err := w.WriteOpcode(OpCreateFile); err != nil {
		return err
	}
	if err := w.WritePath(target); err != nil {
		return err
	}
	if err := w.WriteSize(int64(len(data))); err != nil {
		return err
	}
	return w.write(data)
}

// SetEnvironment writes a SET_ENVIRONMENT record
func (w *Writer) SetEnvironment(name, value string) error {
	if err := w.WriteOpcode(OpSetEnvironment); err != nil {
		return err
	}
	if err := w.WriteString(name); err != nil {
		return err
	}
	return w.WriteString(value)
}

// SetEntryPoint writes a SET_ENTRY_POINT record. The interpreter and script
// are paths and use the native separator; arguments are written verbatim.
func (w *Writer) SetEntryPoint(interpreter, script string, args ...string) error {
	if err := w.WriteOpcode(OpSetEntryPoint); err != nil {
		return err
	}
	all := append([]string{w.native(interpreter), w.native(script)}, args...)
	return w.WriteStringArray(all...)
}

// End writes the END record
func (w *Writer) End() error {
	return w.WriteOpcode(OpEnd)
}

func (w *Writer) native(p string) string {
	if w.sep == '/' {
		return p
	}
	return strings.ReplaceAll(p, "/", string(w.sep))
}

// EncodeString returns the wire form of s: a 16-bit little-endian length
// (bytes plus the NUL), the bytes, and the NUL.
func EncodeString(s string) ([]byte, error) {
	if strings.IndexByte(s, 0) >= 0 {
		return nil, fmt.Errorf("%w: string %q contains a NUL byte", ErrStringTooLong, s)
	}
	n := len(s) + 1
	if n > MaxStringLen {
		return nil, fmt.Errorf("%w: length %d exceeds %d bytes including the NUL terminator", ErrStringTooLong, n, MaxStringLen)
	}
	b := make([]byte, 2, 2+n)
	binary.LittleEndian.PutUint16(b, uint16(n))
	b = append(b, s...)
	return append(b, 0), nil
}

// DecodeString reads one encoded string from b and returns it with the
// number of bytes consumed.
func DecodeString(b []byte) (string, int, error) {
	if len(b) < 2 {
		return "", 0, fmt.Errorf("%w: truncated string length", ErrBadArtifact)
	}
	n := int(binary.LittleEndian.Uint16(b))
	if n == 0 || len(b) < 2+n {
		return "", 0, fmt.Errorf("%w: truncated string", ErrBadArtifact)
	}
	if b[1+n] != 0 {
		return "", 0, fmt.Errorf("%w: string is not NUL-terminated", ErrBadArtifact)
	}
	return string(b[2 : 1+n]), 2 + n, nil
}
