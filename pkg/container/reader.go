// pkg/container/reader.go
package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

// Artifact is a decoded container
type Artifact struct {
	Offset  int64  // Position of the flags byte, which is also the stub size
	Flags   Flags  // Header flags
	Payload []byte // Bytes between the flags byte and the trailer
}

// ReadArtifact loads and splits the artifact at path
func ReadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}
	return ParseArtifact(data)
}

// ParseArtifact splits an artifact into stub, flags and payload using the
// trailer
func ParseArtifact(data []byte) (*Artifact, error) {
	if len(data) < TrailerLen+1 {
		return nil, fmt.Errorf("%w: file too short", ErrBadArtifact)
	}
	end := len(data) - TrailerLen
	if !bytes.Equal(data[end+4:], Signature[:]) {
		return nil, fmt.Errorf("%w: signature not found", ErrBadArtifact)
	}
	offset := int64(binary.LittleEndian.Uint32(data[end : end+4]))
	if offset >= int64(end) {
		return nil, fmt.Errorf("%w: payload offset %d out of range", ErrBadArtifact, offset)
	}
	return &Artifact{
		Offset:  offset,
		Flags:   Flags(data[offset]),
		Payload: data[offset+1 : end],
	}, nil
}

// Compressed reports whether the payload is coded
func (a *Artifact) Compressed() bool {
	return a.Flags.Has(FlagDataCompressed)
}

// DeclaredSize returns the uncompressed size recorded in a coded payload
func (a *Artifact) DeclaredSize(headerSize int64) (uint64, error) {
	if !a.Compressed() {
		return uint64(len(a.Payload)), nil
	}
	if int64(len(a.Payload)) < headerSize+SizeFieldLen {
		return 0, fmt.Errorf("%w: compressed stream too short", ErrBadArtifact)
	}
	return binary.LittleEndian.Uint64(a.Payload[headerSize : headerSize+SizeFieldLen]), nil
}

// Stream returns the operation stream, decoding it when compressed. A coded
// stream must decode to exactly the declared size.
func (a *Artifact) Stream() ([]byte, error) {
	if !a.Compressed() {
		return a.Payload, nil
	}
	size, err := a.DeclaredSize(LZMAHeaderSize)
	if err != nil {
		return nil, err
	}
	out, err := Decompress(a.Payload, LZMAHeaderSize)
	if err != nil {
		return nil, err
	}
	if uint64(len(out)) != size {
		return nil, fmt.Errorf("%w: decoded %d bytes, header declares %d", ErrBadArtifact, len(out), size)
	}
	return out, nil
}

// Record is one decoded operation
type Record struct {
	Op    Opcode
	Path  string   // CREATE_DIRECTORY and CREATE_FILE target, as stored
	Data  []byte   // CREATE_FILE contents
	Name  string   // SET_ENVIRONMENT name
	Value string   // SET_ENVIRONMENT value
	Args  []string // SET_ENTRY_POINT interpreter, script, arguments
}

func (r Record) String() string {
	switch r.Op {
	case OpCreateDirectory:
		return fmt.Sprintf("%s %s", r.Op, r.Path)
	case OpCreateFile:
		return fmt.Sprintf("%s %s (%d bytes)", r.Op, r.Path, len(r.Data))
	case OpSetEnvironment:
		return fmt.Sprintf("%s %s=%s", r.Op, r.Name, r.Value)
	case OpSetEntryPoint:
		return fmt.Sprintf("%s %q", r.Op, r.Args)
	default:
		return r.Op.String()
	}
}

// DecodeOps parses an operation stream up to and including END
func DecodeOps(stream []byte) ([]Record, error) {
	var records []Record
	d := decoder{b: stream}
	for {
		op, err := d.readByte()
		if err != nil {
			return nil, err
		}
		rec := Record{Op: Opcode(op)}
		switch rec.Op {
		case OpEnd:
			if d.pos != len(d.b) {
				return nil, fmt.Errorf("%w: %d trailing bytes after END", ErrBadArtifact, len(d.b)-d.pos)
			}
			return append(records, rec), nil
		case OpCreateDirectory:
			rec.Path, err = d.readString()
		case OpCreateFile:
			if rec.Path, err = d.readString(); err == nil {
				rec.Data, err = d.readSized()
			}
		case OpSetEnvironment:
			if rec.Name, err = d.readString(); err == nil {
				rec.Value, err = d.readString()
			}
		case OpSetEntryPoint:
			var raw []byte
			if raw, err = d.readSized(); err == nil {
				rec.Args, err = splitStrings(raw)
			}
		default:
			return nil, fmt.Errorf("%w: unknown opcode %d at offset %d", ErrBadArtifact, op, d.pos-1)
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
}

type decoder struct {
	b   []byte
	pos int
}

func (d *decoder) readByte() (byte, error) {
	if d.pos >= len(d.b) {
		return 0, fmt.Errorf("%w: stream ends without END", ErrBadArtifact)
	}
	c := d.b[d.pos]
	d.pos++
	return c, nil
}

func (d *decoder) readString() (string, error) {
	s, n, err := DecodeString(d.b[d.pos:])
	if err != nil {
		return "", err
	}
	d.pos += n
	return s, nil
}

func (d *decoder) readSized() ([]byte, error) {
	if len(d.b)-d.pos < 4 {
		return nil, fmt.Errorf("%w: truncated size", ErrBadArtifact)
	}
	n := int(binary.LittleEndian.Uint32(d.b[d.pos:]))
	d.pos += 4
	if len(d.b)-d.pos < n {
		return nil, fmt.Errorf("%w: truncated data", ErrBadArtifact)
	}
	data := d.b[d.pos : d.pos+n]
	d.pos += n
	return data, nil
}

func splitStrings(raw []byte) ([]string, error) {
	if len(raw) == 0 || raw[len(raw)-1] != 0 {
		return nil, fmt.Errorf("%w: string array is not NUL-terminated", ErrBadArtifact)
	}
	parts := bytes.Split(raw[:len(raw)-1], []byte{0})
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = string(p)
	}
	return out, nil
}
