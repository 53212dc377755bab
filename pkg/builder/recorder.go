// pkg/builder/recorder.go
package builder

import (
	"github.com/arc-language/stubpack/pkg/pathset"
)

// Recorder is an in-memory Builder. It applies the same deduplication and
// entry-point rules as the real backends and keeps the operations in
// emission order, which makes it the dry-run backend.
type Recorder struct {
	dirs       *pathset.Set
	files      *pathset.Set
	ops        []Op
	entrySet   bool
	touchCount int
}

// NewRecorder creates an empty Recorder
func NewRecorder(caseFold bool) *Recorder {
	return &Recorder{
		dirs:  pathset.New(caseFold),
		files: pathset.New(caseFold),
	}
}

// CreateDirectory implements Builder
func (r *Recorder) CreateDirectory(target string) error {
	added, err := r.dirs.Add(DirectorySource, target)
	if err != nil || !added {
		return err
	}
	t, _ := pathset.CleanTarget(target)
	r.ops = append(r.ops, Op{Kind: OpCreateDirectory, Target: t})
	return nil
}

// CreateFile implements Builder
func (r *Recorder) CreateFile(source, target string) error {
	added, err := r.files.Add(source, target)
	if err != nil || !added {
		return err
	}
	t, _ := pathset.CleanTarget(target)
	s, _ := pathset.CleanSource(source)
	r.ops = append(r.ops, Op{Kind: OpCreateFile, Source: s, Target: t})
	return nil
}

// Touch implements Toucher
func (r *Recorder) Touch(target string) error {
	added, err := r.files.Add(PlaceholderSource, target)
	if err != nil || !added {
		return err
	}
	t, _ := pathset.CleanTarget(target)
	r.ops = append(r.ops, Op{Kind: OpCreateFile, Target: t})
	return nil
}

// SetEnvironment implements Builder
func (r *Recorder) SetEnvironment(name, value string) error {
	r.ops = append(r.ops, Op{Kind: OpSetEnvironment, Name: name, Value: value})
	return nil
}

// SetEntryPoint implements Builder
func (r *Recorder) SetEntryPoint(interpreter, script string, args ...string) error {
	if r.entrySet {
		return ErrEntryPointSet
	}
	r.entrySet = true
	all := append([]string{interpreter, script}, args...)
	r.ops = append(r.ops, Op{Kind: OpSetEntryPoint, Args: all})
	return nil
}

// Ops returns the recorded operations in emission order
func (r *Recorder) Ops() []Op {
	out := make([]Op, len(r.ops))
	copy(out, r.ops)
	return out
}

// Environment returns the effective environment, last write per name winning
func (r *Recorder) Environment() map[string]string {
	env := make(map[string]string)
	for _, op := range r.ops {
		if op.Kind == OpSetEnvironment {
			env[op.Name] = op.Value
		}
	}
	return env
}

// Files returns the recorded file targets mapped to their sources
func (r *Recorder) Files() map[string]string {
	out := make(map[string]string)
	for _, e := range r.files.Entries() {
		out[e.Target] = e.Source
	}
	return out
}
