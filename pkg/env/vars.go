// pkg/env/vars.go
package env

import "strings"

// Placeholder stands for the directory the package is extracted to
const Placeholder = "|"

// Vars is an ordered set of environment variables. Setting a name again
// replaces its value but keeps its original position.
type Vars struct {
	index map[string]int
	vars  []Var
}

// Set records name=value
func (v *Vars) Set(name, value string) {
	if v.index == nil {
		v.index = make(map[string]int)
	}
	if i, ok := v.index[name]; ok {
		v.vars[i].Value = value
		return
	}
	v.index[name] = len(v.vars)
	v.vars = append(v.vars, Var{Name: name, Value: value})
}

// Get returns the value recorded for name
func (v *Vars) Get(name string) (string, bool) {
	i, ok := v.index[name]
	if !ok {
		return "", false
	}
	return v.vars[i].Value, true
}

// Len returns the number of variables
func (v *Vars) Len() int {
	return len(v.vars)
}

// All returns the variables in first-set order
func (v *Vars) All() []Var {
	out := make([]Var, len(v.vars))
	copy(out, v.vars)
	return out
}

// Expand returns the variables with every placeholder replaced by root
func (v *Vars) Expand(root string) []Var {
	out := v.All()
	for i := range out {
		out[i].Value = ExpandValue(out[i].Value, root)
	}
	return out
}

// ExpandValue replaces every placeholder in value with root
func ExpandValue(value, root string) string {
	return strings.ReplaceAll(value, Placeholder, root)
}
