// pkg/env/types.go
package env

// Library represents a found library file
type Library struct {
	Name string // File name as placed in BIN
	Path string // Absolute path to library file
}

// Var is one environment variable
type Var struct {
	Name  string
	Value string
}
