// pkg/builder/source.go
package builder

// DirectorySource is the source recorded for directory targets, which have
// no file contents of their own.
const DirectorySource = "/"

// PlaceholderSource is the source recorded for touched marker files
const PlaceholderSource = "/dev/null"
