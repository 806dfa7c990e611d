package ports

// FileSystem is the file collaborator used by step execution.
// Writes are independent; the engine never assumes multi-file transactions.
//
//go:generate mockgen -source=filesystem.go -destination=mocks/mock_filesystem.go -package=mocks
type FileSystem interface {
	// Read returns the content of the file at path.
	Read(path string) ([]byte, error)

	// Write replaces the content of the file at path, creating parent
	// directories as needed.
	Write(path string, data []byte) error

	// List returns the paths under root matching the glob pattern.
	// When recursive is true the pattern is matched against the path
	// relative to root at every depth.
	List(root, pattern string, recursive bool) ([]string, error)
}
