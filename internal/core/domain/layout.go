package domain

import "path/filepath"

const (
	// CascadeDirName is the name of the internal workspace directory.
	CascadeDirName = ".cascade"

	// SnapshotFileName is the name of the serialized source index snapshot.
	SnapshotFileName = "index.json"

	// ConfigFileName is the name of the project configuration file.
	ConfigFileName = "cascade.yaml"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// DefaultCascadePath returns the default root directory for cascade metadata.
func DefaultCascadePath() string {
	return CascadeDirName
}

// DefaultSnapshotPath returns the default path for the index snapshot.
func DefaultSnapshotPath() string {
	return filepath.Join(CascadeDirName, SnapshotFileName)
}
