package state

import "errors"

var (
	// ErrNoSuchAsset means a scene index has no tracker. Assets are created in
	// bulk, so this indicates a programming error.
	ErrNoSuchAsset = errors.New("no such scene asset")
	// ErrCorruptState means the state file exists but cannot be decoded.
	ErrCorruptState = errors.New("corrupt pipeline state")
	// ErrBuildLocked means another process holds the build directory.
	ErrBuildLocked = errors.New("build directory is in use by another mindmovie process")
)
