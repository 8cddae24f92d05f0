package apk

import "errors"

var (
	// ErrMissingTool means an external binary is not on the search path.
	ErrMissingTool = errors.New("missing tool")
	// ErrMissingAsset means a required input such as the platform archive was not found.
	ErrMissingAsset = errors.New("missing asset")
	// ErrToolTimeout means an external tool exceeded its time budget.
	ErrToolTimeout = errors.New("tool timed out")
	// ErrToolNonZeroExit means an external tool exited unsuccessfully.
	ErrToolNonZeroExit = errors.New("tool exited with non-zero status")
	// ErrStructuralFailure means an expected output file is absent after a tool claimed success.
	ErrStructuralFailure = errors.New("expected output is missing")
	// ErrInvalidInput means the user supplied a malformed package specification.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoBytecode means every bytecode strategy failed to produce a file.
	ErrNoBytecode = errors.New("no bytecode produced")
)
