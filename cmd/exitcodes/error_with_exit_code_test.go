package exitcodes

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestGetInnerErrorAndExitCode(t *testing.T) {
	err, exitCode := GetInnerErrorAndExitCode(nil)
	assert.NoError(t, err)
	assert.Equal(t, ExitCodeSuccess, exitCode)

	generic := errors.New("generic")
	err, exitCode = GetInnerErrorAndExitCode(generic)
	assert.Same(t, generic, err)
	assert.Equal(t, ExitCodeGeneralError, exitCode)

	inner := errors.New("snapshot unreadable")
	err, exitCode = GetInnerErrorAndExitCode(NewErrorWithExitCode(inner, ExitCodeSnapshotError))
	assert.Same(t, inner, err)
	assert.Equal(t, ExitCodeSnapshotError, exitCode)

	// exit codes survive further wrapping
	err, exitCode = GetInnerErrorAndExitCode(errors.Wrap(NewErrorWithExitCode(inner, ExitCodeHandledError), "context"))
	assert.Same(t, inner, err)
	assert.Equal(t, ExitCodeHandledError, exitCode)
}
