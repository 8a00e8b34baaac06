package encoder

import (
	"bytes"
	"context"
	"io"
	"os/exec"
)

// ExecResult holds the outcome of a single encoder-tool invocation.
type ExecResult struct {
	Stdout []byte
	Stderr string
	Err    error
}

// Execute runs args[0] with the remaining arguments. stdin may be nil.
// Stdout and stderr are captured; stderr feeds [classify].
func Execute(ctx context.Context, args []string, stdin io.Reader) ExecResult {
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdin = stdin

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	return ExecResult{
		Stdout: stdoutBuf.Bytes(),
		Stderr: stderrBuf.String(),
		Err:    err,
	}
}
