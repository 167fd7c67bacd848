// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package cowfs

import (
	"context"
	"io"
	"os"

	"github.com/zonys/zonys/pkg/cowfs/command"
	"github.com/zonys/zonys/pkg/errors"
)

// sendChunkSize is the buffer size used to drain the native send's pipe
// into an arbitrary Sink, isolating the child process's own I/O stack from
// whatever the caller's sink does (network write, slow disk, etc).
const sendChunkSize = 8 * 1024

// sendViaPipe runs `zfs send args...` with its stdout attached to one end
// of an anonymous pipe. A worker goroutine owns the subprocess; the calling
// goroutine drains the read end into sink in sendChunkSize pieces and joins
// the worker once the pipe reaches EOF.
func sendViaPipe(ctx context.Context, executor *command.Executor, args []string, sink Sink) error {
	pr, pw, err := os.Pipe()
	if err != nil {
		return errors.Wrap(err, errors.CowFSSend)
	}

	errCh := make(chan error, 1)
	go func() {
		defer pw.Close()
		_, err := executor.Execute(ctx, command.Options{Stdout: pw}, "zfs send", args...)
		errCh <- err
	}()

	buf := make([]byte, sendChunkSize)
	var copyErr error
	for {
		n, readErr := pr.Read(buf)
		if n > 0 {
			if _, werr := sink.Write(buf[:n]); werr != nil {
				copyErr = werr
				break
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			copyErr = readErr
			break
		}
	}
	pr.Close()

	sendErr := <-errCh
	if sendErr != nil {
		return errors.Wrap(sendErr, errors.CowFSSend)
	}
	if copyErr != nil {
		return errors.Wrap(copyErr, errors.CowFSSend)
	}
	return nil
}
