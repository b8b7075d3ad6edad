//go:build unix

package fsx

import (
	"errors"
	"syscall"
)

// isEXDEV 同时覆盖裸 errno 与 *os.LinkError（后者实现了 Unwrap）。
func isEXDEV(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}
