//go:build !unix

package downloaders

import (
	"errors"
	"os"
	"syscall"
)

func sysProcAttr() *syscall.SysProcAttr { return nil }

// no process groups nor SIGTERM here, both steps kill the child
func terminate(p *os.Process) error { return ignoreDone(p.Kill()) }

func kill(p *os.Process) error { return ignoreDone(p.Kill()) }

func ignoreDone(err error) error {
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}
