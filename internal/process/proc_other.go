//go:build !unix

package process

import (
	"os"
	"os/exec"
)

func configure(*exec.Cmd) {}

// terminate kills outright; there is no portable graceful signal.
func terminate(p *os.Process) error {
	return p.Kill()
}

func kill(p *os.Process) error {
	return p.Kill()
}
