//go:build !windows

package mpv

import "os/exec"

func detach(*exec.Cmd) {}
