//go:build !windows

package mpv

// pipeReady is never used for sockets; they are probed with os.Stat.
func pipeReady(string) bool {
	return false
}
