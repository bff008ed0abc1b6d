package mpv

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Platform is the host operating system flavour mpv runs on.
type Platform int

const (
	PlatformLinux Platform = iota
	PlatformWindows
	PlatformWSL
	PlatformMac
)

func (p Platform) String() string {
	switch p {
	case PlatformWindows:
		return "windows"
	case PlatformWSL:
		return "wsl"
	case PlatformMac:
		return "darwin"
	default:
		return "linux"
	}
}

// IPCType is the transport of mpv's JSON IPC server.
type IPCType int

const (
	IPCUnixSocket IPCType = iota
	IPCNamedPipe
	IPCTCP
)

// IPCConfig addresses one mpv IPC server.
type IPCConfig struct {
	Type    IPCType
	Address string
}

// IsSocket reports whether Address is a filesystem socket that must be
// removed after use.
func (c *IPCConfig) IsSocket() bool {
	return c.Type == IPCUnixSocket
}

// Argument is the mpv flag that starts the IPC server.
func (c *IPCConfig) Argument() string {
	return "--input-ipc-server=" + c.Address
}

// DialString is the address handed to gopv.
func (c *IPCConfig) DialString() string {
	if c.Type == IPCTCP {
		return "tcp://" + c.Address
	}
	return c.Address
}

// Cleanup removes the socket file, if any.
func (c *IPCConfig) Cleanup() {
	if c != nil && c.IsSocket() {
		_ = os.Remove(c.Address)
	}
}

// DetectPlatform reports the platform of the running process.
func DetectPlatform() Platform {
	switch runtime.GOOS {
	case "windows":
		return PlatformWindows
	case "darwin":
		return PlatformMac
	default:
		if isWSL() {
			return PlatformWSL
		}
		return PlatformLinux
	}
}

func isWSL() bool {
	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}
	v := strings.ToLower(string(data))
	return strings.Contains(v, "microsoft") || strings.Contains(v, "wsl")
}

// Executable returns the mpv binary name for platform. WSL uses the Linux
// build because gopv cannot reach Windows named pipes from inside WSL.
func Executable(platform Platform) string {
	if platform == PlatformWindows {
		return "mpv.exe"
	}
	return "mpv"
}

// FindExecutable resolves the mpv binary on PATH. A non-empty override wins.
func FindExecutable(platform Platform, override string) (string, error) {
	name := override
	if name == "" {
		name = Executable(platform)
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s not found in PATH, install mpv or set player.mpv_path: %w", name, err)
	}
	return path, nil
}

// NewIPCConfig allocates a fresh, unique IPC address for platform.
func NewIPCConfig(platform Platform) (*IPCConfig, error) {
	suffix, err := randomSuffix()
	if err != nil {
		return nil, err
	}
	switch platform {
	case PlatformLinux, PlatformMac, PlatformWSL:
		return &IPCConfig{
			Type:    IPCUnixSocket,
			Address: filepath.Join(os.TempDir(), fmt.Sprintf("playcore-mpv-%s.sock", suffix)),
		}, nil
	case PlatformWindows:
		return &IPCConfig{
			Type:    IPCNamedPipe,
			Address: fmt.Sprintf(`\\.\pipe\playcore-mpv-%s`, suffix),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported platform %v", platform)
	}
}

func randomSuffix() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
