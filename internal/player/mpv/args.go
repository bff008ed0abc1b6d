package mpv

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Options configures the mpv process behind an Element.
type Options struct {
	// Executable overrides the platform default binary.
	Executable     string
	LoadUserConfig bool
	Debug          bool
	// AudioOnly runs mpv without a video output, for secondary audio streams.
	AudioOnly    bool
	Title        string
	UserAgent    string
	Referer      string
	Headers      map[string]string
	ExtraArgs    []string
	PollInterval time.Duration
	// StartupTimeout bounds process launch and IPC connection.
	StartupTimeout time.Duration
}

// buildArgs returns the mpv command line. mpv starts idle and paused; sources
// are loaded over IPC so a reload never restarts the process.
func buildArgs(ipc *IPCConfig, opts Options) []string {
	args := []string{
		ipc.Argument(),
		"--idle=yes",
		"--pause=yes",
		"--keep-open=yes",
		"--no-ytdl",
		"--no-terminal",
	}
	if !opts.LoadUserConfig {
		args = append(args, "--no-config")
	}
	if !opts.Debug {
		args = append(args, "--msg-level=all=warn")
	}
	if opts.AudioOnly {
		args = append(args, "--no-video", "--force-window=no")
	} else {
		args = append(args, "--force-window=yes")
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	args = append(args, "--user-agent="+ua)
	if opts.Referer != "" {
		args = append(args, "--referrer="+opts.Referer)
	}

	var headers []string
	for k, v := range opts.Headers {
		if strings.EqualFold(k, "User-Agent") || strings.EqualFold(k, "Referer") {
			continue
		}
		headers = append(headers, fmt.Sprintf("%s: %s", k, v))
	}
	if len(headers) > 0 {
		sort.Strings(headers)
		args = append(args, "--http-header-fields="+strings.Join(headers, ","))
	}

	if opts.Title != "" {
		args = append(args, "--force-media-title="+opts.Title)
	}
	return append(args, opts.ExtraArgs...)
}
