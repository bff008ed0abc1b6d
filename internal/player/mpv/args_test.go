package mpv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildArgs(t *testing.T) {
	ipc := &IPCConfig{Type: IPCUnixSocket, Address: "/tmp/playcore-mpv-test.sock"}

	tests := []struct {
		name     string
		opts     Options
		contains []string
		excludes []string
	}{
		{
			name:     "defaults",
			opts:     Options{},
			contains: []string{"--input-ipc-server=/tmp/playcore-mpv-test.sock", "--idle=yes", "--pause=yes", "--no-config", "--msg-level=all=warn", "--force-window=yes", "--user-agent=" + defaultUserAgent},
			excludes: []string{"--no-video"},
		},
		{
			name:     "audio only dub stream",
			opts:     Options{AudioOnly: true, LoadUserConfig: true, Debug: true},
			contains: []string{"--no-video", "--force-window=no"},
			excludes: []string{"--no-config", "--msg-level=all=warn", "--force-window=yes"},
		},
		{
			name: "headers and referer",
			opts: Options{
				Referer: "https://site.example/",
				Headers: map[string]string{"Origin": "https://site.example", "Referer": "ignored", "X-Token": "abc"},
				Title:   "Night Train",
			},
			contains: []string{"--referrer=https://site.example/", "--http-header-fields=Origin: https://site.example,X-Token: abc", "--force-media-title=Night Train"},
		},
		{
			name:     "extra args last",
			opts:     Options{ExtraArgs: []string{"--hwdec=auto"}},
			contains: []string{"--hwdec=auto"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := buildArgs(ipc, tt.opts)
			for _, want := range tt.contains {
				assert.Contains(t, args, want)
			}
			for _, not := range tt.excludes {
				assert.NotContains(t, args, not)
			}
			if len(tt.opts.ExtraArgs) > 0 {
				assert.Equal(t, tt.opts.ExtraArgs[len(tt.opts.ExtraArgs)-1], args[len(args)-1])
			}
		})
	}
}
