package clipboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
)

// CopiedMsg reports the result of CopyCmd to the TUI.
type CopiedMsg struct {
	Text string
	Err  error
}

// Service reads and writes the system clipboard. When the system clipboard
// is unavailable a configured command, then a platform tool, receives the
// text on stdin.
type Service struct {
	command string
	logger  *slog.Logger

	// seams for tests
	writeAll func(string) error
	readAll  func() (string, error)
	run      func(ctx context.Context, argv []string, stdin string) error
}

// NewService creates a clipboard service. command may be empty.
func NewService(command string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		command:  command,
		logger:   logger,
		writeAll: clipboard.WriteAll,
		readAll:  clipboard.ReadAll,
		run:      runWithStdin,
	}
}

// Read returns the trimmed clipboard content
func (s *Service) Read(ctx context.Context) (string, error) {
	text, err := s.readAll()
	if err != nil {
		return "", fmt.Errorf("failed to read clipboard: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// Write copies text, falling back to an external command
func (s *Service) Write(ctx context.Context, text string) error {
	err := s.writeAll(text)
	if err == nil {
		s.logger.Debug("copied to clipboard", "length", len(text))
		return nil
	}
	s.logger.Warn("system clipboard unavailable, trying command", "error", err)

	argv := parseCommand(s.command)
	if len(argv) == 0 {
		argv = defaultCommand()
	}
	if len(argv) == 0 {
		return fmt.Errorf("no clipboard tool for %s: %w", runtime.GOOS, err)
	}
	if runErr := s.run(ctx, argv, text); runErr != nil {
		return errors.Join(err, fmt.Errorf("clipboard command %s: %w", argv[0], runErr))
	}
	s.logger.Debug("copied to clipboard with command", "command", argv[0], "length", len(text))
	return nil
}

// CopyCmd wraps Write for bubbletea.
func (s *Service) CopyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return CopiedMsg{Text: text, Err: s.Write(context.Background(), text)}
	}
}

func runWithStdin(ctx context.Context, argv []string, stdin string) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = strings.NewReader(stdin)
	return cmd.Run()
}

func defaultCommand() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{"clip.exe"}
	case "darwin":
		return []string{"pbcopy"}
	case "linux":
		if isWSL() {
			return []string{"clip.exe"}
		}
		candidates := [][]string{
			{"wl-copy"},
			{"xclip", "-selection", "clipboard"},
			{"xsel", "--clipboard", "--input"},
		}
		for _, c := range candidates {
			if _, err := exec.LookPath(c[0]); err == nil {
				return c
			}
		}
	}
	return nil
}

func isWSL() bool {
	version, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}
	v := strings.ToLower(string(version))
	return strings.Contains(v, "microsoft") || strings.Contains(v, "wsl")
}

// parseCommand splits command on spaces, keeping quoted runs together.
func parseCommand(command string) []string {
	var (
		parts   []string
		current strings.Builder
		quote   rune
	)
	flush := func() {
		if current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
		}
	}
	for _, r := range command {
		switch {
		case quote == 0 && (r == '\'' || r == '"'):
			quote = r
		case quote != 0 && r == quote:
			quote = 0
		case quote == 0 && r == ' ':
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return parts
}
