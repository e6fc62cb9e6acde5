// Package config resolves command-line flags over persisted settings into
// the configuration handed to the watcher and its surfaces.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"claudewatch/internal/settings"
	"claudewatch/internal/watcher"
)

// ErrNoDirectories is returned when no directory could be resolved.
var ErrNoDirectories = errors.New("no directories to watch")

type AppConfig struct {
	ClaudeHome    string
	Dirs          []string
	Slots         int
	Extension     string
	PollInterval  time.Duration
	ReplayLines   int
	WebSocketPort int
	MCPPort       int
	JournalPath   string
	UsageCommand  string
	UsageInterval time.Duration
	Follow        string
	Headless      bool
	Debug         bool
	SaveDefaults  bool
}

// WatcherOptions converts the config into watcher options.
func (c AppConfig) WatcherOptions() watcher.Options {
	return watcher.Options{
		Dirs:         c.Dirs,
		Slots:        c.Slots,
		Extension:    c.Extension,
		PollInterval: c.PollInterval,
		ReplayLines:  c.ReplayLines,
		Debug:        c.Debug,
	}
}

// Settings converts the config back into persistable settings.
func (c AppConfig) Settings() settings.Settings {
	return settings.Settings{
		Dirs:                 c.Dirs,
		Slots:                c.Slots,
		Extension:            c.Extension,
		PollIntervalSeconds:  int(c.PollInterval / time.Second),
		ReplayLines:          c.ReplayLines,
		WebSocketPort:        c.WebSocketPort,
		MCPPort:              c.MCPPort,
		JournalPath:          c.JournalPath,
		UsageCommand:         c.UsageCommand,
		UsageIntervalSeconds: int(c.UsageInterval / time.Second),
		DebugLogging:         c.Debug,
	}
}

// Flags holds the raw option values bound to a command's flag set.
// Resolve turns them into an AppConfig.
type Flags struct {
	defaults     settings.Settings
	claudeHome   string
	dirs         []string
	project      string
	allProjects  bool
	slots        int
	extension    string
	pollSeconds  int
	replayLines  int
	wsPort       int
	mcpPort      int
	journalPath  string
	usageCommand string
	usageSeconds int
	follow       string
	headless     bool
	debug        bool
	save         bool
}

// BindFlags registers every option on fs. Defaults come from the saved
// settings so --help shows what a bare run would use.
func BindFlags(fs *pflag.FlagSet, defaults settings.Settings) *Flags {
	f := &Flags{defaults: defaults}
	fs.SortFlags = false
	fs.StringVar(&f.claudeHome, "claude-home", "", "path to Claude home directory (default $CLAUDE_HOME or ~/.claude)")
	fs.StringSliceVarP(&f.dirs, "dir", "d", nil, "directory to watch (repeatable, comma separated)")
	fs.StringVarP(&f.project, "project", "p", "", "project folder whose sessions to watch (default current directory)")
	fs.BoolVar(&f.allProjects, "all", false, "watch every project directory under the Claude home")
	fs.IntVarP(&f.slots, "slots", "n", defaults.Slots, "number of session slots (slot i follows the i-th newest file)")
	fs.StringVar(&f.extension, "ext", defaults.Extension, "tracked file extension")
	fs.IntVar(&f.pollSeconds, "poll", defaults.PollIntervalSeconds, "file selection re-check interval in seconds")
	fs.IntVar(&f.replayLines, "replay", defaults.ReplayLines, "history lines replayed when a file is opened")
	fs.IntVar(&f.wsPort, "ws-port", defaults.WebSocketPort, "port for the websocket event stream (0 disables)")
	fs.IntVar(&f.mcpPort, "mcp-port", defaults.MCPPort, "port for the MCP server (0 disables)")
	fs.StringVar(&f.journalPath, "journal", defaults.JournalPath, "SQLite journal of emitted events (empty disables)")
	fs.StringVar(&f.usageCommand, "usage-cmd", defaults.UsageCommand, "shell command printing usage totals (empty disables)")
	fs.IntVar(&f.usageSeconds, "usage-interval", defaults.UsageIntervalSeconds, "usage poll interval in seconds")
	fs.StringVar(&f.follow, "follow", "", "mirror another claudewatch's websocket stream (ws://host:port/ws) instead of watching files")
	fs.BoolVar(&f.headless, "headless", false, "run without the dashboard")
	fs.BoolVar(&f.debug, "debug", defaults.DebugLogging, "verbose watcher logging")
	fs.BoolVar(&f.save, "save", false, "persist the resolved options as defaults")
	return f
}

// Resolve validates the parsed flags and fills in directories, falling
// back to the saved settings for anything not given.
func (f *Flags) Resolve() (AppConfig, error) {
	cfg := AppConfig{
		Slots:         f.slots,
		Extension:     f.extension,
		ReplayLines:   f.replayLines,
		WebSocketPort: f.wsPort,
		MCPPort:       f.mcpPort,
		JournalPath:   f.journalPath,
		UsageCommand:  f.usageCommand,
		Follow:        f.follow,
		Headless:      f.headless,
		Debug:         f.debug,
		SaveDefaults:  f.save,
	}

	var err error
	cfg.ClaudeHome, err = DetectClaudeHome(f.claudeHome)
	if err != nil {
		return cfg, err
	}

	if cfg.Slots < 1 {
		return cfg, fmt.Errorf("slots must be at least 1, got %d", cfg.Slots)
	}
	if cfg.Extension == "" {
		cfg.Extension = watcher.DefaultExtension
	} else if !strings.HasPrefix(cfg.Extension, ".") {
		cfg.Extension = "." + cfg.Extension
	}
	cfg.PollInterval = secondsOr(f.pollSeconds, watcher.DefaultPollInterval)
	cfg.UsageInterval = secondsOr(f.usageSeconds, time.Minute)
	if cfg.ReplayLines < 1 {
		cfg.ReplayLines = watcher.DefaultReplayLines
	}

	var dirs []string
	for _, dir := range f.dirs {
		if dir = strings.TrimSpace(dir); dir != "" {
			dirs = append(dirs, dir)
		}
	}

	project := f.project
	switch {
	case cfg.Follow != "":
		// a follower watches nothing locally
		return cfg, nil
	case len(dirs) > 0:
		cfg.Dirs = dirs
	case f.allProjects:
		cfg.Dirs, err = ProjectDirs(cfg.ClaudeHome)
		if err != nil {
			return cfg, err
		}
	case project == "" && len(f.defaults.Dirs) > 0:
		cfg.Dirs = append([]string(nil), f.defaults.Dirs...)
	default:
		if project == "" {
			if project, err = os.Getwd(); err != nil {
				return cfg, fmt.Errorf("resolve working directory: %w", err)
			}
		}
		abs, err := filepath.Abs(project)
		if err != nil {
			return cfg, fmt.Errorf("resolve project %s: %w", project, err)
		}
		cfg.Dirs = []string{watcher.SessionsDir(cfg.ClaudeHome, abs)}
	}

	for i, dir := range cfg.Dirs {
		cfg.Dirs[i] = expandHome(dir)
	}
	if len(cfg.Dirs) == 0 {
		return cfg, ErrNoDirectories
	}
	return cfg, nil
}

// DetectClaudeHome resolves the Claude home: explicit value, $CLAUDE_HOME,
// then ~/.claude.
func DetectClaudeHome(explicit string) (string, error) {
	if explicit != "" {
		return filepath.Clean(expandHome(explicit)), nil
	}
	if fromEnv := os.Getenv("CLAUDE_HOME"); fromEnv != "" {
		return filepath.Clean(fromEnv), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".claude"), nil
}

// ProjectDirs lists every project directory under the Claude home.
func ProjectDirs(claudeHome string) ([]string, error) {
	root := watcher.ProjectsDir(claudeHome)
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("list projects in %s: %w", root, err)
	}
	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, filepath.Join(root, entry.Name()))
		}
	}
	if len(dirs) == 0 {
		return nil, ErrNoDirectories
	}
	return dirs, nil
}

func secondsOr(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
