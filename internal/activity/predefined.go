package activity

import (
	"fmt"

	"github.com/firestige/otus-bench/internal/model"
)

func init() {
	for _, p := range PredefinedPollers {
		p := p
		Register(p.name, func(_ string, cfg map[string]any) (Activity, error) {
			hint, err := optionalStringPtr(cfg, "hint")
			if err != nil {
				return nil, fmt.Errorf("%s: %w", p.name, err)
			}
			if hint == nil {
				label := p.name
				hint = &label
			}
			return &pollerActivity{pattern: p.pattern, hint: hint}, nil
		})
	}
	for _, l := range PredefinedLaunchers {
		l := l
		Register(l.name, func(_ string, cfg map[string]any) (Activity, error) {
			extra, err := stringSlice(cfg, "args")
			if err != nil {
				return nil, fmt.Errorf("%s: %w", l.name, err)
			}
			hint, err := optionalStringPtr(cfg, "hint")
			if err != nil {
				return nil, fmt.Errorf("%s: %w", l.name, err)
			}
			if hint == nil {
				label := l.name
				hint = &label
			}
			args := append(append([]string{}, l.args...), extra...)
			return &launchActivity{cmd: l.cmd, args: args, mode: l.mode, hint: hint}, nil
		})
	}
}

// predefinedPoller describes one built-in poller shortcut: a fixed
// pattern; only the optional "hint" is configurable, and it defaults
// to the shortcut's name.
type predefinedPoller struct {
	name    string
	pattern string
}

// PredefinedPollers lists the built-in poller shortcuts a scenario can
// reference by name instead of spelling out a pattern.
var PredefinedPollers = []predefinedPoller{
	{name: "meminfo", pattern: "/proc/meminfo"},
	{name: "net_dev", pattern: "/proc/net/dev"},
	{name: "stat", pattern: "/proc/stat"},
	{name: "diskstats", pattern: "/proc/diskstats"},
	{name: "loadavg", pattern: "/proc/loadavg"},
}

// predefinedLauncher describes one entry of the "Predefined launchers"
// row: a fixed command line and teardown mode.
type predefinedLauncher struct {
	name string
	cmd  string
	args []string
	mode model.SpawnMode
}

// PredefinedLaunchers lists the built-in launcher shortcuts.
var PredefinedLaunchers = []predefinedLauncher{
	{name: "mpstat", cmd: "mpstat", args: []string{"-P", "ALL", "1"}, mode: model.BackgroundKill},
	{name: "flamegraph", cmd: "flamegraph", args: nil, mode: model.BackgroundWait},
}

// iostatBaseArgs is the fixed prefix of the predefined
// `iostat -d -t -x -m 1 …` launcher referenced by the iostat activity.
var iostatBaseArgs = []string{"-d", "-t", "-x", "-m", "1"}
