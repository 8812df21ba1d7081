package activity

import (
	"fmt"
	"sort"

	"github.com/firestige/otus-bench/internal/artifact"
	"github.com/firestige/otus-bench/internal/model"
	"github.com/firestige/otus-bench/internal/netconn"
)

func init() {
	Register("fio", newFio)
}

var logFileKeys = []string{"write_bw_log", "write_iops_log", "write_lat_log"}

// fioActivity translates an INI-like {global, sections} configuration
// into fio command-line flags and runs it as a BackgroundWait launch.
// One write_{bw,iops,lat}_log filename is carried as the stop phase's
// PlotHint label, so the controller's activity map can point a
// plotting tool at it: the global section is searched first, then the
// job sections. Any further log filenames are not recorded.
type fioActivity struct {
	global   map[string]string
	sections map[string]map[string]string
	hintFile string

	inner *launchActivity
}

func newFio(_ string, cfg map[string]any) (Activity, error) {
	iniRaw, ok := cfg["ini"]
	if !ok {
		return nil, fmt.Errorf("fio: missing required field %q", "ini")
	}
	ini, ok := iniRaw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("fio: field %q: expected mapping, got %T", "ini", iniRaw)
	}

	global, err := stringMap(ini, "global")
	if err != nil {
		return nil, fmt.Errorf("fio: %w", err)
	}

	sections := map[string]map[string]string{}
	if rawSections, ok := ini["sections"]; ok {
		sectionsMap, ok := rawSections.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("fio: field %q: expected mapping, got %T", "sections", rawSections)
		}
		for name, rawFields := range sectionsMap {
			fields, ok := rawFields.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("fio: section %q: expected mapping, got %T", name, rawFields)
			}
			kv := make(map[string]string, len(fields))
			for k, v := range fields {
				s, ok := v.(string)
				if !ok {
					return nil, fmt.Errorf("fio: section %q.%s: expected string, got %T", name, k, v)
				}
				kv[k] = s
			}
			sections[name] = kv
		}
	}

	hintFile := firstLogFile(global)
	if hintFile == "" {
		for _, fields := range sections {
			if f := firstLogFile(fields); f != "" {
				hintFile = f
				break
			}
		}
	}

	return &fioActivity{global: global, sections: sections, hintFile: hintFile}, nil
}

func firstLogFile(fields map[string]string) string {
	for _, key := range logFileKeys {
		if v, ok := fields[key]; ok && v != "" {
			return v
		}
	}
	return ""
}

// args renders the job as fio command-line flags: each global key
// becomes --key=value, followed by one --name=<section> plus its
// --key=value flags per section, in a stable (sorted) order.
func (a *fioActivity) args() []string {
	var out []string
	for _, k := range sortedKeys(a.global) {
		out = append(out, fmt.Sprintf("--%s=%s", k, a.global[k]))
	}
	for _, name := range sortedSectionNames(a.sections) {
		out = append(out, fmt.Sprintf("--name=%s", name))
		fields := a.sections[name]
		for _, k := range sortedKeys(fields) {
			out = append(out, fmt.Sprintf("--%s=%s", k, fields[k]))
		}
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedSectionNames(m map[string]map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (a *fioActivity) Start(conn *netconn.Connection, store *artifact.Store) error {
	a.inner = &launchActivity{cmd: "fio", args: a.args(), mode: model.BackgroundWait}
	if a.hintFile != "" {
		hint := a.hintFile
		a.inner.hint = &hint
	}
	return a.inner.Start(conn, store)
}

func (a *fioActivity) Stop(conn *netconn.Connection, store *artifact.Store) (*model.PlotHint, error) {
	if a.inner == nil {
		return nil, fmt.Errorf("fio: stop called before start")
	}
	return a.inner.Stop(conn, store)
}
