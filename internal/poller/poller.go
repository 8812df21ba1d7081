// Package poller implements the periodic file-snapshot thread: a
// poller owns a non-empty list of absolute file paths, reopens and
// concatenates them on a fixed period, and appends timestamped records
// to a single output log until cooperatively stopped.
package poller

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/firestige/otus-bench/internal/model"
	"github.com/tevino/abool"
)

// DefaultPeriod is the snapshot interval used when a scenario does not
// override it.
const DefaultPeriod = 250 * time.Millisecond

// header is the single JSON object written as the log's first line.
type header struct {
	Files  []string `json:"files"`
	Period string   `json:"period"`
}

// Poller snapshots a fixed set of files into one log file on its own
// goroutine until Stop is called. The stop flag is read with acquire
// semantics at the top of every iteration; a
// github.com/tevino/abool.AtomicBool gives that without a mutex.
type Poller struct {
	ID     model.Id
	Files  []string
	Period time.Duration

	stop *abool.AtomicBool
	done chan struct{}
	file *os.File
	w    *bufio.Writer

	// err is set if the poller's goroutine exits abnormally (a file
	// read failed); Stop surfaces it to the caller instead of panicking
	// across goroutines.
	err error
}

// New creates and starts a poller writing to outPath. files must be
// non-empty; resolving that is the caller's job (agent dispatch, via
// the shared pattern-resolution package) — a failed resolution is
// reported at the dispatch layer, not here.
func New(id model.Id, files []string, outPath string, period time.Duration) (*Poller, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("poller %s: no files to watch", id)
	}
	if period <= 0 {
		period = DefaultPeriod
	}

	f, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("poller %s: open output: %w", id, err)
	}

	p := &Poller{
		ID:     id,
		Files:  files,
		Period: period,
		stop:   abool.New(),
		done:   make(chan struct{}),
		file:   f,
		w:      bufio.NewWriter(f),
	}

	if err := p.writeHeader(); err != nil {
		f.Close()
		return nil, err
	}

	go p.run()
	return p, nil
}

func (p *Poller) writeHeader() error {
	h := header{Files: p.Files, Period: p.Period.String()}
	enc, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("poller %s: marshal header: %w", p.ID, err)
	}
	if _, err := p.w.Write(enc); err != nil {
		return fmt.Errorf("poller %s: write header: %w", p.ID, err)
	}
	if _, err := p.w.WriteString("\n"); err != nil {
		return err
	}
	return p.w.Flush()
}

func (p *Poller) run() {
	defer close(p.done)
	defer p.file.Close()
	defer p.w.Flush()

	for {
		if p.stop.IsSet() {
			return
		}
		if err := p.snapshot(); err != nil {
			p.err = fmt.Errorf("poller %s: %w", p.ID, err)
			return
		}
		time.Sleep(p.Period)
	}
}

func (p *Poller) snapshot() error {
	ts := time.Now().Format("2006-01-02T15:04:05.000000Z07:00")
	if _, err := p.w.WriteString(ts + "\n"); err != nil {
		return err
	}
	for _, path := range p.Files {
		contents, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if _, err := p.w.Write(contents); err != nil {
			return err
		}
	}
	if _, err := p.w.WriteString("\n"); err != nil {
		return err
	}
	return p.w.Flush()
}

// Stop sets the cooperative stop flag and joins the poller's
// goroutine. The interval between this call and the goroutine's exit
// is bounded by one period plus file-read time.
func (p *Poller) Stop() error {
	p.stop.Set()
	<-p.done
	return p.err
}
