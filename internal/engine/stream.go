package engine

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"github.com/roach88/envelope/internal/ir"
	"github.com/roach88/envelope/internal/translate"
)

// Spool file suffixes.
const (
	SuffixDone   = ".done"
	SuffixFailed = ".failed"
	SuffixTemp   = ".tmp"
)

// DefaultQuietPeriod is how long a spool file must go without events before
// it is read.
const DefaultQuietPeriod = 200 * time.Millisecond

const maxLineBytes = 16 << 20

// Stream runs micro-batches from a spool directory.
//
// Producers should write under a dot-prefixed or .tmp name and rename the
// file into place; files are also picked up after DefaultQuietPeriod
// without writes.
type Stream struct {
	engine     *Engine
	translator translate.Translator
	dir        string
	schedule   string
	quiet      time.Duration
	maxBatch   int
	logger     *slog.Logger
	onFlush    func(*BatchResult, error)

	queue   *recordQueue
	flushMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]bool
}

// StreamOption configures a Stream.
type StreamOption func(*Stream)

// WithSchedule overrides the flush schedule, a cron spec such as
// "@every 5s". The default is "@every <application.batch.milliseconds>".
func WithSchedule(spec string) StreamOption {
	return func(s *Stream) {
		s.schedule = spec
	}
}

// WithQuietPeriod sets the debounce applied to spool file events.
func WithQuietPeriod(d time.Duration) StreamOption {
	return func(s *Stream) {
		s.quiet = d
	}
}

// WithMaxBatch flushes as soon as n records are queued, without waiting
// for the schedule. Zero disables the limit.
func WithMaxBatch(n int) StreamOption {
	return func(s *Stream) {
		s.maxBatch = n
	}
}

// WithFlushHook registers fn to observe every non-empty flush.
func WithFlushHook(fn func(*BatchResult, error)) StreamOption {
	return func(s *Stream) {
		s.onFlush = fn
	}
}

// NewStream creates a Stream reading dir through tr.
func NewStream(e *Engine, tr translate.Translator, dir string, opts ...StreamOption) (*Stream, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("spool directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("spool directory: %s is not a directory", dir)
	}

	s := &Stream{
		engine:     e,
		translator: tr,
		dir:        dir,
		schedule:   "@every " + e.c.App.Batch.String(),
		quiet:      DefaultQuietPeriod,
		logger:     e.c.Logger,
		queue:      newRecordQueue(),
		pending:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return nil, fmt.Errorf("flush schedule %q: %w", s.schedule, err)
	}
	return s, nil
}

// Run watches the spool directory until ctx is cancelled, then flushes what
// is queued and returns. Files already in the directory are read first.
func (s *Stream) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}

	// Flushes outlive cancellation so a shutdown still writes what was read.
	flushCtx := context.WithoutCancel(ctx)

	sched := cron.New()
	if _, err := sched.AddFunc(s.schedule, func() { s.flushAndReport(flushCtx) }); err != nil {
		return fmt.Errorf("schedule flush: %w", err)
	}
	sched.Start()

	if err := s.scan(); err != nil {
		<-sched.Stop().Done()
		return err
	}
	s.logger.Info("stream started", "spool", s.dir, "schedule", s.schedule)

	ready := make(chan string)
	timers := make(map[string]*time.Timer)
	stopTimers := func() {
		for _, t := range timers {
			t.Stop()
		}
	}

	for {
		select {
		case <-ctx.Done():
			stopTimers()
			<-sched.Stop().Done()
			s.flushAndReport(flushCtx)
			s.queue.Close()
			s.logger.Info("stream stopped", "spool", s.dir)
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !candidate(event.Name) {
				continue
			}
			path := event.Name
			if t, exists := timers[path]; exists {
				t.Stop()
			}
			timers[path] = time.AfterFunc(s.quiet, func() {
				select {
				case ready <- path:
				case <-ctx.Done():
				}
			})

		case path := <-ready:
			delete(timers, path)
			if err := s.Ingest(path); err != nil {
				s.logger.Warn("spool file rejected", "path", path, "error", err)
			}

		case <-s.queue.Wait():
			if s.maxBatch > 0 && s.queue.Len() >= s.maxBatch {
				s.flushAndReport(flushCtx)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("spool watcher error", "error", err)
		}
	}
}

// scan ingests candidate files already present in the spool directory.
func (s *Stream) scan() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read spool: %w", err)
	}
	for _, entry := range entries {
		path := filepath.Join(s.dir, entry.Name())
		if entry.IsDir() || !candidate(path) {
			continue
		}
		if err := s.Ingest(path); err != nil {
			s.logger.Warn("spool file rejected", "path", path, "error", err)
		}
	}
	return nil
}

// Ingest translates every line of path and queues the records for the next
// flush. A file that fails translation is renamed with SuffixFailed and
// none of its records are queued. Files already queued are ignored.
func (s *Stream) Ingest(path string) error {
	s.pendingMu.Lock()
	if s.pending[path] {
		s.pendingMu.Unlock()
		return nil
	}
	s.pending[path] = true
	s.pendingMu.Unlock()

	records, err := s.readFile(path)
	if err != nil {
		s.release(path)
		if os.IsNotExist(err) {
			return nil
		}
		s.mark(path, SuffixFailed)
		return err
	}

	if !s.queue.Enqueue(path, records) {
		s.release(path)
		return fmt.Errorf("stream is closed")
	}
	s.logger.Debug("spool file queued", "path", path, "records", len(records))
	return nil
}

func (s *Stream) readFile(path string) ([]ir.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []ir.Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		r, err := s.translator.Translate(nil, []byte(text))
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", filepath.Base(path), line, err)
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return records, nil
}

// Flush applies everything queued as one batch, then marks the source
// files. It returns nil, nil when nothing is queued.
func (s *Stream) Flush(ctx context.Context) (*BatchResult, error) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	files := s.queue.Drain()
	if len(files) == 0 {
		return nil, nil
	}

	var records []ir.Record
	for _, f := range files {
		records = append(records, f.records...)
	}

	var (
		res *BatchResult
		err error
	)
	if len(records) > 0 {
		res, err = s.engine.Apply(ctx, records)
	}

	suffix := SuffixDone
	if err != nil {
		suffix = SuffixFailed
	}
	for _, f := range files {
		s.mark(f.path, suffix)
		s.release(f.path)
	}
	return res, err
}

func (s *Stream) flushAndReport(ctx context.Context) {
	res, err := s.Flush(ctx)
	if res == nil && err == nil {
		return
	}
	if err != nil {
		s.logger.Error("stream batch failed", "spool", s.dir, "error", err)
	}
	if s.onFlush != nil {
		s.onFlush(res, err)
	}
}

func (s *Stream) mark(path, suffix string) {
	if err := os.Rename(path, path+suffix); err != nil {
		s.logger.Warn("cannot mark spool file", "path", path, "suffix", suffix, "error", err)
	}
}

func (s *Stream) release(path string) {
	s.pendingMu.Lock()
	delete(s.pending, path)
	s.pendingMu.Unlock()
}

// candidate reports whether a spool path should be read.
func candidate(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	for _, suffix := range []string{SuffixDone, SuffixFailed, SuffixTemp} {
		if strings.HasSuffix(base, suffix) {
			return false
		}
	}
	return true
}
