package inbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
	"github.com/custodia-labs/docsync/internal/logger"
)

const (
	// DefaultSettle is how long an entry must be quiet before it is queued.
	DefaultSettle = 2 * time.Second

	// QueuedDir holds entries already handed to the upload queue.
	QueuedDir = ".queued"
)

// supportedExtensions are the capture formats the server consumes.
var supportedExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
	".webp": true,
	".gif":  true,
}

// ErrAlreadyRunning is returned when Run is called twice.
var ErrAlreadyRunning = errors.New("inbox: watcher already running")

// Watcher queues captures dropped into a directory.
type Watcher struct {
	dir    string
	queue  driving.QueueService
	settle time.Duration

	mu      sync.Mutex
	running bool
	timers  map[string]*time.Timer
	ready   chan string
}

// NewWatcher creates a watcher for dir. A non-positive settle uses DefaultSettle.
func NewWatcher(dir string, queue driving.QueueService, settle time.Duration) (*Watcher, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: inbox directory is required", domain.ErrInvalidInput)
	}
	if queue == nil {
		return nil, fmt.Errorf("%w: queue service is required", domain.ErrInvalidInput)
	}
	if settle <= 0 {
		settle = DefaultSettle
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve inbox directory: %w", err)
	}
	return &Watcher{
		dir:    abs,
		queue:  queue,
		settle: settle,
		timers: make(map[string]*time.Timer),
		ready:  make(chan string, 64),
	}, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Run watches the inbox until ctx is cancelled. Entries already present
// when it starts are queued too. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return ErrAlreadyRunning
	}
	w.running = true
	w.mu.Unlock()
	defer w.stop()

	if err := os.MkdirAll(filepath.Join(w.dir, QueuedDir), 0700); err != nil {
		return fmt.Errorf("create inbox: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch inbox %s: %w", w.dir, err)
	}
	logger.Info("watching inbox %s", w.dir)

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("read inbox: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() && !skipName(e.Name()) {
			w.watchSubdir(fsw, filepath.Join(w.dir, e.Name()))
		}
		w.touch(ctx, e.Name())
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, fsw, event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("inbox watcher: %v", err)

		case name := <-w.ready:
			if err := w.ingest(ctx, name); err != nil {
				logger.Warn("inbox: queue %s: %v", name, err)
			}
		}
	}
}

// handleEvent restarts the settle timer of the top-level entry touched by event.
func (w *Watcher) handleEvent(ctx context.Context, fsw *fsnotify.Watcher, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	name, ok := w.topLevel(event.Name)
	if !ok {
		return
	}
	if event.Has(fsnotify.Create) && filepath.Dir(event.Name) == w.dir {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.watchSubdir(fsw, event.Name)
		}
	}
	w.touch(ctx, name)
}

// topLevel maps a path inside the inbox to its top-level entry name.
func (w *Watcher) topLevel(path string) (string, bool) {
	rel, err := filepath.Rel(w.dir, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	name := strings.Split(rel, string(filepath.Separator))[0]
	if skipName(name) {
		return "", false
	}
	return name, true
}

func (w *Watcher) watchSubdir(fsw *fsnotify.Watcher, path string) {
	if err := fsw.Add(path); err != nil {
		logger.Warn("inbox: watch %s: %v", path, err)
	}
}

// touch (re)arms the settle timer for name.
func (w *Watcher) touch(ctx context.Context, name string) {
	if skipName(name) {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[name]; ok {
		t.Reset(w.settle)
		return
	}
	w.timers[name] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.timers, name)
		w.mu.Unlock()
		select {
		case w.ready <- name:
		case <-ctx.Done():
		}
	})
}

func (w *Watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for name, t := range w.timers {
		t.Stop()
		delete(w.timers, name)
	}
	w.running = false
}

// ingest moves a settled entry under QueuedDir and queues it.
func (w *Watcher) ingest(ctx context.Context, name string) error {
	src := filepath.Join(w.dir, name)
	info, err := os.Stat(src)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var pages []string
	if info.IsDir() {
		pages, err = listPages(src)
		if err != nil {
			return err
		}
		if len(pages) == 0 {
			logger.Debug("inbox: %s has no supported pages", name)
			return nil
		}
	} else if !isSupported(name) {
		logger.Debug("inbox: skipping unsupported file %s", name)
		return nil
	}

	dst, err := w.reserve(name)
	if err != nil {
		return err
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("move to queue: %w", err)
	}

	upload := &domain.PendingUpload{
		URI:   dst,
		Title: strings.TrimSuffix(name, filepath.Ext(name)),
	}
	if info.IsDir() {
		upload.Title = name
		upload.URI = filepath.Join(dst, pages[0])
		for _, p := range pages[1:] {
			upload.AdditionalURIs = append(upload.AdditionalURIs, filepath.Join(dst, p))
		}
	}

	if err := w.queue.EnqueueUpload(ctx, upload); err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	logger.Info("inbox: queued %s (%d pages)", name, len(upload.AllURIs()))
	return nil
}

// reserve picks a free destination under QueuedDir.
func (w *Watcher) reserve(name string) (string, error) {
	base := filepath.Join(w.dir, QueuedDir)
	dst := filepath.Join(base, name)
	for i := 1; ; i++ {
		_, err := os.Lstat(dst)
		if errors.Is(err, os.ErrNotExist) {
			return dst, nil
		}
		if err != nil {
			return "", err
		}
		ext := filepath.Ext(name)
		dst = filepath.Join(base, fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), i, ext))
	}
}

// listPages returns the supported files of dir in name order.
func listPages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var pages []string
	for _, e := range entries {
		if e.IsDir() || skipName(e.Name()) || !isSupported(e.Name()) {
			continue
		}
		pages = append(pages, e.Name())
	}
	sort.Strings(pages)
	return pages, nil
}

func isSupported(name string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(name))]
}

// skipName ignores hidden entries, editor temp files and the queue itself.
func skipName(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") || strings.HasSuffix(name, ".part")
}
