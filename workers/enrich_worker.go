package workers

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/facette/natsort"

	"github.com/gfurlani/fotocatalogo/config"
	"github.com/gfurlani/fotocatalogo/models"
	"github.com/gfurlani/fotocatalogo/pipeline"
	"github.com/gfurlani/fotocatalogo/repository"
)

// Worker states reported by Status.
const (
	StateIdle    = "idle"
	StateRunning = "running"
	StatePaused  = "paused"
	StateStopped = "stopped"
)

// pausePoll is the granularity of the cooperative pause loop.
const pausePoll = 100 * time.Millisecond

// Processor is the per-image pipeline surface.
type Processor interface {
	Process(ctx context.Context, path string, existing *models.ImageRecord) (*models.ImageRecord, error)
}

// EnrichWorker drives the catalog enrichment: one background goroutine
// walks the input list in natural order and runs the pipeline per image.
// Inference is sequential by design; only the per-image generation calls
// fan out, inside the pipeline.
type EnrichWorker struct {
	cfg  *config.Config
	repo repository.ImageRecordRepository
	proc Processor

	// ReleaseCache, when set, runs after every record to hand device
	// memory back between images.
	ReleaseCache func()

	Stats pipeline.Stats

	mu        sync.Mutex
	state     string
	paused    bool
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewEnrichWorker(cfg *config.Config, repo repository.ImageRecordRepository, proc Processor) *EnrichWorker {
	return &EnrichWorker{
		cfg:   cfg,
		repo:  repo,
		proc:  proc,
		state: StateIdle,
	}
}

// Start launches a run over the given input paths. A run already in
// flight is an error; finish or stop it first.
func (w *EnrichWorker) Start(paths []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isRunning {
		return fmt.Errorf("enrichment run already in progress")
	}

	inputs := w.filterSupported(paths)
	natsort.Sort(inputs)

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.isRunning = true
	w.paused = false
	w.state = StateRunning
	w.done = make(chan struct{})
	w.Stats.Begin(len(inputs))

	go w.run(ctx, inputs)
	return nil
}

// Pause suspends the loop before the next record.
func (w *EnrichWorker) Pause() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isRunning {
		w.paused = true
		w.state = StatePaused
	}
}

// Resume releases a paused loop.
func (w *EnrichWorker) Resume() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isRunning && w.paused {
		w.paused = false
		w.state = StateRunning
	}
}

// Stop requests cancellation; the in-flight record finishes first.
func (w *EnrichWorker) Stop() {
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
	}
	w.paused = false
	w.mu.Unlock()
}

// Wait blocks until the current run finishes. Safe without a run.
func (w *EnrichWorker) Wait() {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Status reports the worker state and a stats snapshot.
func (w *EnrichWorker) Status() (string, pipeline.StatsSnapshot) {
	w.mu.Lock()
	state := w.state
	w.mu.Unlock()
	return state, w.Stats.Snapshot()
}

func (w *EnrichWorker) run(ctx context.Context, inputs []string) {
	defer func() {
		w.mu.Lock()
		w.isRunning = false
		if w.state != StateStopped {
			w.state = StateIdle
		}
		close(w.done)
		w.mu.Unlock()
	}()

	existing, errored, err := w.loadSkipSets()
	if err != nil {
		log.Printf("worker: failed to load catalog state: %v", err)
		return
	}

	log.Printf("worker: starting enrichment of %d files, mode %s", len(inputs), w.cfg.ProcessingMode)
	for _, path := range inputs {
		if !w.waitWhilePaused(ctx) {
			w.markStopped()
			return
		}

		filename := filepath.Base(path)
		if w.shouldSkip(filename, existing, errored) {
			w.Stats.Skip()
			continue
		}

		start := time.Now()
		prior, err := w.repo.GetByFilename(filename)
		if err != nil {
			prior = nil
		}

		rec, err := w.proc.Process(ctx, path, prior)
		elapsed := time.Since(start).Seconds()
		if err != nil {
			log.Printf("worker: %s failed: %v", filename, err)
			if markErr := w.repo.MarkError(filename, path, err); markErr != nil {
				log.Printf("worker: could not mark %s errored: %v", filename, markErr)
			}
			w.Stats.RecordError(elapsed)
		} else if saveErr := w.repo.Save(rec); saveErr != nil {
			// PersistError counts against the record, never aborts the run
			log.Printf("worker: %v for %s: %v", pipeline.ErrPersist, filename, saveErr)
			w.Stats.RecordError(elapsed)
		} else {
			w.Stats.RecordSuccess(rec.EmbeddingGenerated, rec.TagsJoined != "", elapsed)
		}

		if w.ReleaseCache != nil {
			w.ReleaseCache()
		}

		select {
		case <-ctx.Done():
			w.markStopped()
			return
		default:
		}
	}

	snap := w.Stats.Snapshot()
	log.Printf("worker: run complete: %d processed, %d ok, %d errors, %d skipped, %.1fs",
		snap.Processed, snap.Success, snap.Errors, snap.SkippedExisting, snap.ProcessingTime)
}

// waitWhilePaused polls the pause flag; false means the run was cancelled
// while waiting.
func (w *EnrichWorker) waitWhilePaused(ctx context.Context) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		w.mu.Lock()
		paused := w.paused
		w.mu.Unlock()
		if !paused {
			return true
		}
		time.Sleep(pausePoll)
	}
}

func (w *EnrichWorker) markStopped() {
	w.mu.Lock()
	w.state = StateStopped
	w.mu.Unlock()
	log.Println("worker: run stopped")
}

// loadSkipSets fetches the catalog filename sets the processing mode
// filters against. reprocess_all needs neither.
func (w *EnrichWorker) loadSkipSets() (existing, errored map[string]bool, err error) {
	if w.cfg.ProcessingMode == config.ModeReprocessAll {
		return nil, nil, nil
	}
	existing, err = w.repo.ExistingFilenames()
	if err != nil {
		return nil, nil, err
	}
	if w.cfg.ProcessingMode == config.ModeNewPlusErrors {
		errored, err = w.repo.ErroredFilenames()
		if err != nil {
			return nil, nil, err
		}
	}
	return existing, errored, nil
}

func (w *EnrichWorker) shouldSkip(filename string, existing, errored map[string]bool) bool {
	switch w.cfg.ProcessingMode {
	case config.ModeReprocessAll:
		return false
	case config.ModeNewPlusErrors:
		return existing[filename] && !errored[filename]
	default: // new_only
		return existing[filename]
	}
}

// filterSupported drops paths whose extension is not in the configured
// format list.
func (w *EnrichWorker) filterSupported(paths []string) []string {
	supported := w.cfg.SupportedFormatSet()
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if supported[strings.ToLower(filepath.Ext(p))] {
			out = append(out, p)
		}
	}
	return out
}
