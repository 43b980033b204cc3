package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/thumbfast/server/internal/module/generation"
	"github.com/thumbfast/server/internal/module/history"
	"github.com/thumbfast/server/internal/module/stats"
	"github.com/thumbfast/server/internal/shared/logger"
)

// archiveTimeout bounds a single background archive upload.
const archiveTimeout = 2 * time.Minute

// Archiver stores the images of a history entry outside the history store.
type Archiver interface {
	Store(ctx context.Context, entry *history.Entry) error
}

// Recorder implements generation.Recorder. It files every non-empty batch
// into history, counts it in the usage stats and, when an archive is
// configured, uploads the images in the background.
type Recorder struct {
	history *history.Service
	stats   *stats.Tracker
	archive Archiver
	logger  *zap.Logger

	wg sync.WaitGroup
}

var _ generation.Recorder = (*Recorder)(nil)

// NewRecorder creates a recorder. archive may be nil.
func NewRecorder(h *history.Service, t *stats.Tracker, archive Archiver, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		history: h,
		stats:   t,
		archive: archive,
		logger:  logger.Named("recorder"),
	}
}

// Record implements generation.Recorder.
func (r *Recorder) Record(ctx context.Context, req *generation.Request, result *generation.Result) {
	if result == nil || result.Empty() {
		return
	}

	entry := &history.Entry{
		Prompt:   req.Prompt,
		Settings: settingsOf(result),
		Images:   make([]history.Image, 0, len(result.Images)),
	}
	for _, img := range result.Images {
		entry.Images = append(entry.Images, history.Image{Data: img.Data, MediaType: img.MediaType})
	}

	log := logger.Ctx(ctx, r.logger)
	// The batch is already paid for; a client hanging up must not lose it.
	ctx = context.WithoutCancel(ctx)
	if err := r.history.Add(ctx, entry); err != nil {
		log.Warn("record history failed", zap.Error(err))
	}

	r.stats.Track(ctx, len(result.Images), result.Model)

	if r.archive == nil || entry.ID == "" {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		actx, cancel := context.WithTimeout(ctx, archiveTimeout)
		defer cancel()
		if err := r.archive.Store(actx, entry); err != nil {
			log.Warn("archive images failed", zap.String("entry_id", entry.ID), zap.Error(err))
		}
	}()
}

// Wait blocks until background archive uploads finish.
func (r *Recorder) Wait() {
	r.wg.Wait()
}

func settingsOf(result *generation.Result) history.Settings {
	modes := make([]string, len(result.Modes))
	for i, m := range result.Modes {
		modes[i] = string(m)
	}
	return history.Settings{
		Model: result.Model,
		Modes: modes,
		Grid:  result.Layout,
		Blend: result.Blend,
		Count: result.Requested,
	}
}
