// Package archive periodically writes the reconciler's corrected statistics
// snapshot to an object store as Parquet, giving dashboards a long-term
// history that outlives the exporter's in-memory state.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pgpulse/pgpulse/internal/observability"
	"github.com/pgpulse/pgpulse/internal/storage"
)

// SnapshotSource exposes the current corrected value per tracked key.
type SnapshotSource interface {
	Snapshot() map[string]float64
}

type Config struct {
	Database string
	Interval time.Duration
	// KeepSnapshots bounds how many snapshots written by this process are
	// retained in the store. Zero keeps everything.
	KeepSnapshots int
}

type Service struct {
	Source SnapshotSource
	Store  storage.ObjectStore
	Config Config
	Logger *slog.Logger
	Clock  func() time.Time

	// Keys written this process lifetime, oldest first. Feeds retention.
	written []string
}

func (s *Service) Run(ctx context.Context) error {
	s.ensureDefaults()

	ticker := time.NewTicker(s.Config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		err := s.ArchiveOnce(ctx)
		observability.ObserveArchiveRun(err)
		if err != nil && s.Logger != nil {
			s.Logger.ErrorContext(ctx, "archive cycle failed", slog.Any("error", err))
		}
	}
}

// ArchiveOnce writes one snapshot. A snapshot with no observed keys yet is
// skipped, not an error.
func (s *Service) ArchiveOnce(ctx context.Context) error {
	s.ensureDefaults()

	snapshot := s.Source.Snapshot()
	if len(snapshot) == 0 {
		return nil
	}

	now := s.Clock()
	encoded, err := EncodeSnapshotToParquet(snapshot, now)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	key, err := storage.BuildArchivePath(s.Config.Database, now)
	if err != nil {
		return fmt.Errorf("build archive path: %w", err)
	}

	// Stat first so a retried cycle does not overwrite an object that the
	// previous attempt already committed.
	if _, err := s.Store.Stat(ctx, key); err == nil {
		if s.Logger != nil {
			s.Logger.DebugContext(ctx, "archive object already present", slog.String("key", key))
		}
		return nil
	} else if !errors.Is(err, storage.ErrObjectNotFound) && s.Logger != nil {
		s.Logger.WarnContext(ctx, "archive stat failed, writing anyway", slog.String("key", key), slog.Any("error", err))
	}

	info, err := s.Store.Put(ctx, key, bytes.NewReader(encoded), int64(len(encoded)), storage.PutOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return fmt.Errorf("put archive object: %w", err)
	}
	s.written = append(s.written, key)
	s.pruneRetained(ctx)

	if s.Logger != nil {
		s.Logger.InfoContext(ctx, "archived statistics snapshot",
			slog.String("key", info.Key),
			slog.Int64("bytes", info.Size),
			slog.Int("metrics", len(snapshot)),
		)
	}
	return nil
}

// pruneRetained deletes the oldest snapshots written by this process until at
// most KeepSnapshots remain. Deletion failures are logged and retried on the
// next cycle.
func (s *Service) pruneRetained(ctx context.Context) {
	if s.Config.KeepSnapshots <= 0 {
		return
	}
	for len(s.written) > s.Config.KeepSnapshots {
		oldest := s.written[0]
		if err := s.Store.Delete(ctx, oldest); err != nil {
			if s.Logger != nil {
				s.Logger.WarnContext(ctx, "prune archive object failed", slog.String("key", oldest), slog.Any("error", err))
			}
			return
		}
		s.written = s.written[1:]
		if s.Logger != nil {
			s.Logger.InfoContext(ctx, "pruned archive object", slog.String("key", oldest))
		}
	}
}

func (s *Service) ensureDefaults() {
	if s.Clock == nil {
		s.Clock = time.Now
	}
	if s.Config.Interval <= 0 {
		s.Config.Interval = 5 * time.Minute
	}
	if s.Config.Database == "" {
		s.Config.Database = "postgres"
	}
}
