// Package archive runs one URL through dispatch, enrichment and the archive
// database.
package archive

import (
	"context"
	"errors"
	"fmt"

	"archiver/internal/archivedb"
	"archiver/internal/logger"
	"archiver/internal/media"
)

type Downloader interface {
	Download(ctx context.Context, url string) (*media.Metadata, error)
}

type Enricher interface {
	Enrich(ctx context.Context, md *media.Metadata, keys []string)
}

// Store is the subset of the archive database the pipeline writes to.
type Store interface {
	Started(ctx context.Context, url string) (archivedb.Record, error)
	Done(ctx context.Context, id string, md *media.Metadata) error
	Failed(ctx context.Context, id, reason string) error
	Aborted(ctx context.Context, id string) error
}

// Archiver ties the pipeline together. Enricher and Store may be nil.
type Archiver struct {
	Downloader   Downloader
	Enricher     Enricher
	Store        Store
	MetadataKeys []string

	log logger.Logger
}

func New(downloader Downloader, enricher Enricher, store Store, keys []string) *Archiver {
	return &Archiver{
		Downloader:   downloader,
		Enricher:     enricher,
		Store:        store,
		MetadataKeys: keys,
		log:          logger.Get("Archive"),
	}
}

// Archive downloads and enriches url. The returned Metadata is nil on error.
func (a *Archiver) Archive(ctx context.Context, url string) (*media.Metadata, error) {
	if a.log == nil {
		a.log = logger.Get("Archive")
	}

	var recordID string
	if a.Store != nil {
		rec, err := a.Store.Started(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("recording start of %s: %w", url, err)
		}
		recordID = rec.ID
	}

	md, err := a.Downloader.Download(ctx, url)
	if err == nil && !md.IsSuccess() {
		err = errors.New("no media archived")
	}
	if err != nil {
		if ctx.Err() != nil {
			a.finish(ctx, recordID, func(ctx context.Context) error { return a.Store.Aborted(ctx, recordID) })
			return nil, fmt.Errorf("archiving %s: %w", url, ctx.Err())
		}
		a.log.Emit(logger.ERROR, "Failed to archive %s: %v", url, err)
		a.finish(ctx, recordID, func(ctx context.Context) error { return a.Store.Failed(ctx, recordID, err.Error()) })
		return nil, fmt.Errorf("archiving %s: %w", url, err)
	}

	if a.Enricher != nil {
		a.Enricher.Enrich(ctx, md, a.MetadataKeys)
	}

	if ctx.Err() != nil {
		a.finish(ctx, recordID, func(ctx context.Context) error { return a.Store.Aborted(ctx, recordID) })
		return nil, fmt.Errorf("archiving %s: %w", url, ctx.Err())
	}

	a.finish(ctx, recordID, func(ctx context.Context) error { return a.Store.Done(ctx, recordID, md) })
	a.log.Emit(logger.SUCCESS, "Archived %s (%d media)", url, len(md.Media))
	return md, nil
}

// finish writes the final record state even when ctx is already cancelled.
// Store errors are logged, the archive result stands.
func (a *Archiver) finish(ctx context.Context, recordID string, write func(context.Context) error) {
	if a.Store == nil {
		return
	}
	if err := write(context.WithoutCancel(ctx)); err != nil {
		a.log.Emit(logger.WARNING, "Could not update archive record %s: %v", recordID, err)
	}
}
