package extract

import (
	"context"
	"errors"
	"fmt"

	"archiver/internal/engine"
	"archiver/internal/logger"
	"archiver/internal/media"
)

// Dropin overrides the generic engine for the URLs it claims.
type Dropin interface {
	Name() string
	Suitable(url string, id engine.Identity) bool
	SkipEngineDownload(url string) bool
	Download(ctx context.Context, url string) (*media.Metadata, error)
}

// Attempt records one path the dispatcher tried for a URL.
type Attempt struct {
	Path string // "engine" or a dropin name
	Err  error  // nil when the path produced the result
}

var errNoEngine = errors.New("no engine configured")

// Dispatcher routes a URL to the first suitable dropin, or to the engine.
type Dispatcher struct {
	engine     engine.Engine
	identities []engine.Identity
	dropins    []Dropin
	log        logger.Logger
}

// NewDispatcher keeps identities and dropins in the order given; that order
// decides which dropin wins a URL. A nil engine is allowed when every URL
// will be owned by a dropin that skips it.
func NewDispatcher(eng engine.Engine, identities []engine.Identity, dropins ...Dropin) (*Dispatcher, error) {
	seen := make(map[string]bool, len(dropins))
	for i, d := range dropins {
		if d == nil {
			return nil, fmt.Errorf("dropin %d is nil", i)
		}
		if seen[d.Name()] {
			return nil, fmt.Errorf("dropin %q registered twice", d.Name())
		}
		seen[d.Name()] = true
	}

	return &Dispatcher{
		engine:     eng,
		identities: identities,
		dropins:    dropins,
		log:        logger.Get("Dispatch"),
	}, nil
}

// Match returns the dropin that owns url and the identity it matched under.
func (d *Dispatcher) Match(url string) (Dropin, engine.Identity, bool) {
	for _, id := range d.identities {
		for _, dropin := range d.dropins {
			if dropin.Suitable(url, id) {
				return dropin, id, true
			}
		}
	}
	return nil, engine.Identity{}, false
}

func (d *Dispatcher) Download(ctx context.Context, url string) (*media.Metadata, error) {
	md, _, err := d.DownloadTrace(ctx, url)
	return md, err
}

// DownloadTrace is Download plus the list of paths tried, in order.
func (d *Dispatcher) DownloadTrace(ctx context.Context, url string) (*media.Metadata, []Attempt, error) {
	var attempts []Attempt

	dropin, id, ok := d.Match(url)
	if ok && dropin.SkipEngineDownload(url) {
		d.log.Emit(logger.DEBUG, "Skipping using yt-dlp to download files for %s", id.Name)
		md, err := dropin.Download(ctx, url)
		attempts = append(attempts, Attempt{Path: dropin.Name(), Err: err})
		return md, attempts, err
	}

	md, err := d.runEngine(ctx, url)
	attempts = append(attempts, Attempt{Path: "engine", Err: err})
	if err == nil || !ok {
		return md, attempts, err
	}

	d.log.Emit(logger.INFO, "engine failed for %s, falling back to %s: %v", url, dropin.Name(), err)
	md, err = dropin.Download(ctx, url)
	attempts = append(attempts, Attempt{Path: dropin.Name(), Err: err})
	return md, attempts, err
}

func (d *Dispatcher) runEngine(ctx context.Context, url string) (*media.Metadata, error) {
	if d.engine == nil {
		return nil, errNoEngine
	}
	md, err := d.engine.Download(ctx, url)
	if err != nil {
		return nil, err
	}
	if !md.IsSuccess() {
		return nil, fmt.Errorf("engine produced no media for %s", url)
	}
	return md, nil
}
