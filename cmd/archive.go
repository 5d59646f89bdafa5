package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"archiver/internal/archive"
	"archiver/internal/archivedb"
	"archiver/internal/config"
	"archiver/internal/engine"
	"archiver/internal/enrich"
	"archiver/internal/extract"
	"archiver/internal/httputil"
	"archiver/internal/logger"
	"archiver/internal/media"
)

const redisLimiterKey = "archiver:ratelimit:tikwm"

// archiveRun is the default command: archiver <url...>
func archiveRun(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}

	ctx := cmd.Context()
	a, closeFn, err := newArchiver(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	// one URL at a time keeps every tikwm call behind the same limiter
	var results []*media.Metadata
	failed := 0
	for _, url := range args {
		if ctx.Err() != nil {
			break
		}
		md, err := a.Archive(ctx, url)
		if err != nil {
			failed++
			continue
		}
		results = append(results, md)
	}

	if err := printResults(cmd.OutOrStdout(), results); err != nil {
		return err
	}

	if ctx.Err() != nil {
		return fmt.Errorf("interrupted: %w", ctx.Err())
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d URLs failed", failed, len(args))
	}
	return nil
}

// newArchiver wires the pipeline from configuration. The returned func
// releases the database and redis connections.
func newArchiver(ctx context.Context, cfg *config.Config) (*archive.Archiver, func(), error) {
	dir, err := cfg.ExpandDownloadDir()
	if err != nil {
		return nil, nil, fmt.Errorf("resolving download dir: %w", err)
	}

	var closers []func() error
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Emit(logger.WARNING, "closing: %v", err)
			}
		}
	}

	var limiter extract.Limiter = extract.NewIntervalLimiter(cfg.RateLimitInterval())
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		closers = append(closers, client.Close)
		limiter = extract.NewRedisLimiter(client, redisLimiterKey, cfg.RateLimitInterval())
		log.Emit(logger.DEBUG, "Sharing tikwm rate limit through redis at %s", cfg.RedisAddr)
	}

	tiktok := extract.NewTikTok(extract.TikTokOptions{
		APIURL:  cfg.TikwmAPI,
		Dir:     dir,
		Client:  httputil.NewClient(cfg.HTTPTimeout()),
		Limiter: limiter,
	})

	dispatcher, err := extract.NewDispatcher(engine.NewYtDlp(cfg.YtDlp, dir), engine.Identities(), tiktok)
	if err != nil {
		closeAll()
		return nil, nil, err
	}

	var enricher archive.Enricher
	if cfg.Enrich {
		enricher = enrich.New(enrich.Options{Tool: cfg.Exiftool})
	}

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	db, err := archivedb.Open(ctx, dbPath)
	if err != nil {
		closeAll()
		return nil, nil, fmt.Errorf("opening archive database: %w", err)
	}
	closers = append(closers, db.Close)

	return archive.New(dispatcher, enricher, db, cfg.MetadataKeys), closeAll, nil
}

func printResults(w io.Writer, results []*media.Metadata) error {
	if flagJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	for _, md := range results {
		title := md.Title()
		if title == "" {
			title = md.URL
		}
		fmt.Fprintf(w, "%s\n", title)
		for _, m := range md.Media {
			fmt.Fprintf(w, "  %s\n", m.Filename())
		}
	}
	return nil
}
