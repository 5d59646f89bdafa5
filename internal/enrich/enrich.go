// Package enrich attaches per-file metadata read by exiftool to archived media.
package enrich

import (
	"context"
	"errors"
	"strings"

	"archiver/internal/logger"
	"archiver/internal/media"
)

// DefaultTool is looked up on PATH.
const DefaultTool = "exiftool"

// DefaultKeys is the selection used when the configuration names none.
var DefaultKeys = []string{"author", "datetime", "location"}

// Selection groups. A requested key that is not a group name selects the
// field with that name, ignoring case.
var (
	authorTerms   = []string{"author", "producer", "creator"}
	locationTerms = []string{"gps", "latitude", "longitude"}
)

const dateTimeSuffix = "date/time"

type Options struct {
	Tool   string
	Runner Runner
	Logger logger.Logger
}

// Enricher reads metadata from media files with an external tool. It never
// fails the archive: every tool problem is logged and yields no metadata.
type Enricher struct {
	tool   string
	runner Runner
	log    logger.Logger
}

func New(opts Options) *Enricher {
	e := &Enricher{tool: opts.Tool, runner: opts.Runner, log: opts.Logger}
	if e.tool == "" {
		e.tool = DefaultTool
	}
	if e.runner == nil {
		e.runner = ExecRunner{}
	}
	if e.log == nil {
		e.log = logger.Get("Metadata")
	}
	return e
}

// Enrich sets the metadata property on every media whose selected metadata is
// non-empty. An empty keys list keeps every field.
func (e *Enricher) Enrich(ctx context.Context, md *media.Metadata, keys []string) {
	e.log.Emit(logger.DEBUG, "Extracting EXIF metadata")

	for _, m := range md.Media {
		all := e.GetMetadata(ctx, m.Filename())
		if len(all) == 0 {
			continue
		}

		selected := all
		if len(keys) > 0 {
			selected = Select(all, keys)
		}
		if len(selected) > 0 {
			m.Set(media.KeyMetadata, selected)
		}
	}
}

// GetMetadata runs the tool on filename and parses its "Key: Value" lines.
// Any failure is logged and returns an empty map.
func (e *Enricher) GetMetadata(ctx context.Context, filename string) map[string]string {
	out, err := e.runner.Output(ctx, e.tool, filename)
	if err != nil {
		if errors.Is(err, ErrToolNotFound) {
			e.log.Emit(logger.WARNING, "%s not found, install it and add it to PATH to extract file metadata: %v", e.tool, err)
		} else {
			e.log.Emit(logger.ERROR, "Error occurred: %v", err)
		}
		return map[string]string{}
	}
	return Parse(out)
}

// Parse splits each line on its first colon. Lines without one are skipped.
func Parse(out string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		fields[key] = strings.TrimSpace(value)
	}
	return fields
}

// Select returns the fields of all that belong to any of the requested
// groups. Fields with empty values are never selected.
func Select(all map[string]string, keys []string) map[string]string {
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[strings.ToLower(strings.TrimSpace(k))] = true
	}

	selected := make(map[string]string)
	for key, value := range all {
		if value == "" {
			continue
		}
		lower := strings.ToLower(key)

		switch {
		case want["author"] && containsAny(lower, authorTerms):
		case want["datetime"] && strings.HasSuffix(lower, dateTimeSuffix):
		case want["location"] && containsAny(lower, locationTerms):
		case want[lower]:
		default:
			continue
		}
		selected[key] = value
	}
	return selected
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
