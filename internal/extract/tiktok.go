package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"

	"archiver/internal/download"
	"archiver/internal/httputil"
	"archiver/internal/logger"
	"archiver/internal/media"
)

const (
	// DefaultTikwmAPI is the public tikwm endpoint; the original URL goes in ?url=.
	DefaultTikwmAPI = "https://www.tikwm.com/api/"

	// DefaultTikwmInterval is the spacing tikwm tolerates between calls
	// from one client before it starts rejecting requests.
	DefaultTikwmInterval = time.Second

	maxAPIAttempts = 2
)

// TikTokOptions configures the tikwm-backed TikTok dropin.
type TikTokOptions struct {
	APIURL  string
	Dir     string
	Client  *http.Client
	Limiter Limiter
	Logger  logger.Logger
}

// TikTok archives TikTok videos and photo posts through the tikwm API instead
// of the generic engine.
//
// tikwm throttles clients that call it more than about once a second. Every
// API call waits on the injected Limiter, so share one Limiter between all
// TikTok values in a process (or use a RedisLimiter across processes).
type TikTok struct {
	api     string
	dir     string
	client  *http.Client
	limiter Limiter
	log     logger.Logger
}

func NewTikTok(opts TikTokOptions) *TikTok {
	t := &TikTok{
		api:     opts.APIURL,
		dir:     opts.Dir,
		client:  opts.Client,
		limiter: opts.Limiter,
		log:     opts.Logger,
	}
	if t.api == "" {
		t.api = DefaultTikwmAPI
	}
	if t.dir == "" {
		t.dir = "."
	}
	if t.client == nil {
		t.client = httputil.NewClient(0)
	}
	if t.limiter == nil {
		t.limiter = NewIntervalLimiter(DefaultTikwmInterval)
	}
	if t.log == nil {
		t.log = logger.Get("TikTok")
	}
	return t
}

func (t *TikTok) Name() string { return "tikwm" }

// SkipEngineDownload is always true: when this dropin is suitable the engine
// would only hit the same blocks tikwm exists to avoid.
func (t *TikTok) SkipEngineDownload(string) bool { return true }

// Download archives url. The returned error is always a *Failure.
func (t *TikTok) Download(ctx context.Context, rawURL string) (*media.Metadata, error) {
	resp, err := t.fetchResponse(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if resp.Msg != "success" {
		t.log.Emit(logger.WARNING, "Unable to download with tikwm.com: %s (%s)", resp.Msg, rawURL)
		return nil, t.fail(ErrProviderReportedFailure, rawURL, resp.Msg, nil)
	}
	if resp.Data == nil {
		t.log.Emit(logger.WARNING, "Unable to download with tikwm.com: response has no data (%s)", rawURL)
		return nil, t.fail(ErrEmptyResult, rawURL, "response has no data", nil)
	}

	// a wrong shape is not retried, the provider would send it again
	payload, err := decodePayload(resp.Data)
	if err != nil {
		t.log.Emit(logger.WARNING, "Unable to download with tikwm.com: %v (%s)", err, rawURL)
		return nil, t.fail(ErrMalformedResponse, rawURL, "", err)
	}

	video := payload.video()
	images := payload.images()
	if !video.ok() && len(images) == 0 {
		t.log.Emit(logger.WARNING, "Unable to download with tikwm.com: no video or images for %s", rawURL)
		return nil, t.fail(ErrEmptyResult, rawURL, "no video or images", nil)
	}

	md := media.NewMetadata(rawURL)
	if err := t.fetchAssets(ctx, md, payload, video, images); err != nil {
		t.log.Emit(logger.ERROR, "Unable to download with tikwm.com: %v", err)
		return nil, t.fail(ErrAssetFetch, rawURL, "", err)
	}

	if payload.Title != "" {
		md.Set(media.KeyTitle, payload.Title)
	}
	if payload.HasCreateTime {
		md.Set(media.KeyTimestamp, time.Unix(payload.CreateTime, 0).UTC())
	}
	if payload.Author != nil {
		md.Set(media.KeyAuthor, payload.Author.Value())
	}

	data := apiData(resp.Data)
	md.Set(media.KeyAPIData, data)
	for k, v := range data {
		if !md.Has(k) {
			md.Set(k, v)
		}
	}

	md.Status = "tikwm: success"
	md.MarkSuccess()
	t.log.Emit(logger.SUCCESS, "Archived %d media from %s", len(md.Media), rawURL)
	return md, nil
}

// fetchResponse calls the API, retrying once when the body cannot be decoded.
func (t *TikTok) fetchResponse(ctx context.Context, rawURL string) (*tikwmResponse, error) {
	apiURL, err := httputil.WithQuery(t.api, "url", rawURL)
	if err != nil {
		return nil, t.fail(ErrProviderUnreachable, rawURL, "", err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAPIAttempts; attempt++ {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, t.fail(ErrProviderUnreachable, rawURL, "rate limit wait", err)
		}

		body, err := httputil.GetJSON(ctx, t.client, apiURL)
		if err != nil {
			if !errors.Is(err, httputil.ErrBodyRead) {
				t.log.Emit(logger.WARNING, "tikwm unreachable for %s: %v", rawURL, err)
				return nil, t.fail(ErrProviderUnreachable, rawURL, "", err)
			}
			lastErr = err
			t.log.Emit(logger.ERROR, "Failed to parse JSON response from tikwm.com (attempt %d/%d): %v", attempt, maxAPIAttempts, err)
			continue
		}

		resp, err := decodeResponse(body)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !isFormatError(err) {
			t.log.Emit(logger.ERROR, "Failed to parse JSON response from tikwm.com (attempt %d/%d): %v", attempt, maxAPIAttempts, err)
			continue
		}
		if title := pageTitle(body); title != "" {
			t.log.Emit(logger.WARNING, "Failed to parse JSON response from tikwm.com (attempt %d/%d): got HTML page %q", attempt, maxAPIAttempts, title)
		} else {
			t.log.Emit(logger.WARNING, "Failed to parse JSON response from tikwm.com (attempt %d/%d): %v", attempt, maxAPIAttempts, err)
		}
	}

	return nil, t.fail(ErrMalformedResponse, rawURL, "", lastErr)
}

// fetchAssets downloads cover, video and images in that order. On any error
// the files already written are removed.
func (t *TikTok) fetchAssets(ctx context.Context, md *media.Metadata, p *tikwmPayload, video videoSource, images []string) error {
	base := p.ID
	if httputil.ValidateNumericID(base) != nil {
		base = uuid.NewString()
	}

	var written []string
	fetch := func(assetURL, name string) (*media.Media, error) {
		resolved, err := t.resolve(assetURL)
		if err != nil {
			return nil, err
		}
		path, err := download.Fetch(ctx, t.client, resolved, t.dir, name)
		if err != nil {
			return nil, err
		}
		written = append(written, path)
		return media.NewMedia(path), nil
	}
	cleanup := func() {
		for _, path := range written {
			os.Remove(path)
		}
	}

	if cover := p.cover(); cover != "" {
		m, err := fetch(cover, base+"_cover")
		if err != nil {
			cleanup()
			return fmt.Errorf("cover: %w", err)
		}
		md.AddMedia(m)
	}

	if video.ok() {
		m, err := fetch(video.url, base+"_video")
		if err != nil {
			cleanup()
			return fmt.Errorf("video: %w", err)
		}
		if p.HasDuration {
			m.Set(media.KeyDuration, p.Duration)
		}
		md.AddMedia(m)
	}

	for i, img := range images {
		m, err := fetch(img, fmt.Sprintf("%s_image_%02d", base, i+1))
		if err != nil {
			cleanup()
			return fmt.Errorf("image %d: %w", i+1, err)
		}
		md.AddMedia(m)
	}

	return nil
}

// resolve turns the relative asset paths tikwm sometimes returns into
// absolute URLs on the API host.
func (t *TikTok) resolve(assetURL string) (string, error) {
	base, err := url.Parse(t.api)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(assetURL)
	if err != nil {
		return "", fmt.Errorf("parsing asset URL %q: %w", assetURL, err)
	}
	return base.ResolveReference(ref).String(), nil
}

func (t *TikTok) fail(kind error, rawURL, reason string, err error) *Failure {
	return &Failure{Kind: kind, Dropin: t.Name(), URL: rawURL, Reason: reason, Err: err}
}
