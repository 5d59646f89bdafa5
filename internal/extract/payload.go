package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mitchellh/mapstructure"
)

// tikwmResponse is the envelope returned by the tikwm API. Data stays loosely
// typed so unknown keys can be carried into api_data.
type tikwmResponse struct {
	Msg  string         `json:"msg"`
	Data map[string]any `json:"data"`
}

// decodeResponse decodes with UseNumber: TikTok ids do not fit a float64.
func decodeResponse(body []byte) (*tikwmResponse, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var resp tikwmResponse
	if err := dec.Decode(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// isFormatError reports whether err came from the JSON text itself rather
// than from getting the bytes.
func isFormatError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) ||
		errors.As(err, &typeErr) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

// pageTitle returns the <title> of an HTML body, which is what block and
// captcha pages put their reason in. Non-HTML bodies yield "".
func pageTitle(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if !bytes.HasPrefix(trimmed, []byte("<")) {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(trimmed))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

type videoKind int

const (
	videoNone videoKind = iota
	videoWatermarked
	videoPlain
)

// videoSource is the single video URL chosen from a payload.
type videoSource struct {
	kind videoKind
	url  string
}

func (v videoSource) ok() bool { return v.kind != videoNone }

// Author is the provider's author field: a bare name, a profile object, or
// any other JSON value, which is passed through untouched.
type Author interface {
	Value() any
	isAuthor()
}

type AuthorName string

func (a AuthorName) Value() any { return string(a) }
func (AuthorName) isAuthor()    {}

type AuthorProfile map[string]any

func (a AuthorProfile) Value() any { return map[string]any(a) }
func (AuthorProfile) isAuthor()    {}

// AuthorValue holds an author that is neither a string nor an object, such
// as a bare numeric id.
type AuthorValue struct {
	v any
}

func (a AuthorValue) Value() any { return a.v }
func (AuthorValue) isAuthor()    {}

// tikwmPayload is the typed view of the data object.
type tikwmPayload struct {
	ID          string   `mapstructure:"id"`
	WMPlay      string   `mapstructure:"wmplay"`
	Play        string   `mapstructure:"play"`
	Images      []string `mapstructure:"images"`
	OriginCover string   `mapstructure:"origin_cover"`
	Cover       string   `mapstructure:"cover"`
	Title       string   `mapstructure:"title"`
	Duration    float64  `mapstructure:"duration"`
	CreateTime  int64    `mapstructure:"create_time"`

	HasDuration   bool   `mapstructure:"-"`
	HasCreateTime bool   `mapstructure:"-"`
	Author        Author `mapstructure:"-"`
}

func decodePayload(data map[string]any) (*tikwmPayload, error) {
	var p tikwmPayload
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &p,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(data); err != nil {
		return nil, fmt.Errorf("decoding data: %w", err)
	}

	// null counts as absent
	p.HasDuration = data["duration"] != nil
	p.HasCreateTime = data["create_time"] != nil

	switch a := data["author"].(type) {
	case nil:
	case string:
		p.Author = AuthorName(a)
	case map[string]any:
		p.Author = AuthorProfile(a)
	default:
		p.Author = AuthorValue{v: a}
	}

	return &p, nil
}

// video prefers the watermarked copy.
func (p *tikwmPayload) video() videoSource {
	switch {
	case p.WMPlay != "":
		return videoSource{kind: videoWatermarked, url: p.WMPlay}
	case p.Play != "":
		return videoSource{kind: videoPlain, url: p.Play}
	default:
		return videoSource{}
	}
}

func (p *tikwmPayload) cover() string {
	if p.OriginCover != "" {
		return p.OriginCover
	}
	return p.Cover
}

func (p *tikwmPayload) images() []string {
	var out []string
	for _, img := range p.Images {
		if img != "" {
			out = append(out, img)
		}
	}
	return out
}

// strippedKeys never reach api_data: download URLs, bulky lists, and fields
// already promoted to their own property.
var strippedKeys = map[string]bool{
	"wmplay":           true,
	"play":             true,
	"hdplay":           true,
	"wm_size":          true,
	"size":             true,
	"hd_size":          true,
	"images":           true,
	"origin_cover":     true,
	"cover":            true,
	"ai_dynamic_cover": true,
	"music":            true,
	"music_info":       true,
	"comments":         true,
	"title":            true,
	"author":           true,
	"create_time":      true,
}

func apiData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if !strippedKeys[k] {
			out[k] = v
		}
	}
	return out
}
