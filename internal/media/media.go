// Package media defines the result model shared by extractors, enrichers and
// the archive database: a Metadata per archived URL holding ordered Media files.
package media

import (
	"encoding/json"
	"maps"
	"time"
)

// Well-known property keys.
const (
	KeyTitle     = "title"
	KeyAuthor    = "author"
	KeyTimestamp = "timestamp"
	KeyAPIData   = "api_data"
	KeySuccess   = "success"
	KeyDuration  = "duration"
	KeyMetadata  = "metadata"
)

// Media is one downloaded file plus facts about it.
type Media struct {
	filename   string
	properties map[string]any
}

// NewMedia creates a Media for a file that already exists on disk.
func NewMedia(filename string) *Media {
	return &Media{filename: filename, properties: make(map[string]any)}
}

// Filename is the path of the stored file.
func (m *Media) Filename() string { return m.filename }

func (m *Media) Set(key string, value any) *Media {
	m.properties[key] = value
	return m
}

// Get returns the property or nil.
func (m *Media) Get(key string) any {
	return m.properties[key]
}

// Properties returns a copy of the property map.
func (m *Media) Properties() map[string]any {
	return maps.Clone(m.properties)
}

func (m *Media) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Filename   string         `json:"filename"`
		Properties map[string]any `json:"properties,omitempty"`
	}{m.filename, m.properties})
}

// Metadata is the archive result for one URL.
type Metadata struct {
	URL    string
	Status string
	Media  []*Media

	properties map[string]any
}

func NewMetadata(url string) *Metadata {
	return &Metadata{URL: url, properties: make(map[string]any)}
}

func (md *Metadata) Set(key string, value any) *Metadata {
	md.properties[key] = value
	return md
}

func (md *Metadata) Get(key string) any {
	return md.properties[key]
}

// Has reports whether key has been set, even to nil.
func (md *Metadata) Has(key string) bool {
	_, ok := md.properties[key]
	return ok
}

func (md *Metadata) Properties() map[string]any {
	return maps.Clone(md.properties)
}

// AddMedia appends m, keeping discovery order.
func (md *Metadata) AddMedia(m *Media) {
	md.Media = append(md.Media, m)
}

// Title returns the title property when it is a string.
func (md *Metadata) Title() string {
	s, _ := md.properties[KeyTitle].(string)
	return s
}

// Timestamp returns the timestamp property when one was set.
func (md *Metadata) Timestamp() (time.Time, bool) {
	ts, ok := md.properties[KeyTimestamp].(time.Time)
	return ts, ok
}

// MarkSuccess records the success flag from the media count and returns it.
func (md *Metadata) MarkSuccess() bool {
	ok := len(md.Media) > 0
	md.properties[KeySuccess] = ok
	return ok
}

// IsSuccess is true only when media were produced and MarkSuccess agreed.
// A Metadata without media is a failure whatever its flag says.
func (md *Metadata) IsSuccess() bool {
	if len(md.Media) == 0 {
		return false
	}
	ok, _ := md.properties[KeySuccess].(bool)
	return ok
}

func (md *Metadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		URL        string         `json:"url"`
		Status     string         `json:"status,omitempty"`
		Properties map[string]any `json:"properties"`
		Media      []*Media       `json:"media"`
	}{md.URL, md.Status, md.properties, md.Media})
}
