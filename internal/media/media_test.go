package media

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestMetadataSuccessInvariant(t *testing.T) {
	md := NewMetadata("https://example.com/a")
	if md.MarkSuccess() {
		t.Fatal("MarkSuccess() = true with no media")
	}
	if md.IsSuccess() {
		t.Error("IsSuccess() = true with no media")
	}

	// A stale flag must not make an empty result look successful.
	md.Set(KeySuccess, true)
	if md.IsSuccess() {
		t.Error("IsSuccess() = true with zero media and forced flag")
	}

	md.AddMedia(NewMedia("a.mp4"))
	if md.IsSuccess() {
		t.Error("IsSuccess() = true before MarkSuccess")
	}
	md.Set(KeySuccess, false)
	if !md.MarkSuccess() || !md.IsSuccess() {
		t.Error("expected success after adding media")
	}
}

func TestMediaOrderPreserved(t *testing.T) {
	md := NewMetadata("u")
	for _, name := range []string{"cover.jpg", "video.mp4", "img1.jpg"} {
		md.AddMedia(NewMedia(name))
	}
	want := []string{"cover.jpg", "video.mp4", "img1.jpg"}
	for i, m := range md.Media {
		if m.Filename() != want[i] {
			t.Errorf("media[%d] = %q, want %q", i, m.Filename(), want[i])
		}
	}
}

func TestTitleAndTimestamp(t *testing.T) {
	md := NewMetadata("u")
	if md.Title() != "" {
		t.Errorf("Title() = %q on empty metadata", md.Title())
	}
	if _, ok := md.Timestamp(); ok {
		t.Error("Timestamp() reported a value on empty metadata")
	}

	ts := time.Unix(1736301699, 0).UTC()
	md.Set(KeyTitle, "Title").Set(KeyTimestamp, ts)
	if md.Title() != "Title" {
		t.Errorf("Title() = %q, want Title", md.Title())
	}
	got, ok := md.Timestamp()
	if !ok || !got.Equal(ts) {
		t.Errorf("Timestamp() = %v, %v; want %v", got, ok, ts)
	}
}

func TestPropertiesReturnsCopy(t *testing.T) {
	m := NewMedia("f")
	m.Set("k", "v")
	props := m.Properties()
	props["k"] = "changed"
	if m.Get("k") != "v" {
		t.Error("mutating Properties() leaked into the media")
	}
}

func TestMarshalJSON(t *testing.T) {
	md := NewMetadata("https://example.com/a")
	md.Status = "tikwm: success"
	md.Set(KeyTitle, "t")
	md.AddMedia(NewMedia("a.mp4").Set(KeyDuration, 60.0))
	md.MarkSuccess()

	b, err := json.Marshal(md)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	out := string(b)
	for _, want := range []string{`"url":"https://example.com/a"`, `"filename":"a.mp4"`, `"duration":60`, `"success":true`} {
		if !strings.Contains(out, want) {
			t.Errorf("JSON %s missing %s", out, want)
		}
	}
}
