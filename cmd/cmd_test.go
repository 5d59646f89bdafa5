package cmd

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
	"time"

	"archiver/internal/archivedb"
	"archiver/internal/media"
)

func TestSplitKeys(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"author,datetime", []string{"author", "datetime"}},
		{" megapixels , ,location ", []string{"megapixels", "location"}},
		{"", nil},
	}

	for _, tt := range tests {
		if got := splitKeys(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitKeys(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormatRecord(t *testing.T) {
	started := time.Date(2025, 1, 8, 2, 1, 39, 0, time.UTC)

	done := formatRecord(archivedb.Record{
		URL: "https://vt.tiktok.com/ZSMTJeqRP/", Status: archivedb.StatusDone,
		Title: "Title", MediaCount: 2, StartedAt: started,
	}, false)
	if !strings.Contains(done, "done") || !strings.Contains(done, "Title [2 media]") {
		t.Errorf("done line = %q", done)
	}

	failed := formatRecord(archivedb.Record{
		URL: "https://vt.tiktok.com/ZSMTJeqRP/", Status: archivedb.StatusFailed,
		Reason: "tikwm: provider reported failure", StartedAt: started,
	}, false)
	if !strings.HasSuffix(failed, "tikwm: provider reported failure") {
		t.Errorf("failed line = %q", failed)
	}
}

func TestPrintResults(t *testing.T) {
	md := media.NewMetadata("https://vt.tiktok.com/ZSMTJeqRP/")
	md.Set(media.KeyTitle, "Title")
	md.AddMedia(media.NewMedia("/tmp/1_cover.jpg"))
	md.AddMedia(media.NewMedia("/tmp/1_video.mp4"))

	var buf bytes.Buffer
	if err := printResults(&buf, []*media.Metadata{md}); err != nil {
		t.Fatal(err)
	}
	want := "Title\n  /tmp/1_cover.jpg\n  /tmp/1_video.mp4\n"
	if buf.String() != want {
		t.Errorf("printResults() = %q, want %q", buf.String(), want)
	}

	flagJSON = true
	t.Cleanup(func() { flagJSON = false })
	buf.Reset()
	if err := printResults(&buf, []*media.Metadata{md}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"filename": "/tmp/1_video.mp4"`) {
		t.Errorf("JSON output missing media: %s", buf.String())
	}
}
