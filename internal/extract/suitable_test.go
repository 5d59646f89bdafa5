package extract

import (
	"testing"

	"archiver/internal/engine"
)

func identity(t *testing.T, name string) engine.Identity {
	t.Helper()
	for _, id := range engine.Identities() {
		if id.Name == name {
			return id
		}
	}
	t.Fatalf("no engine identity %q", name)
	return engine.Identity{}
}

func TestTikTokSuitable(t *testing.T) {
	tiktok := NewTikTok(TikTokOptions{})
	id := identity(t, "TikTok")

	tests := []struct {
		url      string
		expected bool
	}{
		{"https://bellingcat.com", false},
		{"https://youtube.com", false},
		{"https://tiktok.co/", false},
		{"https://tiktok.com/", false},
		{"https://www.tiktok.com/", false},
		{"https://api.cool.tiktok.com/", false},
		{"https://www.tiktok.com/@example/video/1234", true},
		{"https://www.tiktok.com/@bbcnews/video/7478038212070411542", true},
		{"https://www.tiktok.com/@ggs68taiwan.official/video/7441821351142362375", true},
		{"https://www.tiktok.com/t/ZP8YQ8e5j/", true},
		{"https://vt.tiktok.com/ZSMTJeqRP/", true},
		{"https://tiktok.com/@user/photo/123?lang=en", true},
		{"https://vm.tiktok.com/ZMabc123/", true},
		{"https://www.tiktok.com/@user", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := tiktok.Suitable(tt.url, id); got != tt.expected {
				t.Errorf("Suitable(%q) = %v, want %v", tt.url, got, tt.expected)
			}
			// no state between calls
			if got := tiktok.Suitable(tt.url, id); got != tt.expected {
				t.Errorf("second Suitable(%q) = %v, want %v", tt.url, got, tt.expected)
			}
		})
	}
}

func TestTikTokSuitableOtherIdentity(t *testing.T) {
	tiktok := NewTikTok(TikTokOptions{})
	url := "https://www.tiktok.com/@bbcnews/video/7478038212070411542"

	for _, name := range []string{"YouTube", "Generic"} {
		if tiktok.Suitable(url, identity(t, name)) {
			t.Errorf("Suitable under %s identity = true, want false", name)
		}
	}
}
