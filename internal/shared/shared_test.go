package shared

import "testing"

func TestEpisodeKey(t *testing.T) {
	tc := []struct {
		name    string
		podcast string
		episode string
		want    string
	}{
		{
			name:    "basic key",
			podcast: "Some Podcast",
			episode: "Episode 12",
			want:    "Some Podcast - Episode 12",
		},
		{
			name:    "surrounding whitespace trimmed",
			podcast: "  Some Podcast ",
			episode: " Episode 12  ",
			want:    "Some Podcast - Episode 12",
		},
		{
			name:    "empty podcast",
			podcast: "",
			episode: "Episode 12",
			want:    " - Episode 12",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := EpisodeKey(tt.podcast, tt.episode)
			if got != tt.want {
				t.Errorf("EpisodeKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tc := []struct {
		name    string
		seconds int
		want    string
	}{
		{name: "zero", seconds: 0, want: "0:00"},
		{name: "under a minute", seconds: 42, want: "0:42"},
		{name: "minutes", seconds: 192, want: "3:12"},
		{name: "hours", seconds: 3723, want: "1:02:03"},
		{name: "negative clamps to zero", seconds: -5, want: "0:00"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatDuration(tt.seconds)
			if got != tt.want {
				t.Errorf("FormatDuration(%d) = %v, want %v", tt.seconds, got, tt.want)
			}
		})
	}
}

func TestGenerateID(t *testing.T) {
	a := GenerateID()
	b := GenerateID()

	if a == "" || b == "" {
		t.Fatal("expected non-empty ids")
	}
	if a == b {
		t.Errorf("expected distinct ids, got %s twice", a)
	}
}

func TestOpenBrowserUnsupportedPlatform(t *testing.T) {
	original := getRuntime
	getRuntime = func() string { return "plan9" }
	t.Cleanup(func() { getRuntime = original })

	if err := OpenBrowser("https://example.com"); err == nil {
		t.Error("expected error for unsupported platform")
	}
}
