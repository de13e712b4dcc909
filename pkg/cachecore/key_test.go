package cachecore

import "testing"

func TestKeyGeneratorNormalMode(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		uploadID int64
		want     Key
	}{
		{name: "plain url", url: "https://example.com/a", uploadID: 0, want: "https://example.com/a"},
		{name: "with upload id", url: "https://example.com/a", uploadID: 42, want: "42/https://example.com/a"},
	}

	g := NewKeyGenerator(Normal)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.Generate("GET", tt.url, tt.uploadID)
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if got != tt.want {
				t.Errorf("Generate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKeyGeneratorRecordModeIncrementsGeneration(t *testing.T) {
	g := NewKeyGenerator(Record)

	first, err := g.Generate("GET", "https://example.com/a", 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	second, err := g.Generate("GET", "https://example.com/a", 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct keys for repeated fetches, got %q twice", first)
	}
	if first != "0GEThttps://example.com/a" {
		t.Errorf("first = %q, want generation 0 prefix", first)
	}
	if second != "1GEThttps://example.com/a" {
		t.Errorf("second = %q, want generation 1 prefix", second)
	}
}

func TestKeyGeneratorRecordModeIsPerURL(t *testing.T) {
	g := NewKeyGenerator(Playback)

	a1, _ := g.Generate("GET", "https://example.com/a", 0)
	b1, _ := g.Generate("GET", "https://example.com/b", 0)
	a2, _ := g.Generate("GET", "https://example.com/a", 0)

	if a1 == a2 {
		t.Fatalf("expected the second fetch of a to bump its own generation, got %q both times", a1)
	}
	if b1 != "0GEThttps://example.com/b" {
		t.Errorf("b1 = %q, want a fresh generation-0 key unaffected by a's counter", b1)
	}
}

func TestKeyGeneratorDisableModeErrors(t *testing.T) {
	g := NewKeyGenerator(Disable)
	if _, err := g.Generate("GET", "https://example.com/a", 0); err == nil {
		t.Fatal("expected an error in Disable mode, got nil")
	}
}

func TestModeString(t *testing.T) {
	tests := map[Mode]string{
		Normal:   "normal",
		Record:   "record",
		Playback: "playback",
		Disable:  "disable",
		Mode(99): "unknown",
	}
	for mode, want := range tests {
		if got := mode.String(); got != want {
			t.Errorf("Mode(%d).String() = %q, want %q", mode, got, want)
		}
	}
}
