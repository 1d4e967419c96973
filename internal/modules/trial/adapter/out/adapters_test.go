package out

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"evseg/internal/modules/trial/domain"
	"evseg/internal/modules/trial/service"
)

func TestRandomizerExGaussian(t *testing.T) {
	t.Parallel()

	r := NewRandomizer(42)
	const n = 5000
	sum := 0.0
	for i := 0; i < n; i++ {
		v := r.SampleExGaussian(domain.SimulatedRTMean, domain.SimulatedRTSD, domain.SimulatedRTRate, true)
		if v <= 0 {
			t.Fatalf("positive sample expected, got %v", v)
		}
		sum += v
	}
	// mean of an ex-Gaussian is mu + 1/lambda
	if mean := sum / n; math.Abs(mean-650) > 25 {
		t.Fatalf("sample mean %v too far from 650", mean)
	}
}

func TestRandomizerValidKey(t *testing.T) {
	t.Parallel()

	r := NewRandomizer(3)
	set := domain.KeySet("f", "j")
	for i := 0; i < 50; i++ {
		key, ok := r.ValidKey(set)
		if !ok || !set.Allows(key) {
			t.Fatalf("key %q outside the allowed set", key)
		}
	}
	if key, ok := r.ValidKey(domain.AllKeys()); !ok || !slices.Contains(domain.SimulatedKeys, key) {
		t.Fatalf("unexpected ALL_KEYS draw %q", key)
	}
	if _, ok := r.ValidKey(domain.NoKeys()); ok {
		t.Fatal("NO_KEYS has no valid key")
	}
}

func TestHTMLRendererStructure(t *testing.T) {
	t.Parallel()

	cfg := domain.DefaultTrialConfig()
	cfg.Stimulus = []string{`clips/a.mp4"><script>alert(1)</script>`, "clips/b.webm"}
	cfg.Width = 320
	layout, _ := service.BuildLayout(cfg, nil)
	layout.Find(domain.PromptID).Append(domain.MarkerElement(0, 160, 30000))

	markup, err := NewHTMLRenderer().Render(layout)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if doc.Find("script").Length() != 0 {
		t.Fatal("stimulus text must be escaped")
	}
	if doc.Find("video").Length() != 2 {
		t.Fatalf("expected two videos in %s", markup)
	}
	if w, _ := doc.Find("#video_0").Attr("width"); w != "320" {
		t.Fatalf("unexpected width %q", w)
	}
	if typ, _ := doc.Find("#video_1 source").Attr("type"); typ != "video/webm" {
		t.Fatalf("unexpected source type %q", typ)
	}
	style, _ := doc.Find("#line").Attr("style")
	if !strings.Contains(style, "width: 320px") || !strings.Contains(style, "rotate(0deg)") {
		t.Fatalf("unexpected baseline style %q", style)
	}
	if x, _ := doc.Find("#prompt .relNode").Attr("data-x"); x != "160" {
		t.Fatalf("unexpected marker x %q", x)
	}
	if cursor, _ := doc.Find("#trial-root").Attr("style"); cursor != "cursor: none" {
		t.Fatalf("unexpected root style %q", cursor)
	}
}

func TestFFProbeParsesDuration(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in needs a POSIX shell")
	}

	dir := t.TempDir()
	script := filepath.Join(dir, "ffprobe")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho 12.480000\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	seconds, err := NewFFProbe(script).Duration(context.Background(), "clip.mp4")
	if err != nil {
		t.Fatalf("duration: %v", err)
	}
	if seconds != 12.48 {
		t.Fatalf("expected 12.48, got %v", seconds)
	}

	bad := filepath.Join(dir, "broken")
	if err := os.WriteFile(bad, []byte("#!/bin/sh\necho N/A\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	if _, err := NewFFProbe(bad).Duration(context.Background(), "clip.mp4"); err == nil {
		t.Fatal("expected parse error")
	}
}
