package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestCertificateFallbackRendersPNG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CERTIFICATE_DIR", dir)
	t.Setenv("CERTIFICATE_FONT", "")

	ai := &fakeAI{imageErr: errors.New("image model down")}
	svc := NewCertificateService(ai, testLogger(t))

	pathID := uuid.New()
	wallet := "0xabcdef1234567890abcdef1234567890abcdef12"
	filename, data, err := svc.EnsureImage(context.Background(), pathID, "🚀 Rockets", wallet)
	if err != nil {
		t.Fatalf("EnsureImage: %v", err)
	}
	if !bytes.HasPrefix(data, pngMagic) {
		t.Fatal("fallback output is not a PNG")
	}
	want := "cert_" + pathID.String() + "_abcdef1234.png"
	if filename != want {
		t.Fatalf("filename = %q, want %q", filename, want)
	}
	if _, err := os.Stat(filepath.Join(dir, filename)); err != nil {
		t.Fatalf("image not cached: %v", err)
	}
}

func TestTruncateTitleRespectsRuneBoundaries(t *testing.T) {
	long := "🚀" + strings.Repeat("é", 50)
	got := truncateTitle(long, 40)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated title is not valid UTF-8: %q", got)
	}
	if n := len([]rune(got)); n != 40 {
		t.Fatalf("truncated rune length = %d, want 40", n)
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("truncated title missing ellipsis: %q", got)
	}

	short := "🚀 Rockets"
	if truncateTitle(short, 40) != short {
		t.Fatal("short title must pass through unchanged")
	}
}

func TestCertificateUsesAIImageWhenAvailable(t *testing.T) {
	t.Setenv("CERTIFICATE_DIR", t.TempDir())
	ai := &fakeAI{imageData: []byte("ai-image-bytes")}
	svc := NewCertificateService(ai, testLogger(t))

	_, data, err := svc.EnsureImage(context.Background(), uuid.New(), "🚀 Rockets", "0xabcdef1234567890abcdef1234567890abcdef12")
	if err != nil {
		t.Fatalf("EnsureImage: %v", err)
	}
	if !bytes.Equal(data, []byte("ai-image-bytes")) {
		t.Fatal("AI image not used")
	}
}

func TestCertificateCacheSkipsRegeneration(t *testing.T) {
	t.Setenv("CERTIFICATE_DIR", t.TempDir())
	ai := &fakeAI{imageData: []byte("ai-image-bytes")}
	svc := NewCertificateService(ai, testLogger(t))
	pathID := uuid.New()
	wallet := "0xabcdef1234567890abcdef1234567890abcdef12"

	if _, _, err := svc.EnsureImage(context.Background(), pathID, "🚀 Rockets", wallet); err != nil {
		t.Fatalf("first EnsureImage: %v", err)
	}
	// Break the model; the cached file must satisfy the second call.
	ai.imageErr = errors.New("down")
	ai.imageData = nil

	_, data, err := svc.EnsureImage(context.Background(), pathID, "🚀 Rockets", wallet)
	if err != nil {
		t.Fatalf("second EnsureImage: %v", err)
	}
	if !bytes.Equal(data, []byte("ai-image-bytes")) {
		t.Fatal("cache not used on second call")
	}
}
