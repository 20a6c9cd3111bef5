package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/google/uuid"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/noodl-labs/kodo-backend/internal/logger"
	"github.com/noodl-labs/kodo-backend/internal/utils"
)

const (
	certSize        = 512
	certBackground  = "#1a1a1a"
	certAccent      = "#4ECDC4"
	certTextPrimary = "#FFFFFF"
	certTextMuted   = "#AAAAAA"
)

// CertificateService produces the artwork for a minted certificate. It tries
// the image model first and falls back to a locally rendered card, caching
// the result on disk so re-mint attempts never regenerate art.
type CertificateService interface {
	EnsureImage(ctx context.Context, pathID uuid.UUID, pathTitle string, recipientWallet string) (filename string, data []byte, err error)
}

type certificateService struct {
	ai       AIClient
	cacheDir string
	fontPath string
	log      *logger.Logger
}

func NewCertificateService(ai AIClient, baseLog *logger.Logger) CertificateService {
	log := baseLog.With("service", "CertificateService")
	return &certificateService{
		ai:       ai,
		cacheDir: utils.GetEnv("CERTIFICATE_DIR", "certificates", log),
		fontPath: utils.GetEnv("CERTIFICATE_FONT", "", log),
		log:      log,
	}
}

func (s *certificateService) EnsureImage(ctx context.Context, pathID uuid.UUID, pathTitle string, recipientWallet string) (string, []byte, error) {
	filename := fmt.Sprintf("cert_%s_%s.png", pathID.String(), utils.TruncateWallet(recipientWallet, 10))
	cached := filepath.Join(s.cacheDir, filename)
	if data, err := os.ReadFile(cached); err == nil {
		s.log.Debug("Reusing cached certificate image", "file", filename)
		return filename, data, nil
	}

	data, err := s.generate(ctx, pathID, pathTitle, recipientWallet)
	if err != nil {
		return "", nil, err
	}
	if err := os.MkdirAll(s.cacheDir, 0o755); err == nil {
		if writeErr := os.WriteFile(cached, data, 0o644); writeErr != nil {
			s.log.Warn("Failed to cache certificate image", "file", filename, "error", writeErr)
		}
	}
	return filename, data, nil
}

func (s *certificateService) generate(ctx context.Context, pathID uuid.UUID, pathTitle string, recipientWallet string) ([]byte, error) {
	if s.ai != nil {
		data, err := s.ai.GenerateImage(ctx, certificateArtPrompt(pathTitle))
		if err == nil && len(data) > 0 {
			return data, nil
		}
		s.log.Warn("AI certificate art failed, rendering fallback", "pathID", pathID, "error", err)
	}
	return s.renderFallback(pathTitle, recipientWallet)
}

// renderFallback draws a simple framed card. It must never fail for font
// reasons, so a missing or broken TTF degrades to the built-in bitmap face.
func (s *certificateService) renderFallback(pathTitle string, recipientWallet string) ([]byte, error) {
	dc := gg.NewContext(certSize, certSize)

	dc.SetHexColor(certBackground)
	dc.Clear()

	dc.SetHexColor(certAccent)
	dc.SetLineWidth(6)
	dc.DrawRectangle(20, 20, certSize-40, certSize-40)
	dc.Stroke()

	dc.SetFontFace(s.loadFace(28))
	dc.SetHexColor(certAccent)
	dc.DrawStringAnchored("KODO Certificate", certSize/2, 150, 0.5, 0.5)

	dc.SetFontFace(s.loadFace(20))
	dc.SetHexColor(certTextPrimary)
	dc.DrawStringAnchored(truncateTitle(pathTitle, 40), certSize/2, certSize/2, 0.5, 0.5)

	dc.SetFontFace(s.loadFace(14))
	dc.SetHexColor(certTextMuted)
	dc.DrawStringAnchored("Awarded to", certSize/2, certSize/2+60, 0.5, 0.5)
	dc.DrawStringAnchored(recipientWallet, certSize/2, certSize/2+85, 0.5, 0.5)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// truncateTitle shortens on rune boundaries; titles are emoji-prefixed, so
// byte slicing could cut a rune in half.
func truncateTitle(title string, max int) string {
	r := []rune(title)
	if len(r) <= max {
		return title
	}
	return string(r[:max-3]) + "..."
}

func (s *certificateService) loadFace(points float64) font.Face {
	if s.fontPath != "" {
		if raw, err := os.ReadFile(s.fontPath); err == nil {
			if parsed, err := truetype.Parse(raw); err == nil {
				return truetype.NewFace(parsed, &truetype.Options{Size: points})
			}
		}
		s.log.Debug("Certificate font unavailable, using bitmap face", "font", s.fontPath)
	}
	return basicfont.Face7x13
}
