package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/noodl-labs/kodo-backend/internal/logger"
	"github.com/noodl-labs/kodo-backend/internal/utils"
)

const defaultPinataBaseURL = "https://api.pinata.cloud"

// IPFSService pins certificate artwork and metadata documents so minted
// tokens reference content-addressed, immutable URLs.
type IPFSService interface {
	PinFile(ctx context.Context, filename string, data []byte) (cid string, err error)
	PinJSON(ctx context.Context, name string, doc any) (cid string, err error)
	GatewayURL(cid string) string
}

type pinataService struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	gatewayURL string
	httpClient *http.Client
	log        *logger.Logger
}

type PinataOption func(*pinataService)

func WithPinataBaseURL(u string) PinataOption {
	return func(s *pinataService) { s.baseURL = strings.TrimRight(u, "/") }
}

func NewPinataService(baseLog *logger.Logger, opts ...PinataOption) (IPFSService, error) {
	log := baseLog.With("service", "PinataService")
	apiKey := utils.GetEnv("PINATA_API_KEY", "", log)
	apiSecret := utils.GetEnv("PINATA_SECRET_API_KEY", "", log)
	if apiKey == "" || apiSecret == "" {
		return nil, errors.New("pinata requires PINATA_API_KEY and PINATA_SECRET_API_KEY")
	}
	s := &pinataService{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		baseURL:    defaultPinataBaseURL,
		gatewayURL: strings.TrimRight(utils.GetEnv("IPFS_GATEWAY_URL", "https://gateway.pinata.cloud/ipfs", log), "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		log:        log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type pinataPinResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

func (s *pinataService) PinFile(ctx context.Context, filename string, data []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/pinning/pinFileToIPFS", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return s.doPin(req)
}

func (s *pinataService) PinJSON(ctx context.Context, name string, doc any) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"pinataMetadata": map[string]any{"name": name},
		"pinataContent":  doc,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/pinning/pinJSONToIPFS", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	return s.doPin(req)
}

func (s *pinataService) doPin(req *http.Request) (string, error) {
	req.Header.Set("pinata_api_key", s.apiKey)
	req.Header.Set("pinata_secret_api_key", s.apiSecret)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("pinata status %d: %s", resp.StatusCode, truncateForLog(string(raw), 300))
	}
	var parsed pinataPinResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode pinata response: %w", err)
	}
	if parsed.IpfsHash == "" {
		return "", errors.New("pinata response missing IpfsHash")
	}
	return parsed.IpfsHash, nil
}

func (s *pinataService) GatewayURL(cid string) string {
	return s.gatewayURL + "/" + cid
}
