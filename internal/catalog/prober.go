package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// MediaProber はメディアURLが取得可能かを確認する。
type MediaProber interface {
	Probe(ctx context.Context, rawURL string) error
}

// HTTPMediaProber はHEADリクエストでメディアURLの到達性を確認する。
// clientにはSSRF防止付きのクライアントを渡す。
type HTTPMediaProber struct {
	client *http.Client
}

// NewHTTPMediaProber はHTTPMediaProberを生成する。
func NewHTTPMediaProber(client *http.Client) *HTTPMediaProber {
	return &HTTPMediaProber{client: client}
}

// Probe はHEADリクエストを送り、4xx/5xxの場合はエラーを返す。
func (p *HTTPMediaProber) Probe(ctx context.Context, rawURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "fitadmin-media-probe/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
