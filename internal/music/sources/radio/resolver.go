package radio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

var validContentTypes = []string{
	"audio/", // General catch
	"video/",
	"application/vnd.apple.mpegurl",
	"application/x-mpegurl",
	"application/ogg",
	"application/x-scpls",
	"application/xspf+xml",
	"application/octet-stream", // risky but often used for streams
}

// RadioResolver validates streaming radio links by checking headers and heuristics.
type RadioResolver struct {
	Client *http.Client
}

func NewRadioResolver() *RadioResolver {
	return &RadioResolver{
		Client: &http.Client{
			Timeout: 5 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
	}
}

// IsValidURL reports whether rawURL serves audio, judged by Content-Type or
// a playlist file extension after redirects. It also returns the content type.
func (r *RadioResolver) IsValidURL(ctx context.Context, rawURL string) (bool, string, error) {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return false, "", fmt.Errorf("not an http(s) URL: %q", rawURL)
	}

	contentType, finalURL, err := r.fetchContentType(ctx, rawURL)
	if err != nil {
		return false, "", fmt.Errorf("failed to fetch content type: %w", err)
	}

	if r.isAllowedType(contentType) || r.isLikelyPlaylist(finalURL) {
		return true, contentType, nil
	}

	return false, contentType, fmt.Errorf("invalid stream content-type: %q, url: %s", contentType, finalURL)
}

func (r *RadioResolver) fetchContentType(ctx context.Context, rawURL string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("request creation failed: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := r.Client.Do(req)
	if err != nil || resp.StatusCode >= 400 {
		if resp != nil {
			resp.Body.Close()
		}
		// Some stream servers reject HEAD; a ranged GET reads only the headers we need.
		req.Method = http.MethodGet
		req.Header.Set("Range", "bytes=0-0")
		resp, err = r.Client.Do(req)
		if err != nil {
			return "", "", fmt.Errorf("GET fallback failed: %w", err)
		}
		defer resp.Body.Close()
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
	} else {
		defer resp.Body.Close()
	}

	if resp.StatusCode >= 400 {
		return "", "", fmt.Errorf("stream returned status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	finalURL := resp.Request.URL.String() // actual URL after redirects
	return contentType, finalURL, nil
}

func (r *RadioResolver) isAllowedType(contentType string) bool {
	// Normalize and strip params like "audio/mpeg; charset=utf-8"
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	for _, allowed := range validContentTypes {
		if strings.HasPrefix(contentType, allowed) {
			return true
		}
	}
	return false
}

func (r *RadioResolver) isLikelyPlaylist(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	ext := strings.ToLower(path.Ext(u.Path))
	switch ext {
	case ".m3u", ".m3u8", ".pls", ".xspf", ".asx":
		return true
	}
	return false
}
