package soundcloud

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/keshon/jukebox/internal/music/sources"
)

const searchEndpoint = "https://duckduckgo.com/html/"

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var ErrNoTrackMatch = sources.NewResolveError(sources.KindVideoNotFound, fmt.Errorf("no track found for the given query"))

// SoundCloudResolver finds track pages through a site-restricted web search,
// since SoundCloud's own search API needs a client id.
type SoundCloudResolver struct {
	SearchURL string
	Client    *http.Client
}

func NewSoundCloudResolver() *SoundCloudResolver {
	return &SoundCloudResolver{
		SearchURL: searchEndpoint,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (r *SoundCloudResolver) SearchFirstTrackURL(ctx context.Context, query string) (string, error) {
	searchURL := fmt.Sprintf("%s?q=%s", r.SearchURL, url.QueryEscape("site:soundcloud.com "+query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("DuckDuckGo search failed with status code %v", resp.StatusCode)
	}

	return firstTrackURL(resp.Body)
}

// firstTrackURL picks the first result that points at a SoundCloud track page.
func firstTrackURL(body io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", fmt.Errorf("parse search results: %w", err)
	}

	var found string
	doc.Find("a.result__url").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		link := strings.TrimSpace(s.Text())
		if href, ok := s.Attr("href"); ok && strings.Contains(href, "soundcloud.com") {
			if u := unwrapRedirect(href); u != "" {
				link = u
			}
		}
		link = strings.TrimPrefix(strings.TrimPrefix(link, "https://"), "http://")
		if !strings.HasPrefix(link, "soundcloud.com/") {
			return true
		}
		// artist/track, not an artist or sets page
		if parts := strings.Split(strings.Trim(strings.TrimPrefix(link, "soundcloud.com/"), "/"), "/"); len(parts) < 2 || parts[1] == "sets" {
			return true
		}
		found = "https://" + link
		return false
	})

	if found == "" {
		return "", ErrNoTrackMatch
	}
	return found, nil
}

// unwrapRedirect extracts the target of a DuckDuckGo "/l/?uddg=" redirect link.
func unwrapRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if strings.Contains(u.Host, "soundcloud.com") {
		return u.Host + u.Path
	}
	return ""
}
