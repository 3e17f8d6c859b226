package youtube

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var youtubeURLPattern = regexp.MustCompile(`(?:https?:\/\/)?(?:www\.|music\.|m\.)?(youtube\.com|youtu\.be)\/\S+`)

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func isYouTubeURL(input string) bool {
	return youtubeURLPattern.MatchString(input)
}

// CleanVideoURL rebuilds a video URL with only its video id, dropping
// playlist, index and timestamp parameters.
func CleanVideoURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	host := u.Hostname()

	switch host {
	case "youtu.be":
		// Short URL: https://youtu.be/<id>?t=123
		vid := strings.Trim(u.Path, "/")
		if vid == "" {
			return raw
		}
		return fmt.Sprintf("https://youtu.be/%s", vid)

	case "www.youtube.com", "youtube.com", "m.youtube.com", "music.youtube.com":
		// Standard URL: https://www.youtube.com/watch?v=<id>&other=params
		if u.Path == "/watch" {
			if vid := u.Query().Get("v"); vid != "" {
				return fmt.Sprintf("https://%s/watch?v=%s", host, vid)
			}
		}
		return raw

	default:
		return raw
	}
}

// VideoID returns the video id of a watch or short URL, or "" when there is none.
func VideoID(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	switch u.Hostname() {
	case "youtu.be":
		return strings.Trim(u.Path, "/")
	case "www.youtube.com", "youtube.com", "m.youtube.com", "music.youtube.com":
		if u.Path == "/watch" {
			return u.Query().Get("v")
		}
		if id, ok := strings.CutPrefix(u.Path, "/shorts/"); ok {
			return strings.Trim(id, "/")
		}
	}
	return ""
}

// ThumbnailURL returns the medium quality thumbnail for a video id.
func ThumbnailURL(id string) string {
	if id == "" {
		return ""
	}
	return fmt.Sprintf("https://i.ytimg.com/vi/%s/mqdefault.jpg", id)
}
