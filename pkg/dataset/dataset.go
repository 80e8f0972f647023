// Package dataset turns raw social media exports into training samples.
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	DefaultPostID   = "unknown"
	DefaultPlatform = "facebook"
	minTextLength   = 10
)

var ErrMissingInput = errors.New("raw data not found")

var (
	urlPattern     = regexp.MustCompile(`http\S+`)
	hashtagPattern = regexp.MustCompile(`#\S+`)
	mentionPattern = regexp.MustCompile(`@\w+`)
	spacePattern   = regexp.MustCompile(`\s+`)
	alnumPattern   = regexp.MustCompile(`[a-zA-Z0-9]`)
)

// Post is a normalized record. Raw exports use inconsistent field names.
type Post struct {
	PostID   string `json:"post_id"`
	Text     string `json:"text"`
	ImageURL string `json:"image_url"`
	Platform string `json:"platform"`
}

// Sample is a cleaned image and caption pair ready for training.
type Sample struct {
	Image string `json:"image"`
	Text  string `json:"text"`
}

// Normalize maps raw records onto Post. Records without text or an image
// are dropped.
func Normalize(raw []map[string]any) []Post {
	posts := make([]Post, 0, len(raw))
	for _, item := range raw {
		p := Post{
			PostID:   firstString(item, DefaultPostID, "post_id"),
			Text:     firstString(item, "", "message", "text"),
			ImageURL: firstString(item, "", "full_picture", "image_url"),
			Platform: firstString(item, DefaultPlatform, "platform"),
		}
		if p.Text == "" || p.ImageURL == "" {
			continue
		}
		posts = append(posts, p)
	}

	return posts
}

// Clean strips links, hashtags and mentions from post text and keeps only
// posts with meaningful text and an http(s) image.
func Clean(posts []Post) []Sample {
	samples := make([]Sample, 0, len(posts))
	for _, p := range posts {
		text := strings.TrimSpace(p.Text)
		if len(text) < minTextLength || !alnumPattern.MatchString(text) {
			continue
		}
		text = urlPattern.ReplaceAllString(text, "")
		text = hashtagPattern.ReplaceAllString(text, "")
		text = mentionPattern.ReplaceAllString(text, "")
		text = strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))
		if text == "" {
			continue
		}
		if !strings.HasPrefix(p.ImageURL, "http://") && !strings.HasPrefix(p.ImageURL, "https://") {
			continue
		}
		samples = append(samples, Sample{Image: p.ImageURL, Text: text})
	}

	return samples
}

// NormalizeFile reads a raw JSON export and writes the normalized posts.
func NormalizeFile(in, out string) (int, error) {
	var raw []map[string]any
	if err := readJSON(in, &raw); err != nil {
		return 0, err
	}
	posts := Normalize(raw)

	return len(posts), writeJSON(out, posts)
}

// CleanFile reads normalized posts and writes the cleaned samples.
func CleanFile(in, out string) (int, error) {
	var posts []Post
	if err := readJSON(in, &posts); err != nil {
		return 0, err
	}
	samples := Clean(posts)

	return len(samples), writeJSON(out, samples)
}

// firstString returns the first key holding a non-empty string. A key that
// is present but empty still wins over later keys, matching how exports
// mark deleted content.
func firstString(item map[string]any, def string, keys ...string) string {
	for _, k := range keys {
		v, ok := item[k]
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return fmt.Sprint(v)
		}

		return s
	}

	return def
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrMissingInput, path)
		}

		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}

	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}
