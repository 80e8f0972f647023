package dataset_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/absmach/cohort/pkg/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		desc string
		raw  map[string]any
		want []dataset.Post
	}{
		{
			desc: "facebook fields",
			raw:  map[string]any{"post_id": "p1", "message": "hello", "full_picture": "https://img/1.png"},
			want: []dataset.Post{{PostID: "p1", Text: "hello", ImageURL: "https://img/1.png", Platform: "facebook"}},
		},
		{
			desc: "generic fields and defaults",
			raw:  map[string]any{"text": "hi", "image_url": "http://img/2.png", "platform": "instagram"},
			want: []dataset.Post{{PostID: "unknown", Text: "hi", ImageURL: "http://img/2.png", Platform: "instagram"}},
		},
		{
			desc: "message wins over text",
			raw:  map[string]any{"message": "first", "text": "second", "image_url": "http://img"},
			want: []dataset.Post{{PostID: "unknown", Text: "first", ImageURL: "http://img", Platform: "facebook"}},
		},
		{
			desc: "missing image is dropped",
			raw:  map[string]any{"message": "no picture"},
			want: []dataset.Post{},
		},
		{
			desc: "empty text is dropped",
			raw:  map[string]any{"message": "", "text": "ignored", "full_picture": "http://img"},
			want: []dataset.Post{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.want, dataset.Normalize([]map[string]any{tc.raw}))
		})
	}
}

func TestClean(t *testing.T) {
	t.Parallel()

	cases := []struct {
		desc string
		post dataset.Post
		want []dataset.Sample
	}{
		{
			desc: "strips artifacts",
			post: dataset.Post{Text: "  Great   day at the beach https://t.co/x #summer @friend  ", ImageURL: "https://img"},
			want: []dataset.Sample{{Image: "https://img", Text: "Great day at the beach"}},
		},
		{
			desc: "too short",
			post: dataset.Post{Text: "short", ImageURL: "https://img"},
			want: []dataset.Sample{},
		},
		{
			desc: "no alphanumerics",
			post: dataset.Post{Text: "!!!!!!!!!!!!", ImageURL: "https://img"},
			want: []dataset.Sample{},
		},
		{
			desc: "empty after cleaning",
			post: dataset.Post{Text: "#onlyhashtags @someone", ImageURL: "https://img"},
			want: []dataset.Sample{},
		},
		{
			desc: "non http image",
			post: dataset.Post{Text: "a perfectly fine caption", ImageURL: "ftp://img"},
			want: []dataset.Sample{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.want, dataset.Clean([]dataset.Post{tc.post}))
		})
	}
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "raw.json")
	posts := filepath.Join(dir, "out", "posts.json")
	clean := filepath.Join(dir, "out", "clean.json")

	_, err := dataset.NormalizeFile(raw, posts)
	assert.ErrorIs(t, err, dataset.ErrMissingInput)

	require.NoError(t, os.WriteFile(raw, []byte(`[
		{"post_id": "1", "message": "Sunset over the hills #nofilter", "full_picture": "https://img/1"},
		{"post_id": "2", "message": "skip me"}
	]`), 0o600))

	n, err := dataset.NormalizeFile(raw, posts)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = dataset.CleanFile(posts, clean)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, err := os.ReadFile(clean)
	require.NoError(t, err)
	var samples []dataset.Sample
	require.NoError(t, json.Unmarshal(data, &samples))
	assert.Equal(t, []dataset.Sample{{Image: "https://img/1", Text: "Sunset over the hills"}}, samples)
}
