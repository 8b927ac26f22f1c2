package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRepoURL(t *testing.T) {
	testCases := []struct {
		name      string
		url       string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{
			name:      "valid https URL",
			url:       "https://github.com/golang/go",
			wantOwner: "golang",
			wantRepo:  "go",
		},
		{
			name:      "valid http URL",
			url:       "http://github.com/torvalds/linux",
			wantOwner: "torvalds",
			wantRepo:  "linux",
		},
		{
			name:      "trailing slash",
			url:       "https://github.com/golang/go/",
			wantOwner: "golang",
			wantRepo:  "go",
		},
		{
			name:    "wrong host",
			url:     "https://gitlab.com/golang/go",
			wantErr: true,
		},
		{
			name:    "missing repo segment",
			url:     "https://github.com/golang",
			wantErr: true,
		},
		{
			name:    "subpath",
			url:     "https://github.com/golang/go/tree/master/src",
			wantErr: true,
		},
		{
			name:    "no scheme",
			url:     "github.com/golang/go",
			wantErr: true,
		},
		{
			name:    "empty",
			url:     "",
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			owner, repo, err := ParseRepoURL(tc.url)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.wantOwner, owner)
			assert.Equal(t, tc.wantRepo, repo)
		})
	}
}

func TestIsValidRepoURL(t *testing.T) {
	assert.True(t, IsValidRepoURL("https://github.com/golang/go"))
	assert.False(t, IsValidRepoURL("nan"))
	assert.False(t, IsValidRepoURL("https://example.com/golang/go"))
}

func TestCleanBlogURL(t *testing.T) {
	t.Run("adds scheme when missing", func(t *testing.T) {
		assert.Equal(t, "https://example.dev", CleanBlogURL("example.dev"))
	})

	t.Run("keeps existing scheme", func(t *testing.T) {
		assert.Equal(t, "http://example.dev", CleanBlogURL("http://example.dev"))
		assert.Equal(t, "https://example.dev", CleanBlogURL("https://example.dev"))
	})

	t.Run("empty stays empty", func(t *testing.T) {
		assert.Equal(t, "", CleanBlogURL(""))
	})
}
