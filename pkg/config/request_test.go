package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igposter/pkg/errors"
)

func writeRequestFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "request.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadRequestValid(t *testing.T) {
	path := writeRequestFile(t, `{
		"credentials": {"username": "poster", "password": "hunter2"},
		"caption": "good morning",
		"image_path": "./photo.jpg"
	}`)

	req, err := LoadRequest(path)
	require.NoError(t, err)
	assert.Equal(t, "poster", req.Credentials.Username)
	assert.Equal(t, "good morning", req.Caption)
	assert.Equal(t, DefaultEndpoint, req.TargetEndpoint)
	assert.False(t, req.ImageIsRemote())
	assert.False(t, req.HasSession())
}

func TestLoadRequestSessionCredentials(t *testing.T) {
	path := writeRequestFile(t, `{
		"credentials": {"username": "poster", "session_id": "12345%3Aabcdef", "csrf_token": "tok"},
		"target_endpoint": "https://www.instagram.com",
		"caption": "",
		"caption_theme": "gratitude",
		"image_path": "https://example.com/photo.jpg"
	}`)

	req, err := LoadRequest(path)
	require.NoError(t, err)
	assert.True(t, req.HasSession())
	assert.True(t, req.ImageIsRemote())
	assert.Equal(t, "gratitude", req.CaptionTheme)
}

func TestLoadRequestMissingFile(t *testing.T) {
	_, err := LoadRequest(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Equal(t, errors.CategoryConfig, errors.CategoryOf(err))
}

func TestLoadRequestMalformedJSON(t *testing.T) {
	path := writeRequestFile(t, `{"credentials": `)
	_, err := LoadRequest(path)
	require.Error(t, err)
	assert.Equal(t, errors.CategoryConfig, errors.CategoryOf(err))
}

func TestLoadRequestMissingFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{
			name:    "no username",
			content: `{"credentials": {"password": "x"}, "image_path": "a.jpg"}`,
			wantMsg: "credentials.username",
		},
		{
			name:    "no password or session",
			content: `{"credentials": {"username": "poster"}, "image_path": "a.jpg"}`,
			wantMsg: "credentials.password or credentials.session_id",
		},
		{
			name:    "no image path",
			content: `{"credentials": {"username": "poster", "password": "x"}}`,
			wantMsg: "image_path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeRequestFile(t, tt.content)
			_, err := LoadRequest(path)
			require.Error(t, err)
			assert.Equal(t, errors.CategoryConfig, errors.CategoryOf(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoadRequestBadEndpoint(t *testing.T) {
	tests := []string{
		`{"credentials": {"username": "u", "password": "p"}, "image_path": "a.jpg", "target_endpoint": "http://insecure.example.com"}`,
		`{"credentials": {"username": "u", "password": "p"}, "image_path": "a.jpg", "target_endpoint": "not a url"}`,
	}

	for _, content := range tests {
		path := writeRequestFile(t, content)
		_, err := LoadRequest(path)
		require.Error(t, err)
		assert.Equal(t, errors.CategoryConfig, errors.CategoryOf(err))
	}
}
