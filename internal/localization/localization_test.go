package localization_test

import (
	"testing"
	"testing/fstest"

	"complaintdesk/backend/internal/localization"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefault_LoadsBundledLanguages(t *testing.T) {
	l, err := localization.NewDefault()
	require.NoError(t, err)

	assert.True(t, l.Has("en"))
	assert.True(t, l.Has("uk"))
	assert.Equal(t, "Tags: noise", l.Format("en", "tags", "noise"))
	assert.Equal(t, "Теги: noise", l.Format("uk", "tags", "noise"))
}

func TestGetString_Fallbacks(t *testing.T) {
	fsys := fstest.MapFS{
		"en.json":    {Data: []byte(`{"greeting": "Hello", "only_en": "English"}`)},
		"uk.json":    {Data: []byte(`{"greeting": "Привіт"}`)},
		"README.txt": {Data: []byte("ignored")},
	}
	l, err := localization.NewLocalizer(fsys)
	require.NoError(t, err)

	assert.Equal(t, "Привіт", l.GetString("uk", "greeting"))
	assert.Equal(t, "English", l.GetString("uk", "only_en"))
	assert.Equal(t, "Hello", l.GetString("de", "greeting"))
	assert.Equal(t, "missing_key", l.GetString("en", "missing_key"))
	assert.False(t, l.Has("README"))
}

func TestNewLocalizer_RejectsBadJSON(t *testing.T) {
	_, err := localization.NewLocalizer(fstest.MapFS{"en.json": {Data: []byte("{")}})
	assert.Error(t, err)
}
