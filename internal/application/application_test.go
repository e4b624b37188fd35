package application

import (
	"context"
	"testing"

	"github.com/JonMunkholm/importexport/internal/config"
	"github.com/JonMunkholm/importexport/internal/notify"
	"github.com/JonMunkholm/importexport/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStorage_Local(t *testing.T) {
	dir := t.TempDir()
	files, media, err := NewStorage(context.Background(), config.StorageConfig{
		Backend:  "local",
		LocalDir: dir,
		BaseURL:  "/media",
	})
	require.NoError(t, err)
	assert.IsType(t, &storage.Local{}, files)
	assert.NotNil(t, media)
}

func TestNewStorage_Unknown(t *testing.T) {
	_, _, err := NewStorage(context.Background(), config.StorageConfig{Backend: "ftp"})
	assert.Error(t, err)
}

func TestNewMailer(t *testing.T) {
	m, err := NewMailer(config.MailConfig{})
	require.NoError(t, err)
	assert.IsType(t, &notify.Log{}, m)

	m, err = NewMailer(config.MailConfig{SMTPHost: "mail.example.com", SMTPPort: 587})
	require.NoError(t, err)
	assert.IsType(t, &notify.SMTP{}, m)
}
