package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "report_final.pdf", SanitizeFilename("report final.pdf"))
	assert.Equal(t, "passwd", SanitizeFilename("../../etc/passwd"))
	assert.Equal(t, "evil.exe", SanitizeFilename(`C:\Users\me\evil.exe`))
	assert.Equal(t, "htaccess", SanitizeFilename(".htaccess"))
	assert.Equal(t, "file", SanitizeFilename(""))
	assert.Equal(t, "caf_.png", SanitizeFilename("café.png"))
}

func TestObjectAndPreviewKeys(t *testing.T) {
	key := ObjectKey("64b7f0c2a1b2c3d4e5f60718", "logo.png")
	assert.True(t, strings.HasPrefix(key, "attachments/64b7f0c2a1b2c3d4e5f60718/"))
	assert.True(t, strings.HasSuffix(key, "_logo.png"))
	assert.NotEqual(t, key, ObjectKey("64b7f0c2a1b2c3d4e5f60718", "logo.png"))

	assert.Equal(t, "previews/64b7f0c2a1b2c3d4e5f60718/x_logo.png", PreviewKey("attachments/64b7f0c2a1b2c3d4e5f60718/x_logo.png"))
}
