package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResourceType(t *testing.T) {
	assert.Equal(t, "image", resourceType("image/png"))
	assert.Equal(t, "video", resourceType("video/mp4"))
	assert.Equal(t, "video", resourceType("audio/mpeg"))
	assert.Equal(t, "raw", resourceType("application/pdf"))
	assert.Equal(t, "raw", resourceType(""))
}

func TestPublicID(t *testing.T) {
	id := publicID("my invoice (1).pdf")
	assert.True(t, strings.HasSuffix(id, "_my_invoice__1_"), id)
	assert.NotEqual(t, publicID("a.png"), publicID("a.png"))
	assert.NotEmpty(t, publicID(""))
}
