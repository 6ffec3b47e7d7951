package subjects

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestLoadIconDecodesAndCaches(t *testing.T) {
	data := pngBytes(t)
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write(data)
	}))
	defer server.Close()

	loader := NewIconLoader(server.Client(), time.Minute, zerolog.Nop())

	icon, err := loader.LoadIcon(context.Background(), server.URL+"/geo.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", icon.ContentType)
	assert.Equal(t, 3, icon.Width)
	assert.Equal(t, 2, icon.Height)

	_, err = loader.LoadIcon(context.Background(), server.URL+"/geo.png")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestLoadIconRejectsNonImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not an icon</html>"))
	}))
	defer server.Close()

	loader := NewIconLoader(server.Client(), time.Minute, zerolog.Nop())

	_, err := loader.LoadIcon(context.Background(), server.URL+"/geo.png")
	require.ErrorIs(t, err, ErrNoIcon)
}

func TestLoadIconMalformedURL(t *testing.T) {
	loader := NewIconLoader(nil, 0, zerolog.Nop())

	_, err := loader.LoadIcon(context.Background(), "not a url")
	require.ErrorIs(t, err, ErrNoIcon)
}
