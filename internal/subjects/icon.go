package subjects

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"
)

const (
	maxIconBytes   = 4 << 20
	defaultIconTTL = 30 * time.Minute
	maxCachedIcons = 256
)

// ErrNoIcon is returned when an icon cannot be retrieved or is not an image.
var ErrNoIcon = errors.New("icon unavailable")

// Icon is a decoded-and-verified subject image.
type Icon struct {
	ContentType string
	Width       int
	Height      int
	Data        []byte
}

// IconLoader fetches subject icons by URL and keeps them for a while.
type IconLoader struct {
	client *http.Client
	cache  *ttlcache.Cache[string, Icon]
	logger zerolog.Logger
}

func NewIconLoader(client *http.Client, ttl time.Duration, logger zerolog.Logger) *IconLoader {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	if ttl <= 0 {
		ttl = defaultIconTTL
	}
	return &IconLoader{
		client: client,
		cache: ttlcache.New[string, Icon](
			ttlcache.WithTTL[string, Icon](ttl),
			ttlcache.WithCapacity[string, Icon](maxCachedIcons),
		),
		logger: logger,
	}
}

func (l *IconLoader) LoadIcon(ctx context.Context, iconURL string) (Icon, error) {
	if item := l.cache.Get(iconURL); item != nil {
		return item.Value(), nil
	}

	icon, err := l.download(ctx, iconURL)
	if err != nil {
		l.logger.Warn().Err(err).Str("icon", iconURL).Msg("icon load failed")
		return Icon{}, fmt.Errorf("%w: %v", ErrNoIcon, err)
	}

	l.cache.Set(iconURL, icon, ttlcache.DefaultTTL)
	return icon, nil
}

func (l *IconLoader) download(ctx context.Context, iconURL string) (Icon, error) {
	if err := checkEndpoint(iconURL); err != nil {
		return Icon{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, iconURL, nil)
	if err != nil {
		return Icon{}, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return Icon{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Icon{}, fmt.Errorf("status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxIconBytes+1))
	if err != nil {
		return Icon{}, err
	}
	if len(data) > maxIconBytes {
		return Icon{}, errors.New("icon too large")
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Icon{}, err
	}
	return Icon{
		ContentType: "image/" + format,
		Width:       cfg.Width,
		Height:      cfg.Height,
		Data:        data,
	}, nil
}
