package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/Belphemur/ImageTranslate/internal/config"
	"github.com/Belphemur/ImageTranslate/internal/models"
)

const resultEncodingVersion = 1

var errCorruptEntry = errors.New("corrupt cached result")

// ResultCache remembers translated images by input image and language pair. Proxy,
// Tor and timeout do not change the translation and are not part of the key.
// A nil *ResultCache is a disabled cache: every lookup misses and stores are dropped.
type ResultCache struct {
	store Cache
}

// NewResultCache stores results in store.
func NewResultCache(store Cache) *ResultCache {
	return &ResultCache{store: store}
}

// NewResultCacheFromConfig opens the configured backend, or returns nil when caching is off.
func NewResultCacheFromConfig(cfg *config.Config) (*ResultCache, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	backend := cfg.Cache.Type
	if backend == "" {
		backend = "memory"
	}
	store, err := New(backend, OptionsFromConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s result cache: %w", backend, err)
	}
	return NewResultCache(store), nil
}

// ResultKey derives the cache key for an image and language pair.
func ResultKey(image []byte, sourceLang, targetLang string) string {
	sum := sha256.Sum256(image)
	return hex.EncodeToString(sum[:]) + ":" + sourceLang + ":" + targetLang
}

// Get returns the cached translation for req.
func (c *ResultCache) Get(ctx context.Context, req models.TranslationRequest) (*models.TranslationResult, bool) {
	if c == nil {
		return nil, false
	}
	raw, ok := c.store.Get(ctx, ResultKey(req.Image.Data, req.SourceLang, req.TargetLang))
	if !ok {
		return nil, false
	}
	result, err := decodeResult(raw)
	if err != nil {
		logger := config.GetLogger()
		logger.Warn().Err(err).Msg("Ignoring unreadable cache entry")
		return nil, false
	}
	return result, true
}

// Put stores result for req.
func (c *ResultCache) Put(ctx context.Context, req models.TranslationRequest, result *models.TranslationResult) {
	if c == nil || result == nil {
		return
	}
	c.store.Set(ctx, ResultKey(req.Image.Data, req.SourceLang, req.TargetLang), encodeResult(result))
}

// Close closes the backend.
func (c *ResultCache) Close() error {
	if c == nil {
		return nil
	}
	return c.store.Close()
}

// encodeResult lays a result out as version, media type length (uint16), media type,
// then the image bytes. The output filename depends on the request and is not stored.
func encodeResult(result *models.TranslationResult) []byte {
	buf := make([]byte, 0, 3+len(result.MediaType)+len(result.Data))
	buf = append(buf, resultEncodingVersion)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(result.MediaType)))
	buf = append(buf, result.MediaType...)
	return append(buf, result.Data...)
}

func decodeResult(raw []byte) (*models.TranslationResult, error) {
	if len(raw) < 3 || raw[0] != resultEncodingVersion {
		return nil, errCorruptEntry
	}
	n := int(binary.BigEndian.Uint16(raw[1:3]))
	if len(raw) < 3+n {
		return nil, errCorruptEntry
	}
	data := raw[3+n:]
	if len(data) == 0 {
		return nil, errCorruptEntry
	}
	return &models.TranslationResult{
		MediaType: string(raw[3 : 3+n]),
		Data:      append([]byte(nil), data...),
	}, nil
}
