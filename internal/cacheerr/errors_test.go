package cacheerr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adamryczkowski/cachemanager/internal/cacheerr"
)

func TestError_UnwrapExposesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := cacheerr.New(cacheerr.KindIOFailure, "objstore.Write", cause)
	assert.True(t, errors.Is(err, cause))
}

func TestIs_MatchesByKind(t *testing.T) {
	err := cacheerr.New(cacheerr.KindNotFound, "metastore.Get", nil)
	assert.True(t, cacheerr.Is(err, cacheerr.KindNotFound))
	assert.False(t, cacheerr.Is(err, cacheerr.KindIOFailure))
}

func TestIs_FalseForPlainErrors(t *testing.T) {
	assert.False(t, cacheerr.Is(errors.New("not ours"), cacheerr.KindNotFound))
}

func TestError_WrapsThroughFmtErrorf(t *testing.T) {
	base := cacheerr.New(cacheerr.KindCorruptBlob, "coordinator.tryRead", errors.New("bad gob"))
	wrapped := fmt.Errorf("get_object: %w", base)
	assert.True(t, cacheerr.Is(wrapped, cacheerr.KindCorruptBlob))
}

func TestError_MessageIncludesOpAndKind(t *testing.T) {
	err := cacheerr.New(cacheerr.KindConfigError, "Config.Validate", errors.New("bad value"))
	assert.Contains(t, err.Error(), "Config.Validate")
	assert.Contains(t, err.Error(), "config_error")
	assert.Contains(t, err.Error(), "bad value")
}
