package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_AreDistinct(t *testing.T) {
	all := []error{
		ErrNotFound,
		ErrInvalidInput,
		ErrNotImplemented,
		ErrEmbeddingUnavailable,
		ErrGeneratorUnavailable,
		ErrMissingCredentials,
		ErrFetchFailed,
		ErrManifestUnavailable,
		ErrLeaseHeld,
		ErrInvalidCrawlState,
	}

	for i := range all {
		for j := range all {
			if i != j {
				assert.False(t, errors.Is(all[i], all[j]), "%v should not match %v", all[i], all[j])
			}
		}
	}
}

func TestErrors_Wrapping(t *testing.T) {
	wrapped := fmt.Errorf("fetching https://example.com/: %w", ErrFetchFailed)

	assert.True(t, errors.Is(wrapped, ErrFetchFailed))
	assert.Contains(t, wrapped.Error(), "fetch failed")
}
