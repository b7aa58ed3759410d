package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		page, size    int
		offset, limit int
	}{
		{page: 1, size: 10, offset: 0, limit: 10},
		{page: 3, size: 20, offset: 40, limit: 20},
		{page: 0, size: 0, offset: 0, limit: DefaultPageSize},
		{page: -2, size: 500, offset: 0, limit: MaxPageSize},
	}

	for _, tt := range tests {
		offset, limit := Calculate(tt.page, tt.size)
		assert.Equal(t, tt.offset, offset, "page=%d size=%d", tt.page, tt.size)
		assert.Equal(t, tt.limit, limit, "page=%d size=%d", tt.page, tt.size)
	}
}

func TestParseIntDefault(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 7, ParseIntDefault("", 7))
	assert.Equal(t, 7, ParseIntDefault("abc", 7))
	assert.Equal(t, 3, ParseIntDefault("3", 7))
}
