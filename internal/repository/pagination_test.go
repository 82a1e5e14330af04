package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name       string
		page, size int
		wantPage   int
		wantSize   int
		wantOffset int
	}{
		{name: "defaults", page: 0, size: 0, wantPage: 1, wantSize: 20, wantOffset: 0},
		{name: "negative page", page: -3, size: 10, wantPage: 1, wantSize: 10, wantOffset: 0},
		{name: "too large", page: 2, size: 500, wantPage: 2, wantSize: 100, wantOffset: 100},
		{name: "third page", page: 3, size: 25, wantPage: 3, wantSize: 25, wantOffset: 50},
		{name: "one per page", page: 4, size: 1, wantPage: 4, wantSize: 1, wantOffset: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPagination(tt.page, tt.size)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantSize, p.PageSize)
			assert.Equal(t, tt.wantOffset, p.Offset())
			assert.Equal(t, tt.wantSize, p.Limit())
		})
	}
}
