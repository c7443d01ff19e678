package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v int) *int { return &v }

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		number  *int
		size    *int
		want    Page
		wantErr error
	}{
		{name: "no paging selects all", want: Page{}},
		{name: "size alone is ignored", size: ptr(10), want: Page{}},
		{name: "page without size", number: ptr(1), wantErr: ErrSizeRequired},
		{name: "zero page", number: ptr(0), size: ptr(10), wantErr: ErrInvalidNumber},
		{name: "negative page", number: ptr(-2), size: ptr(10), wantErr: ErrInvalidNumber},
		{name: "zero size", number: ptr(1), size: ptr(0), wantErr: ErrInvalidSize},
		{name: "valid", number: ptr(3), size: ptr(20), want: Page{Number: 3, Size: 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.number, tt.size)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPage_Offset(t *testing.T) {
	assert.True(t, Page{}.All())
	assert.Equal(t, 0, Page{Number: 1, Size: 10}.Offset())
	assert.Equal(t, 20, Page{Number: 3, Size: 10}.Offset())
	assert.Equal(t, 10, Page{Number: 3, Size: 10}.Limit())
}
