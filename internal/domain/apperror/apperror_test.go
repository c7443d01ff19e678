package apperror

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	cause := errors.New("duplicate key value")

	assert.Equal(t, "product name taken", Duplicate("product name taken", cause).Error())
	assert.Equal(t, "duplicate key value", New(KindDuplicate, "", cause).Error())
	assert.Equal(t, "not_found", New(KindNotFound, "", nil).Error())

	var nilErr *Error
	assert.Empty(t, nilErr.Error())
	assert.NoError(t, nilErr.Unwrap())
}

func TestKindOf(t *testing.T) {
	sentinel := NotFound("product not found", nil)
	wrapped := errors.Wrap(sentinel, "load product")

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindNotFound))
	assert.True(t, errors.Is(wrapped, sentinel))
	assert.False(t, Is(wrapped, KindConflict))
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("unique_violation")
	err := Duplicate("promo code already exists", cause)

	assert.ErrorIs(t, err, cause)
}
