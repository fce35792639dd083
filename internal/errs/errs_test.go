package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("product", 7)))
	assert.Equal(t, KindValidation, KindOf(New(KindValidation, "bad input")))

	// Plain errors classify as internal.
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestKindOfUnwraps(t *testing.T) {
	inner := Entity(KindInsufficientStock, "product", 3, "only 2 left")
	wrapped := fmt.Errorf("reserving stock: %w", inner)

	assert.Equal(t, KindInsufficientStock, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindInsufficientStock))
	assert.False(t, IsKind(wrapped, KindNotFound))
}

func TestIsKindNil(t *testing.T) {
	assert.False(t, IsKind(nil, KindInternal))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "product 7: product not found", NotFound("product", 7).Error())
	assert.Equal(t, "cart is empty", New(KindEmptyCart, "cart is empty").Error())
	assert.Equal(t, "order: bad state", (&Error{Entity: "order", Message: "bad state"}).Error())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(KindInternal, "publishing event", cause)
	assert.ErrorIs(t, err, cause)
}
