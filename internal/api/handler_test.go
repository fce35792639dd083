package api

import (
	"errors"
	"net/http"
	"testing"

	"shop-service/internal/errs"

	"github.com/stretchr/testify/assert"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errs.NotFound("product", 1), http.StatusNotFound},
		{errs.New(errs.KindValidation, "quantity must be positive"), http.StatusBadRequest},
		{errs.New(errs.KindEmptyCart, "cart is empty"), http.StatusBadRequest},
		{errs.New(errs.KindPreconditionFailed, "category inactive"), http.StatusConflict},
		{errs.New(errs.KindConsistencyViolation, "parent mismatch"), http.StatusConflict},
		{errs.New(errs.KindInsufficientStock, "only 2 left"), http.StatusConflict},
		{errs.New(errs.KindOrderCreationFailed, "product gone"), http.StatusConflict},
		{errs.New(errs.KindInvalidTransition, "delivered is terminal"), http.StatusConflict},
		{errs.New(errs.KindOperationNotAllowed, "orders cannot be deleted"), http.StatusConflict},
		{errors.New("database gone"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, statusForError(tc.err), "%v", tc.err)
	}
}
