// Package errors_test covers the AppError type, its factories and the
// error-chain helpers.
package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MedKG-Intelligence/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// New / Wrap
// ─────────────────────────────────────────────────────────────────────────────

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal", errors.CodeInternal, "unexpected failure"},
		{"malformed", errors.ErrCodeMalformedInput, "query text must not be empty"},
		{"store", errors.ErrCodeStoreUnavailable, "sqlite file missing"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ae := errors.New(tc.code, tc.message)
			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
		})
	}
}

func TestError_Format(t *testing.T) {
	t.Parallel()

	ae := errors.New(errors.ErrCodeMalformedInput, "bad threshold")
	assert.Equal(t, "[KG_001] bad threshold", ae.Error())

	withDetail := ae.WithDetail("threshold=120")
	assert.Equal(t, "[KG_001] bad threshold: threshold=120", withDetail.Error())

	wrapped := errors.Wrap(stderrors.New("disk gone"), errors.ErrCodeStoreUnavailable, "open store")
	assert.Equal(t, "[KG_003] open store | disk gone", wrapped.Error())
}

func TestWrap_NilErrReturnsNil(t *testing.T) {
	t.Parallel()
	assert.Nil(t, errors.Wrap(nil, errors.CodeInternal, "ignored"))
}

func TestWrap_PreservesCodeWhenUnknown(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.ErrCodeStoreUnavailable, "missing")
	outer := errors.Wrap(inner, errors.CodeUnknown, "attach")
	assert.Equal(t, errors.ErrCodeStoreUnavailable, outer.Code)
	assert.True(t, stderrors.Is(outer, inner))
}

func TestWithDetail_NilSafe(t *testing.T) {
	t.Parallel()

	var ae *errors.AppError
	assert.Nil(t, ae.WithDetail("x"))
	assert.Nil(t, ae.WithCause(stderrors.New("x")))
}

func TestWithDetail_DoesNotMutateReceiver(t *testing.T) {
	t.Parallel()

	base := errors.New(errors.CodeInternal, "m")
	_ = base.WithDetailf("id=%d", 7)
	assert.Empty(t, base.Detail)
}

// ─────────────────────────────────────────────────────────────────────────────
// Chain helpers
// ─────────────────────────────────────────────────────────────────────────────

func TestIsCode_TraversesFmtWrapping(t *testing.T) {
	t.Parallel()

	ae := errors.MalformedInput("empty")
	wrapped := fmt.Errorf("handler: %w", ae)
	assert.True(t, errors.IsCode(wrapped, errors.ErrCodeMalformedInput))
	assert.True(t, errors.IsMalformedInput(wrapped))
	assert.False(t, errors.IsStoreUnavailable(wrapped))
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		err      error
		expected bool
	}{
		{"generic", errors.NotFound("nope"), true},
		{"entity", errors.New(errors.ErrCodeEntityNotFound, "no entity"), true},
		{"wrapped", fmt.Errorf("ctx: %w", errors.NotFound("nope")), true},
		{"internal", errors.Internal("boom"), false},
		{"plain", stderrors.New("plain"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.expected, errors.IsNotFound(tc.err), tc.name)
	}
}

func TestGetCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))
	assert.Equal(t, errors.ErrCodeStoreUnavailable, errors.GetCode(errors.StoreUnavailable("x")))
}

//Personal.AI order the ending
