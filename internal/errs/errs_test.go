package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryAndSeverity(t *testing.T) {
	cases := []struct {
		code     Code
		category Category
		severity Severity
	}{
		{CodeNotInitialised, CategoryWorkspace, SeverityFatal},
		{CodeProviderUnavailable, CategoryProvider, SeverityError},
		{CodeParseError, CategoryParse, SeverityWarning},
		{CodeSchemaEvolution, CategorySchema, SeverityWarning},
		{CodeConcurrencyDenied, CategoryConcurrency, SeverityFatal},
		{CodeNotFound, CategoryNotFound, SeverityError},
		{CodeInternal, CategoryInternal, SeverityError},
	}
	for _, tc := range cases {
		e := New(tc.code, "boom", nil)
		assert.Equal(t, tc.category, e.Category, tc.code)
		assert.Equal(t, tc.severity, e.Severity, tc.code)
	}
}

func TestError_IsMatchesByCode(t *testing.T) {
	a := New(CodeNotFound, "symbol missing", nil)
	b := New(CodeNotFound, "different message", nil)
	c := New(CodeInternal, "symbol missing", nil)

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	require.Nil(t, Wrap(CodeInternal, nil))
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	e := Wrap(CodeInternal, cause)
	require.NotNil(t, e)
	assert.Equal(t, cause, errors.Unwrap(e))
}

func TestWithDetail_Chains(t *testing.T) {
	e := New(CodeParseError, "bad file", nil).WithDetail("path", "a.ts").WithDetail("line", "12")
	assert.Equal(t, "a.ts", e.Details["path"])
	assert.Equal(t, "12", e.Details["line"])
}
