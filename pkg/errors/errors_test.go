package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapAndCode(t *testing.T) {
	base := errors.New("disk full")
	err := fmt.Errorf("saving: %w", Wrap(base, CodeInternal, "create post failed"))

	require.True(t, IsCode(err, CodeInternal))
	require.False(t, IsCode(err, CodeNotFound))
	require.Equal(t, CodeInternal, CodeOf(err))
	require.ErrorIs(t, err, base)
	require.Equal(t, CodeUnknown, CodeOf(base))
}

func TestWrapNil(t *testing.T) {
	err := Wrap(nil, CodeInvalid, "price must be positive")
	require.Nil(t, err.Err)
	require.Equal(t, "invalid: price must be positive", err.Error())
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeInvalid:       http.StatusBadRequest,
		CodeUnauthorized:  http.StatusUnauthorized,
		CodeForbidden:     http.StatusForbidden,
		CodeNotFound:      http.StatusNotFound,
		CodeAlreadyExists: http.StatusConflict,
		CodeInternal:      http.StatusInternalServerError,
		CodeUnknown:       http.StatusInternalServerError,
	}
	for code, want := range cases {
		t.Run(string(code), func(t *testing.T) {
			require.Equal(t, want, HTTPStatus(code))
		})
	}
}

func TestMessageOf(t *testing.T) {
	err := fmt.Errorf("repo: %w", Wrap(errors.New("SQLSTATE 23505"), CodeInternal, "create post failed"))
	require.Equal(t, "create post failed", MessageOf(err))
	require.Equal(t, "disk full", MessageOf(errors.New("disk full")))
}

func TestSentinelMatch(t *testing.T) {
	err := fmt.Errorf("load: %w", New(CodeNotFound, "post not found").WithMeta("post_id", 3))
	require.ErrorIs(t, err, New(CodeNotFound, ""))
	require.NotErrorIs(t, err, New(CodeForbidden, ""))
	require.NotErrorIs(t, err, New(CodeNotFound, "other message"))
}
