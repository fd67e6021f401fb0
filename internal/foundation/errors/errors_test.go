package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuilderDefaults(t *testing.T) {
	err := NewError(CategoryParse, "bad markup").Build()

	require.Equal(t, CategoryParse, err.Category())
	require.Equal(t, SeverityError, err.Severity())
	require.Equal(t, RetryNever, err.RetryStrategy())
	require.False(t, err.CanRetry())
	require.Equal(t, "[parse:error] bad markup", err.Error())
}

func TestWrapErrorKeepsCause(t *testing.T) {
	cause := io.ErrUnexpectedEOF
	err := WrapError(cause, CategoryFileSystem, "failed to read page").
		WithContext("path", "a/b.html").
		Retryable().
		Build()

	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.True(t, err.CanRetry())
	path, ok := err.Context().GetString("path")
	require.True(t, ok)
	require.Equal(t, "a/b.html", path)
}

func TestAsClassifiedFindsWrappedError(t *testing.T) {
	inner := StoreError("insert failed").Build()
	outer := fmt.Errorf("run: %w", inner)

	got, ok := AsClassified(outer)
	require.True(t, ok)
	require.Same(t, inner, got)
	require.True(t, HasCategory(outer, CategoryStore))
	require.Equal(t, CategoryInternal, GetCategory(stderrors.New("plain")))
}

func TestErrorContextMerge(t *testing.T) {
	a := ErrorContext{"x": 1, "y": 2}
	b := ErrorContext{"y": 3}

	merged := a.Merge(b)
	require.Equal(t, ErrorContext{"x": 1, "y": 3}, merged)
	require.Equal(t, 2, a["y"])

	var empty ErrorContext
	require.Equal(t, b, empty.Merge(b))
}

func TestCLIExitCodes(t *testing.T) {
	a := NewCLIErrorAdapter(false, nil)

	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{stderrors.New("plain"), 1},
		{ValidationError("bad flag").Build(), 2},
		{ConfigError("bad config").Build(), 7},
		{ParseError("bad html").Build(), 11},
		{DaemonError("watcher died").Build(), 12},
		{NewError(CategoryCanceled, "interrupted").Build(), 130},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, a.ExitCodeFor(tc.err), "error: %v", tc.err)
	}
}

func TestCLIFormatError(t *testing.T) {
	err := FileSystemError("failed to write page").WithContext("path", "index.html").Build()

	quiet := NewCLIErrorAdapter(false, nil)
	require.Equal(t, "Error: failed to write page (index.html)", quiet.FormatError(err))

	loud := NewCLIErrorAdapter(true, nil)
	require.Contains(t, loud.FormatError(err), "[filesystem:error]")

	var sb strings.Builder
	require.Equal(t, 11, quiet.Report(&sb, err))
	require.Contains(t, sb.String(), "failed to write page")
}

func TestHTTPErrorAdapter(t *testing.T) {
	a := NewHTTPErrorAdapter(nil)

	require.Equal(t, http.StatusNotFound, a.StatusCodeFor(NewError(CategoryNotFound, "no run yet").Build()))
	require.Equal(t, http.StatusInternalServerError, a.StatusCodeFor(stderrors.New("boom")))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	a.WriteErrorResponse(rec, req, NewError(CategoryNotFound, "no run yet").Build())

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"error":"no run yet","code":"not_found"}`, rec.Body.String())
}
