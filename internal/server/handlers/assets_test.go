package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func testAssets() fstest.MapFS {
	return fstest.MapFS{
		"index.html":     {Data: []byte("<html>maintenance</html>")},
		"main.js":        {Data: []byte("console.log(1)")},
		"style.css":      {Data: []byte("body{}")},
		"logo.svg":       {Data: []byte("<svg/>")},
		"img/banner.png": {Data: []byte("png")},
	}
}

func TestAssetHandlerServesFilesWithContentType(t *testing.T) {
	h := NewAssetHandler(testAssets())
	cases := []struct {
		path string
		ct   string
		body string
	}{
		{"/", "text/html", "<html>maintenance</html>"},
		{"/index.html", "text/html", "<html>maintenance</html>"},
		{"/main.js", "application/javascript", "console.log(1)"},
		{"/style.css", "text/css", "body{}"},
		{"/logo.svg", "application/octet-stream", "<svg/>"},
		{"/img/banner.png", "application/octet-stream", "png"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
			require.Equal(t, http.StatusOK, rec.Code)
			require.Equal(t, tc.ct, rec.Header().Get("Content-Type"))
			require.Equal(t, tc.body, rec.Body.String())
		})
	}
}

func TestAssetHandlerNotFound(t *testing.T) {
	h := NewAssetHandler(testAssets())
	for _, p := range []string{"/missing.js", "/img", "/img/", "/../secret", "/img/../../etc/passwd", "/a\\b"} {
		t.Run(p, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.URL.Path = p
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, http.StatusNotFound, rec.Code)
		})
	}
}

func TestAssetHandlerHeadAndMethodNotAllowed(t *testing.T) {
	h := NewAssetHandler(testAssets())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/style.css", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/style.css", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestContentTypeFor(t *testing.T) {
	require.Equal(t, "text/html", ContentTypeFor("index.html"))
	require.Equal(t, "application/javascript", ContentTypeFor("a/b.js"))
	require.Equal(t, "text/css", ContentTypeFor("x.CSS"))
	require.Equal(t, "application/octet-stream", ContentTypeFor("README"))
}
