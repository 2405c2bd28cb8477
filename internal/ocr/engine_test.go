package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func ocrServer(t *testing.T, text string, onRequest func(r *http.Request)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if onRequest != nil {
			onRequest(r)
		}
		require.NoError(t, json.NewEncoder(w).Encode(ocrResponse{Text: text}))
	}))
}

func tempSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scan.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7 scanned"), 0o644))
	return path
}

func TestHTTPEngine_PageSendsFileAndPageField(t *testing.T) {
	var gotPage string
	var gotFile string
	srv := ocrServer(t, "recognized page text", func(r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotPage = r.FormValue("page")
		if files := r.MultipartForm.File["file"]; len(files) == 1 {
			gotFile = files[0].Filename
		}
	})
	defer srv.Close()

	eng := NewHTTPEngine(srv.URL, 5*time.Second)
	text, err := eng.Page(context.Background(), tempSource(t), 3)
	require.NoError(t, err)
	require.Equal(t, "recognized page text", text)
	require.Equal(t, "3", gotPage)
	require.Equal(t, "scan.pdf", gotFile)
}

func TestHTTPEngine_DocumentOmitsPageField(t *testing.T) {
	var gotPage string
	srv := ocrServer(t, "whole document text", func(r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotPage = r.FormValue("page")
	})
	defer srv.Close()

	eng := NewHTTPEngine(srv.URL, 5*time.Second)
	text, err := eng.Document(context.Background(), tempSource(t))
	require.NoError(t, err)
	require.Equal(t, "whole document text", text)
	require.Empty(t, gotPage)
}

func TestHTTPEngine_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "engine busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	eng := NewHTTPEngine(srv.URL, 5*time.Second)
	_, err := eng.Page(context.Background(), tempSource(t), 1)
	require.ErrorContains(t, err, "returned 503")
}

func TestHTTPEngine_MissingSourceFile(t *testing.T) {
	eng := NewHTTPEngine("http://localhost:1", 5*time.Second)
	_, err := eng.Page(context.Background(), filepath.Join(t.TempDir(), "absent.pdf"), 1)
	require.Error(t, err)
}
