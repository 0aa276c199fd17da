package bot

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadFileID(t *testing.T) {
	var handlerCalled bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/photos/large.jpeg" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		handlerCalled = true
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(jpegBytes)
	}))
	defer ts.Close()

	getFileDirectURL := func(fileID string) (string, error) {
		return ts.URL + "/photos/" + fileID + ".jpeg", nil
	}

	data, err := downloadFileID(getFileDirectURL, "large")
	require.NoError(t, err)
	assert.Equal(t, jpegBytes, data)
	assert.True(t, handlerCalled)

	_, err = downloadFileID(getFileDirectURL, "missing")
	assert.ErrorContains(t, err, "request failed")
}

func TestDownloadFileID_URLError(t *testing.T) {
	_, err := downloadFileID(func(string) (string, error) {
		return "", errors.New("file is too big")
	}, "large")
	assert.ErrorContains(t, err, "file is too big")
}
