package telegram

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBase64 = base64.StdEncoding.EncodeToString([]byte("\x89PNG fake image"))

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSenderFor(t *testing.T, handler http.HandlerFunc) *Sender {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewSender("123:abc", srv.URL, 2*time.Second, discardLogger())
}

func assertKind(t *testing.T, err error, want ErrorKind) {
	t.Helper()
	var tgErr *Error
	require.True(t, errors.As(err, &tgErr), "expected *telegram.Error, got %v", err)
	assert.Equal(t, want, tgErr.Kind)
}

func TestSender_SendPhoto_Success(t *testing.T) {
	sender := newSenderFor(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/bot123:abc/sendPhoto", r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "42", r.FormValue("chat_id"))
		assert.Equal(t, "QR access (booking_access)", r.FormValue("caption"))

		file, header, err := r.FormFile("photo")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "qr-code.png", header.Filename)
		content, _ := io.ReadAll(file)
		assert.Equal(t, "\x89PNG fake image", string(content))

		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	})

	err := sender.SendPhoto(context.Background(), 42, pngBase64, "QR access (booking_access)")
	assert.NoError(t, err)
}

func TestSender_SendPhoto_Configuration(t *testing.T) {
	sender := NewSender("  ", "http://127.0.0.1:1", time.Second, discardLogger())
	err := sender.SendPhoto(context.Background(), 42, pngBase64, "c")
	assertKind(t, err, KindConfiguration)
}

func TestSender_SendPhoto_InvalidPayload(t *testing.T) {
	sender := NewSender("123:abc", "http://127.0.0.1:1", time.Second, discardLogger())
	err := sender.SendPhoto(context.Background(), 42, "%%%not-base64", "c")
	assertKind(t, err, KindInvalidPayload)
}

func TestSender_SendPhoto_APIErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   ErrorKind
	}{
		{"bad request", http.StatusBadRequest, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`, KindInvalidChat},
		{"forbidden", http.StatusForbidden, `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`, KindForbidden},
		{"too many requests", http.StatusTooManyRequests, `{"ok":false,"error_code":429,"description":"Too Many Requests"}`, KindRemoteAPI},
		{"server error without body", http.StatusBadGateway, ``, KindRemoteAPI},
		{"ok status but not ok", http.StatusOK, `{"ok":false,"error_code":400,"description":"bad"}`, KindInvalidChat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := newSenderFor(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			err := sender.SendPhoto(context.Background(), 42, pngBase64, "c")
			assertKind(t, err, tt.want)
		})
	}
}

func TestSender_SendPhoto_UndecodableReply(t *testing.T) {
	sender := newSenderFor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("<html>upstream error</html>"))
	})

	err := sender.SendPhoto(context.Background(), 42, pngBase64, "c")
	assertKind(t, err, KindRemoteAPI)

	var syntaxErr *json.SyntaxError
	assert.True(t, errors.As(err, &syntaxErr), "decode failure should stay in the chain: %v", err)
	assert.Contains(t, err.Error(), "sendPhoto returned 500")
}

func TestSender_SendPhoto_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	sender := NewSender("123:abc", srv.URL, 50*time.Millisecond, discardLogger())
	err := sender.SendPhoto(context.Background(), 42, pngBase64, "c")
	assertKind(t, err, KindTimeout)
}

func TestSender_SendPhoto_Network(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	sender := NewSender("123:abc", url, time.Second, discardLogger())
	err := sender.SendPhoto(context.Background(), 42, pngBase64, "c")
	assertKind(t, err, KindNetwork)
}

func TestSender_SendPhoto_CallerCanceled(t *testing.T) {
	sender := newSenderFor(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sender.SendPhoto(ctx, 42, pngBase64, "c")
	require.Error(t, err)
	var tgErr *Error
	assert.False(t, errors.As(err, &tgErr))
	assert.ErrorIs(t, err, context.Canceled)
}
