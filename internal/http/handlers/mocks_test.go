package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ilocks/server/internal/auth"
	"github.com/ilocks/server/internal/middleware"
	"github.com/ilocks/server/internal/model"
	"github.com/ilocks/server/internal/qr"
	"github.com/ilocks/server/internal/telegram"
)

type mockOtpProvider struct {
	mock.Mock
}

func (m *mockOtpProvider) RequestCode(ctx context.Context, rawPhone string, includeDebugCode bool) (auth.RequestResult, error) {
	args := m.Called(ctx, rawPhone, includeDebugCode)
	return args.Get(0).(auth.RequestResult), args.Error(1)
}

func (m *mockOtpProvider) ConfirmCode(ctx context.Context, rawPhone, rawCode string) (auth.ConfirmResult, error) {
	args := m.Called(ctx, rawPhone, rawCode)
	return args.Get(0).(auth.ConfirmResult), args.Error(1)
}

type mockQrWorkflow struct {
	mock.Mock
}

func (m *mockQrWorkflow) Create(ctx context.Context, userID uuid.UUID, cmd qr.CreateCommand) (qr.CreateResult, error) {
	args := m.Called(ctx, userID, cmd)
	return args.Get(0).(qr.CreateResult), args.Error(1)
}

func (m *mockQrWorkflow) History(ctx context.Context, userID uuid.UUID, skip, take *int) (qr.History, error) {
	args := m.Called(ctx, userID, skip, take)
	return args.Get(0).(qr.History), args.Error(1)
}

func (m *mockQrWorkflow) Get(ctx context.Context, userID, id uuid.UUID) (qr.GetResult, error) {
	args := m.Called(ctx, userID, id)
	return args.Get(0).(qr.GetResult), args.Error(1)
}

func (m *mockQrWorkflow) SendToTelegram(ctx context.Context, userID, id uuid.UUID) (qr.SendResult, error) {
	args := m.Called(ctx, userID, id)
	return args.Get(0).(qr.SendResult), args.Error(1)
}

type mockBinder struct {
	mock.Mock
}

func (m *mockBinder) Bind(ctx context.Context, userID uuid.UUID, chatID int64) (telegram.BindResult, error) {
	args := m.Called(ctx, userID, chatID)
	return args.Get(0).(telegram.BindResult), args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const testJWTKey = "0123456789abcdef0123456789abcdef"

// anyUser resolves every token subject to a user, so handler tests control identity
// through the token alone
type anyUser struct{}

func (anyUser) GetByID(_ context.Context, id uuid.UUID) (model.User, error) {
	return model.User{ID: id, PhoneNumber: "79001234567"}, nil
}

// serve runs handler for a request. With a non-nil userID the handler sits behind
// AuthMiddleware and the request carries a token for that user; pattern registers
// the handler on a chi router so URL params resolve.
func serve(t *testing.T, pattern string, handler http.HandlerFunc, method, target string, body any, userID *uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()

	r := chi.NewRouter()

	var reader io.Reader = http.NoBody
	if body != nil {
		if s, ok := body.(string); ok {
			reader = bytes.NewBufferString(s)
		} else {
			b, err := json.Marshal(body)
			require.NoError(t, err)
			reader = bytes.NewReader(b)
		}
	}

	req := httptest.NewRequest(method, target, reader)
	if userID != nil {
		jwtService, err := auth.NewJWTService("ilocks-api", "ilocks-clients", testJWTKey, time.Hour)
		require.NoError(t, err)
		token, err := jwtService.IssueAccessToken(*userID, "79001234567")
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token.Token)

		r.With(middleware.AuthMiddleware(jwtService, anyUser{}, discardLogger())).MethodFunc(method, pattern, handler)
	} else {
		r.MethodFunc(method, pattern, handler)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}
