package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"gkh-portal/internal/auth"
	"gkh-portal/internal/config"
	"gkh-portal/internal/constants"
	"gkh-portal/internal/storage/memory"
	"gkh-portal/internal/support"
)

type apiEnv struct {
	router   http.Handler
	deps     *ApiDependencies
	tokens   *auth.TokenManager
	accounts *auth.Accounts
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	store := memory.NewStore()
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	accounts := auth.NewAccounts(store, tokens)
	cfg := &config.Config{
		AppEnv:            "test",
		MediaStoragePath:  t.TempDir(),
		MaxUploadBytes:    1 << 20,
		AdminPollInterval: 10 * time.Second,
	}
	deps := &ApiDependencies{
		Config:   cfg,
		Service:  support.NewService(support.Dependencies{Store: store, PollInterval: cfg.AdminPollInterval}),
		Accounts: accounts,
	}

	r := chi.NewRouter()
	SetupRoutes(r, deps)
	return &apiEnv{router: r, deps: deps, tokens: tokens, accounts: accounts}
}

func (e *apiEnv) resident(t *testing.T, name string) (int64, string) {
	t.Helper()
	sess, err := e.accounts.Register(context.Background(), name, name+"@example.ru", "password123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return sess.User.ID, sess.Token
}

func (e *apiEnv) admin(t *testing.T) (int64, string) {
	t.Helper()
	u, err := e.accounts.EnsureAdmin(context.Background(), "Поддержка", "support@example.ru", "password123")
	if err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	sess, err := e.accounts.IssueSession(u)
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	return u.ID, sess.Token
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type threadDTO struct {
	ID       int64  `json:"id"`
	UserID   int64  `json:"user_id"`
	Status   string `json:"status"`
	Messages []struct {
		ID          int64  `json:"id"`
		Text        string `json:"text"`
		IsFromAdmin bool   `json:"is_from_admin"`
	} `json:"messages"`
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, rec.Body.String())
	}
	if dst != nil {
		if err := json.Unmarshal(env.Data, dst); err != nil {
			t.Fatalf("decode data: %v (body %s)", err, rec.Body.String())
		}
	}
	return env
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

func TestGetMyQuestionCreatesThreadOnce(t *testing.T) {
	env := newAPIEnv(t)
	userID, token := env.resident(t, "ivan")

	var first, second threadDTO
	rec := env.do(t, http.MethodGet, "/api/support/question", token, nil)
	expectStatus(t, rec, http.StatusOK)
	decodeData(t, rec, &first)

	rec = env.do(t, http.MethodGet, "/api/support/question", token, nil)
	expectStatus(t, rec, http.StatusOK)
	decodeData(t, rec, &second)

	if first.ID == 0 || first.ID != second.ID {
		t.Fatalf("thread ids %d and %d, want the same non-zero id", first.ID, second.ID)
	}
	if first.UserID != userID || first.Status != "PENDING" || first.Messages == nil {
		t.Fatalf("unexpected thread %+v", first)
	}
}

func TestAuthRequired(t *testing.T) {
	env := newAPIEnv(t)

	for _, path := range []string{"/api/support/question", "/api/admin/questions", "/api/user/profile"} {
		rec := env.do(t, http.MethodGet, path, "", nil)
		expectStatus(t, rec, http.StatusUnauthorized)
	}
	rec := env.do(t, http.MethodGet, "/api/support/question", "not-a-jwt", nil)
	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestForgedRoleClaimIsIgnored(t *testing.T) {
	env := newAPIEnv(t)
	userID, _ := env.resident(t, "mallory")

	forged, err := env.tokens.Issue(userID, constants.ROLE_ADMIN)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	rec := env.do(t, http.MethodGet, "/api/admin/questions", forged, nil)
	expectStatus(t, rec, http.StatusForbidden)

	rec = env.do(t, http.MethodPost, "/api/admin/questions/1/status", forged, UpdateStatusRequest{Status: "COMPLETED"})
	expectStatus(t, rec, http.StatusForbidden)
}

func TestAdminReplyAndStatusVisibleToUser(t *testing.T) {
	env := newAPIEnv(t)
	_, userToken := env.resident(t, "olga")
	_, adminToken := env.admin(t)

	var thread threadDTO
	rec := env.do(t, http.MethodGet, "/api/support/question", userToken, nil)
	expectStatus(t, rec, http.StatusOK)
	decodeData(t, rec, &thread)

	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/admin/questions/%d/messages", thread.ID), adminToken,
		PostMessageRequest{Text: "Бригада выедет сегодня"})
	expectStatus(t, rec, http.StatusCreated)

	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/admin/questions/%d/status", thread.ID), adminToken,
		UpdateStatusRequest{Status: "IN_PROGRESS"})
	expectStatus(t, rec, http.StatusOK)
	var upd UpdateStatusResponse
	decodeData(t, rec, &upd)
	if upd.Status != "IN_PROGRESS" || upd.QuestionID != thread.ID {
		t.Fatalf("unexpected status response %+v", upd)
	}

	var after threadDTO
	rec = env.do(t, http.MethodGet, "/api/support/question", userToken, nil)
	expectStatus(t, rec, http.StatusOK)
	decodeData(t, rec, &after)
	if after.Status != "IN_PROGRESS" {
		t.Errorf("status = %s, want IN_PROGRESS", after.Status)
	}
	if len(after.Messages) != 1 || !after.Messages[0].IsFromAdmin || after.Messages[0].Text != "Бригада выедет сегодня" {
		t.Errorf("unexpected messages %+v", after.Messages)
	}
}

func TestPostMyMessage(t *testing.T) {
	env := newAPIEnv(t)
	_, token := env.resident(t, "petr")

	rec := env.do(t, http.MethodPost, "/api/support/question/messages", token, PostMessageRequest{Text: "   "})
	expectStatus(t, rec, http.StatusBadRequest)
	env2 := decodeData(t, rec, nil)
	if env2.Status != "error" || strings.HasPrefix(env2.Message, "invalid argument") {
		t.Errorf("unexpected error envelope %+v", env2)
	}

	rec = env.do(t, http.MethodPost, "/api/support/question/messages", token, PostMessageRequest{Text: " Течет крыша "})
	expectStatus(t, rec, http.StatusCreated)
	var msg struct {
		Text        string `json:"text"`
		IsFromAdmin bool   `json:"is_from_admin"`
	}
	decodeData(t, rec, &msg)
	if msg.Text != "Течет крыша" || msg.IsFromAdmin {
		t.Errorf("unexpected message %+v", msg)
	}

	rec = env.do(t, http.MethodPost, "/api/support/question/messages", token, PostMessageRequest{ImageURL: "/api/media/x.png"})
	expectStatus(t, rec, http.StatusCreated)
}

func TestAdminErrors(t *testing.T) {
	env := newAPIEnv(t)
	_, adminToken := env.admin(t)
	_, userToken := env.resident(t, "anna")

	var thread threadDTO
	decodeData(t, env.do(t, http.MethodGet, "/api/support/question", userToken, nil), &thread)

	cases := []struct {
		name string
		path string
		body interface{}
		want int
	}{
		{"unknown status", fmt.Sprintf("/api/admin/questions/%d/status", thread.ID), UpdateStatusRequest{Status: "ARCHIVED"}, http.StatusBadRequest},
		{"missing thread", "/api/admin/questions/9999/status", UpdateStatusRequest{Status: "COMPLETED"}, http.StatusNotFound},
		{"bad id", "/api/admin/questions/abc/status", UpdateStatusRequest{Status: "COMPLETED"}, http.StatusBadRequest},
		{"empty reply", fmt.Sprintf("/api/admin/questions/%d/messages", thread.ID), PostMessageRequest{}, http.StatusBadRequest},
		{"reply to missing thread", "/api/admin/questions/9999/messages", PostMessageRequest{Text: "hi"}, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, tc.path, adminToken, tc.body)
			expectStatus(t, rec, tc.want)
		})
	}

	rec := env.do(t, http.MethodGet, "/api/admin/questions/9999", adminToken, nil)
	expectStatus(t, rec, http.StatusNotFound)
}

func TestListSummaryAndExport(t *testing.T) {
	env := newAPIEnv(t)
	_, adminToken := env.admin(t)
	_, t1 := env.resident(t, "u1")
	_, t2 := env.resident(t, "u2")
	env.do(t, http.MethodGet, "/api/support/question", t1, nil)
	env.do(t, http.MethodPost, "/api/support/question/messages", t2, PostMessageRequest{Text: "Вопрос по счету"})

	rec := env.do(t, http.MethodGet, "/api/admin/questions", adminToken, nil)
	expectStatus(t, rec, http.StatusOK)
	var list struct {
		Questions []threadDTO `json:"questions"`
		Total     int         `json:"total"`
	}
	decodeData(t, rec, &list)
	if list.Total != 2 || len(list.Questions) != 2 {
		t.Fatalf("unexpected list %+v", list)
	}
	if len(list.Questions[0].Messages) != 1 {
		t.Errorf("most recently updated thread must come first, got %+v", list.Questions[0])
	}

	rec = env.do(t, http.MethodGet, "/api/admin/questions/summary", adminToken, nil)
	expectStatus(t, rec, http.StatusOK)
	var sum support.Summary
	decodeData(t, rec, &sum)
	if sum.Pending != 2 || sum.Total != 2 || sum.PollIntervalSeconds != 10 {
		t.Errorf("unexpected summary %+v", sum)
	}
	if rec.Header().Get("X-Poll-Interval") != "10" {
		t.Errorf("X-Poll-Interval = %q", rec.Header().Get("X-Poll-Interval"))
	}

	rec = env.do(t, http.MethodGet, "/api/admin/questions/export", adminToken, nil)
	expectStatus(t, rec, http.StatusOK)
	if rec.Header().Get("Content-Type") != xlsxContentType {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Errorf("export is not a zip container")
	}
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string) (bool, error) { return false, nil }

func TestRateLimitedMessages(t *testing.T) {
	env := newAPIEnv(t)
	env.deps.Limiter = denyAll{}
	_, token := env.resident(t, "spammer")

	rec := env.do(t, http.MethodPost, "/api/support/question/messages", token, PostMessageRequest{Text: "спам"})
	expectStatus(t, rec, http.StatusTooManyRequests)

	rec = env.do(t, http.MethodGet, "/api/support/question", token, nil)
	expectStatus(t, rec, http.StatusOK)
}

func TestRegisterAndLoginEndpoints(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{Name: "Иван", Email: "ivan@example.ru", Password: "password123"})
	expectStatus(t, rec, http.StatusCreated)
	var sess struct {
		Token string `json:"token"`
		User  struct {
			Role         string `json:"role"`
			PasswordHash string `json:"password_hash"`
		} `json:"user"`
	}
	decodeData(t, rec, &sess)
	if sess.Token == "" || sess.User.Role != constants.ROLE_USER || sess.User.PasswordHash != "" {
		t.Fatalf("unexpected session %+v", sess)
	}

	rec = env.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{Name: "Иван", Email: "IVAN@example.ru", Password: "password123"})
	expectStatus(t, rec, http.StatusConflict)

	rec = env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "ivan@example.ru", Password: "wrong-password"})
	expectStatus(t, rec, http.StatusUnauthorized)

	rec = env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "ivan@example.ru", Password: "password123"})
	expectStatus(t, rec, http.StatusOK)
	decodeData(t, rec, &sess)

	rec = env.do(t, http.MethodGet, "/api/user/profile", sess.Token, nil)
	expectStatus(t, rec, http.StatusOK)
}

func uploadRequest(t *testing.T, token, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	fw.Write(content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload-media", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestUploadAndServeImage(t *testing.T) {
	env := newAPIEnv(t)
	_, token := env.resident(t, "photo")

	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, uploadRequest(t, token, "leak.png", png))
	expectStatus(t, rec, http.StatusCreated)

	var up UploadFileResponse
	decodeData(t, rec, &up)
	if !strings.HasPrefix(up.URL, constants.MediaURLPrefix) || !strings.HasSuffix(up.FileID, ".png") {
		t.Fatalf("unexpected upload response %+v", up)
	}

	rec = env.do(t, http.MethodGet, up.URL, "", nil)
	expectStatus(t, rec, http.StatusOK)
	if rec.Header().Get("Content-Type") != "image/png" || !bytes.Equal(rec.Body.Bytes(), png) {
		t.Errorf("served file differs (type %q)", rec.Header().Get("Content-Type"))
	}

	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, uploadRequest(t, token, "doc.png", []byte("%PDF-1.4 not an image")))
	expectStatus(t, rec, http.StatusUnsupportedMediaType)

	rec = env.do(t, http.MethodGet, constants.MediaURLPrefix+"missing.png", "", nil)
	expectStatus(t, rec, http.StatusNotFound)
}

func TestQuestionQRCode(t *testing.T) {
	env := newAPIEnv(t)
	_, token := env.resident(t, "qr")

	rec := env.do(t, http.MethodGet, "/api/support/question/qr", token, nil)
	expectStatus(t, rec, http.StatusServiceUnavailable)

	env.deps.Config.PublicBaseURL = "https://gkh.example.ru"
	rec = env.do(t, http.MethodGet, "/api/support/question/qr", token, nil)
	expectStatus(t, rec, http.StatusOK)
	if rec.Header().Get("Content-Type") != "image/png" || !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Errorf("expected PNG response")
	}
}

func TestDevSeedOnlyInDev(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodPost, "/api/dev/seed", "", nil)
	expectStatus(t, rec, http.StatusNotFound)

	env.deps.Config.AppEnv = constants.AppEnvDev
	rec = env.do(t, http.MethodPost, "/api/dev/seed", "", nil)
	expectStatus(t, rec, http.StatusCreated)
	var seed DevSeedResponse
	decodeData(t, rec, &seed)

	var thread threadDTO
	rec = env.do(t, http.MethodGet, "/api/support/question", seed.UserToken, nil)
	expectStatus(t, rec, http.StatusOK)
	decodeData(t, rec, &thread)
	if thread.ID != seed.QuestionID || len(thread.Messages) != 2 {
		t.Errorf("unexpected seeded thread %+v", thread)
	}

	rec = env.do(t, http.MethodGet, "/api/admin/questions", seed.AdminToken, nil)
	expectStatus(t, rec, http.StatusOK)
}

func TestHealthz(t *testing.T) {
	env := newAPIEnv(t)
	expectStatus(t, env.do(t, http.MethodGet, "/healthz", "", nil), http.StatusOK)

	env.deps.Health = func(context.Context) error { return fmt.Errorf("connection refused") }
	expectStatus(t, env.do(t, http.MethodGet, "/healthz", "", nil), http.StatusServiceUnavailable)
}
