package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/anjiri1684/smart_roommate/apperrors"
	"github.com/anjiri1684/smart_roommate/handlers"
	"github.com/anjiri1684/smart_roommate/middleware"
	"github.com/anjiri1684/smart_roommate/models"
	"github.com/anjiri1684/smart_roommate/routes"
	"github.com/anjiri1684/smart_roommate/services"
	"github.com/anjiri1684/smart_roommate/services/storetest"
	"github.com/anjiri1684/smart_roommate/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const jwtSecret = "handler-secret"

type fakeUploader struct {
	uploaded []string
}

func (f *fakeUploader) Upload(_ context.Context, filename string, r io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	f.uploaded = append(f.uploaded, filename)
	return "https://cdn.example/" + filename, nil
}

func (f *fakeUploader) SignUpload(now time.Time) (*storage.SignedUpload, error) {
	return &storage.SignedUpload{Signature: "sig", Timestamp: now.Unix(), APIKey: "key", Folder: "smart_roommate"}, nil
}

type testEnv struct {
	app      *fiber.App
	store    *storetest.Memory
	uploader *fakeUploader
}

func newEnv(t *testing.T, uploader handlers.Uploader) *testEnv {
	t.Helper()
	store := storetest.NewMemory()
	log := zap.NewNop()

	directory := services.NewConversationDirectory(store, store, store, nil, log)
	t.Cleanup(directory.Wait)
	auth := services.NewAuthService(store, nil, services.AuthConfig{JWTSecret: jwtSecret, TokenTTL: time.Hour}, log)

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler(log), BodyLimit: handlers.BodyLimit})
	routes.Setup(app, routes.Handlers{
		Auth:      handlers.NewAuthHandler(auth),
		Profile:   handlers.NewProfileHandler(services.NewProfileService(store, log)),
		Property:  handlers.NewPropertyHandler(services.NewPropertyService(store, log)),
		Messaging: handlers.NewMessagingHandler(directory),
		Upload:    handlers.NewUploadHandler(uploader),
	}, middleware.Protected(jwtSecret))

	env := &testEnv{app: app, store: store}
	if f, ok := uploader.(*fakeUploader); ok {
		env.uploader = f
	}
	return env
}

func token(t *testing.T, u *models.User) string {
	t.Helper()
	s, err := services.SignToken(jwtSecret, u.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)
	return s
}

func (e *testEnv) send(t *testing.T, req *http.Request, auth string) (int, []byte) {
	t.Helper()
	if auth != "" {
		req.Header.Set("Authorization", "Bearer "+auth)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func (e *testEnv) do(t *testing.T, method, path, body, auth string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(t, req, auth)
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var out struct {
		Status string `json:"status"`
		Code   string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	assert.Equal(t, "error", out.Status)
	return out.Code
}

func idOf(t *testing.T, body []byte) uint {
	t.Helper()
	var out struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out.ID
}

func TestHealthAndAuthRequired(t *testing.T) {
	env := newEnv(t, nil)

	status, _ := env.do(t, "GET", "/health", "", "")
	assert.Equal(t, http.StatusOK, status)

	status, body := env.do(t, "GET", "/api/v1/conversations", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, apperrors.CodeUnauthenticated, errorCode(t, body))
}

func TestRegisterLoginAndProfile(t *testing.T) {
	env := newEnv(t, nil)

	status, body := env.do(t, "POST", "/api/v1/auth/register", `{
		"name": "Amina", "email": "amina@example.com", "password": "hunter22",
		"birthdate": "1999-01-20", "termsAccepted": true
	}`, "")
	require.Equal(t, http.StatusCreated, status, string(body))

	status, body = env.do(t, "POST", "/api/v1/auth/register", `{
		"name": "Amina", "email": "amina@example.com", "password": "hunter22",
		"birthdate": "1999-01-20", "termsAccepted": true
	}`, "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, apperrors.CodeConflict, errorCode(t, body))

	status, body = env.do(t, "POST", "/api/v1/auth/login", `{"email": "amina@example.com", "password": "nope"}`, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, apperrors.CodeUnauthenticated, errorCode(t, body))

	status, body = env.do(t, "POST", "/api/v1/auth/login", `{"email": "not-an-email", "password": "x"}`, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, apperrors.CodeValidation, errorCode(t, body))

	status, body = env.do(t, "POST", "/api/v1/auth/login", `{"email": "amina@example.com", "password": "hunter22"}`, "")
	require.Equal(t, http.StatusOK, status, string(body))
	var login services.AuthResult
	require.NoError(t, json.Unmarshal(body, &login))
	require.NotEmpty(t, login.Token)

	status, body = env.do(t, "PUT", "/api/v1/users/me", `{"bio": "Quiet, tidy, cooks a lot", "habits": ["cooking", "reading"]}`, login.Token)
	require.Equal(t, http.StatusOK, status, string(body))
	var me models.User
	require.NoError(t, json.Unmarshal(body, &me))
	assert.Equal(t, "cooking, reading", me.Habits)
	assert.False(t, me.ProfileComplete)
	assert.NotContains(t, string(body), "hunter22")

	status, body = env.do(t, "GET", "/api/v1/users/roommates", "", login.Token)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, apperrors.CodeProfileIncomplete, errorCode(t, body))

	status, body = env.do(t, "POST", "/api/v1/auth/forgot-password", `{"email": "ghost@example.com"}`, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), services.ForgotPasswordMessage)
}

func TestRegisterRejectsMalformedInput(t *testing.T) {
	env := newEnv(t, nil)

	cases := map[string]string{
		"malformed email": `{"name": "Amina", "email": "not-an-email", "password": "hunter22", "birthdate": "1999-01-20", "termsAccepted": true}`,
		"short password":  `{"name": "Amina", "email": "amina@example.com", "password": "abc", "birthdate": "1999-01-20", "termsAccepted": true}`,
		"long password":   `{"name": "Amina", "email": "amina@example.com", "password": "` + strings.Repeat("p", 73) + `", "birthdate": "1999-01-20", "termsAccepted": true}`,
		"no birthdate":    `{"name": "Amina", "email": "amina@example.com", "password": "hunter22", "termsAccepted": true}`,
	}
	for name, payload := range cases {
		status, body := env.do(t, "POST", "/api/v1/auth/register", payload, "")
		assert.Equal(t, http.StatusBadRequest, status, name)
		assert.Equal(t, apperrors.CodeValidation, errorCode(t, body), name)
	}
	_, err := env.store.GetUserByEmail(context.Background(), "amina@example.com")
	assert.Error(t, err, "nothing was registered")

	status, body := env.do(t, "POST", "/api/v1/auth/register", cases["malformed email"], "")
	require.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "email is invalid")
}

func TestDirectConversationFlow(t *testing.T) {
	env := newEnv(t, nil)
	alice := env.store.AddUser("Alice")
	bob := env.store.AddUser("Bob")
	carol := env.store.AddUser("Carol")

	status, body := env.do(t, "POST", "/api/v1/conversations",
		`{"recipientId": "2", "initialMessage": "Hi Bob, is the room free?"}`, token(t, alice))
	require.Equal(t, http.StatusCreated, status, string(body))
	convID := idOf(t, body)

	status, body = env.do(t, "POST", "/api/v1/conversations",
		`{"recipientId": 1, "initialMessage": "hello again"}`, token(t, bob))
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, convID, idOf(t, body))
	assert.Equal(t, 1, env.store.Messages(convID), "initial message only on creation")

	status, body = env.do(t, "GET", "/api/v1/conversations/unread-count", "", token(t, bob))
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"count": 1}`, string(body))

	status, body = env.do(t, "GET", "/api/v1/conversations", "", token(t, bob))
	require.Equal(t, http.StatusOK, status)
	var summaries []services.ConversationSummary
	require.NoError(t, json.Unmarshal(body, &summaries))
	require.Len(t, summaries, 1)
	assert.EqualValues(t, 1, summaries[0].UnreadCount)
	require.Len(t, summaries[0].Members, 1)
	assert.Equal(t, "Alice", summaries[0].Members[0].Name)

	status, body = env.do(t, "GET", "/api/v1/conversations/1/messages", "", token(t, bob))
	require.Equal(t, http.StatusOK, status)
	var msgs []services.MessageView
	require.NoError(t, json.Unmarshal(body, &msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, "Alice", msgs[0].SenderName)

	_, body = env.do(t, "GET", "/api/v1/conversations/unread-count", "", token(t, bob))
	assert.JSONEq(t, `{"count": 0}`, string(body))

	status, body = env.do(t, "POST", "/api/v1/conversations/1/messages", `{"body": "   "}`, token(t, bob))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, apperrors.CodeEmptyBody, errorCode(t, body))

	status, body = env.do(t, "POST", "/api/v1/conversations/1/messages", `{"body": "let me in"}`, token(t, carol))
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, apperrors.CodeAccessDenied, errorCode(t, body))

	status, body = env.do(t, "GET", "/api/v1/conversations/abc/messages", "", token(t, bob))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, apperrors.CodeValidation, errorCode(t, body))

	status, body = env.do(t, "PUT", "/api/v1/conversations/1", `{"name": "Kilimani flat"}`, token(t, bob))
	assert.Equal(t, http.StatusOK, status, string(body))
}

func TestCreateConversationRejections(t *testing.T) {
	env := newEnv(t, nil)
	alice := env.store.AddUser("Alice")
	env.store.AddUser("Bob")

	cases := map[string]struct {
		body   string
		status int
		code   string
	}{
		"non numeric recipient": {`{"recipientId": "bob"}`, http.StatusBadRequest, apperrors.CodeInvalidRecipient},
		"self":                  {`{"recipientId": 1}`, http.StatusBadRequest, apperrors.CodeInvalidRecipient},
		"unknown recipient":     {`{"recipientId": 99}`, http.StatusNotFound, apperrors.CodeNotFound},
		"unknown listing":       {`{"recipientId": 2, "propertyId": 7}`, http.StatusNotFound, apperrors.CodeNotFound},
		"lonely group":          {`{"memberIds": [1]}`, http.StatusBadRequest, apperrors.CodeInsufficientMembers},
		"nothing":               {`{}`, http.StatusBadRequest, apperrors.CodeInsufficientMembers},
		"bad member":            {`{"memberIds": ["x"]}`, http.StatusBadRequest, apperrors.CodeValidation},
	}
	for name, tc := range cases {
		status, body := env.do(t, "POST", "/api/v1/conversations", tc.body, token(t, alice))
		assert.Equal(t, tc.status, status, name)
		assert.Equal(t, tc.code, errorCode(t, body), name)
	}
	assert.Zero(t, env.store.Conversations())

	status, body := env.do(t, "POST", "/api/v1/conversations", `{"memberIds": [2, "2"], "name": "Flatmates"}`, token(t, alice))
	require.Equal(t, http.StatusCreated, status, string(body))
	assert.Equal(t, []uint{1, 2}, env.store.MemberIDs(idOf(t, body)))
}

func TestPropertyRoutes(t *testing.T) {
	env := newEnv(t, nil)
	owner := env.store.AddUser("Owner")
	other := env.store.AddUser("Other")

	listing := `{"title": "Bedsitter", "location": "Ruaka", "price": "14000", "rooms": 1}`
	status, _ := env.do(t, "POST", "/api/v1/properties", listing, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := env.do(t, "POST", "/api/v1/properties", listing, token(t, owner))
	require.Equal(t, http.StatusCreated, status, string(body))
	id := idOf(t, body)

	status, body = env.do(t, "GET", "/api/v1/properties?min_price=10000&cities=ruaka", "", "")
	require.Equal(t, http.StatusOK, status)
	var views []services.PropertyView
	require.NoError(t, json.Unmarshal(body, &views))
	require.Len(t, views, 1)
	assert.Equal(t, "Owner", views[0].OwnerName)

	status, body = env.do(t, "POST", "/api/v1/properties", `{"location": "Ruaka", "price": 9000}`, token(t, owner))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "title is required")

	status, body = env.do(t, "GET", "/api/v1/properties?min_price=cheap", "", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, apperrors.CodeValidation, errorCode(t, body))

	status, body = env.do(t, "DELETE", "/api/v1/properties/1", "", token(t, other))
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, apperrors.CodeAccessDenied, errorCode(t, body))

	status, _ = env.do(t, "DELETE", "/api/v1/properties/1", "", token(t, owner))
	assert.Equal(t, http.StatusOK, status)

	status, body = env.do(t, "GET", "/api/v1/properties/1", "", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, apperrors.CodeNotFound, errorCode(t, body))
	assert.EqualValues(t, 1, id)
}

func multipartRequest(t *testing.T, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, contentType := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="images"; filename="`+name+`"`)
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte("fake image bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest("POST", "/api/v1/uploads", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUploadImages(t *testing.T) {
	env := newEnv(t, &fakeUploader{})
	user := env.store.AddUser("Uploader")

	status, body := env.send(t, multipartRequest(t, map[string]string{"room.jpg": "image/jpeg"}), token(t, user))
	require.Equal(t, http.StatusCreated, status, string(body))
	assert.JSONEq(t, `{"urls": ["https://cdn.example/room.jpg"]}`, string(body))
	assert.Equal(t, []string{"room.jpg"}, env.uploader.uploaded)

	status, body = env.send(t, multipartRequest(t, map[string]string{"notes.txt": "text/plain"}), token(t, user))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, apperrors.CodeValidation, errorCode(t, body))

	status, body = env.do(t, "GET", "/api/v1/uploads/signature", "", token(t, user))
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"signature":"sig"`)
}

func TestUploadWithoutStore(t *testing.T) {
	env := newEnv(t, nil)
	user := env.store.AddUser("Uploader")

	status, body := env.send(t, multipartRequest(t, map[string]string{"room.jpg": "image/jpeg"}), token(t, user))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, apperrors.CodeInternal, errorCode(t, body))
}
