package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsdesk/internal/auth"
	"newsdesk/internal/domain"
	apphttp "newsdesk/internal/http"
	"newsdesk/internal/repository/sqlite"
	"newsdesk/internal/service"
	"newsdesk/internal/storage"
	"newsdesk/internal/testutil"
	"newsdesk/internal/upload"
)

type apiFixture struct {
	router *gin.Engine
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.OpenInMemoryDB(t, t.Name())
	userRepo := sqlite.NewUserRepository(db)
	newsRepo := sqlite.NewNewsRepository(db)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	uploads := upload.NewManager(storage.NewLocalStore(t.TempDir()), upload.Config{
		Dir:               "static/uploads",
		BaseURL:           "http://localhost:8080",
		AllowedExtensions: []string{"png", "jpg", "jpeg", "gif"},
	})

	userService := service.NewUserService(userRepo, "join-secret")
	newsService := service.NewNewsService(newsRepo, userRepo, uploads, logger)
	tokens := auth.NewTokenManager("test-secret", 7*24*time.Hour)

	testutil.CreateUser(t, userRepo, "admin", "adminpass123", domain.RoleAdmin)
	testutil.CreateUser(t, userRepo, "alice", "alicepass123", domain.RoleUser)
	testutil.CreateUser(t, userRepo, "bob", "bobpass1234", domain.RoleUser)

	router := gin.New()
	handler := apphttp.NewHandler(userService, newsService, tokens, logger)
	handler.RegisterRoutes(router)

	return &apiFixture{router: router}
}

func (f *apiFixture) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var body map[string]any
	if len(w.Body.Bytes()) > 0 && strings.HasPrefix(w.Body.String(), "{") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func (f *apiFixture) login(t *testing.T, username, password string) string {
	t.Helper()
	payload, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	w, body := f.do(t, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func multipartBody(t *testing.T, fields map[string]string, fileField, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func (f *apiFixture) newsRequest(t *testing.T, method, path, token string, fields map[string]string, filename, content string) *http.Request {
	t.Helper()
	fileField := ""
	if filename != "" {
		fileField = "image"
	}
	body, contentType := multipartBody(t, fields, fileField, filename, content)
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestLoginCreateGetFlow(t *testing.T) {
	f := newAPIFixture(t)
	token := f.login(t, "admin", "adminpass123")

	req := f.newsRequest(t, http.MethodPost, "/api/admin/news", token,
		map[string]string{"title": "T", "description": "D"}, "", "")
	w, body := f.do(t, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Nil(t, body["image_url"], "no image means a null image_url")
	id := int64(body["id"].(float64))
	require.Positive(t, id)

	getReq := httptest.NewRequest(http.MethodGet, "/api/news/"+jsonNumber(id), nil)
	getReq.Header.Set("Authorization", "Bearer "+token)
	w, body = f.do(t, getReq)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "T", body["title"])
	assert.Equal(t, "D", body["description"])
	assert.Equal(t, "admin", body["username"])
	assert.Nil(t, body["image_url"])
}

func TestCreateWithImage(t *testing.T) {
	f := newAPIFixture(t)
	token := f.login(t, "alice", "alicepass123")

	req := f.newsRequest(t, http.MethodPost, "/api/admin-area/news", token,
		map[string]string{"title": "T", "description": "D"}, "photo.png", "fakepng")
	w, body := f.do(t, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	url, _ := body["image_url"].(string)
	assert.True(t, strings.HasPrefix(url, "http://localhost:8080/static/uploads/"), url)
}

func TestInvalidImageTypeRejected(t *testing.T) {
	f := newAPIFixture(t)
	token := f.login(t, "alice", "alicepass123")

	req := f.newsRequest(t, http.MethodPost, "/api/admin-area/news", token,
		map[string]string{"title": "T", "description": "D"}, "malware.exe", "x")
	w, _ := f.do(t, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMissingFieldsRejected(t *testing.T) {
	f := newAPIFixture(t)
	token := f.login(t, "alice", "alicepass123")

	req := f.newsRequest(t, http.MethodPost, "/api/admin-area/news", token,
		map[string]string{"title": "only title"}, "", "")
	w, _ := f.do(t, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNonOwnerUpdateForbidden(t *testing.T) {
	f := newAPIFixture(t)
	aliceToken := f.login(t, "alice", "alicepass123")
	bobToken := f.login(t, "bob", "bobpass1234")

	req := f.newsRequest(t, http.MethodPost, "/api/admin-area/news", aliceToken,
		map[string]string{"title": "alice news", "description": "D"}, "", "")
	w, body := f.do(t, req)
	require.Equal(t, http.StatusCreated, w.Code)
	id := jsonNumber(int64(body["id"].(float64)))

	putReq := f.newsRequest(t, http.MethodPut, "/api/admin-area/news/"+id, bobToken,
		map[string]string{"title": "bob was here"}, "", "")
	w, _ = f.do(t, putReq)
	assert.Equal(t, http.StatusForbidden, w.Code)

	getReq := httptest.NewRequest(http.MethodGet, "/api/news/"+id, nil)
	getReq.Header.Set("Authorization", "Bearer "+aliceToken)
	w, body = f.do(t, getReq)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice news", body["title"], "record must be unchanged after a 403")

	// an admin may update someone else's item
	adminToken := f.login(t, "admin", "adminpass123")
	putReq = f.newsRequest(t, http.MethodPut, "/api/admin-area/news/"+id, adminToken,
		map[string]string{"title": "moderated"}, "", "")
	w, _ = f.do(t, putReq)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	f := newAPIFixture(t)
	token := f.login(t, "alice", "alicepass123")

	req := f.newsRequest(t, http.MethodPost, "/api/admin/news", token,
		map[string]string{"title": "T", "description": "D"}, "", "")
	w, _ := f.do(t, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	usersReq := httptest.NewRequest(http.MethodGet, "/api/admin-area/users", nil)
	usersReq.Header.Set("Authorization", "Bearer "+token)
	w, _ = f.do(t, usersReq)
	assert.Equal(t, http.StatusForbidden, w.Code)

	adminToken := f.login(t, "admin", "adminpass123")
	usersReq = httptest.NewRequest(http.MethodGet, "/api/admin-area/users", nil)
	usersReq.Header.Set("Authorization", "Bearer "+adminToken)
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, usersReq)
	require.Equal(t, http.StatusOK, w.Code)

	var users []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	assert.Len(t, users, 3)
}

func TestAuthRequired(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/news", nil)
	w, _ := f.do(t, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/news", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w, _ = f.do(t, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	payload, _ := json.Marshal(map[string]string{"username": "alice", "password": "wrong"})
	loginReq := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(payload))
	loginReq.Header.Set("Content-Type", "application/json")
	w, _ = f.do(t, loginReq)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMeAndLogout(t *testing.T) {
	f := newAPIFixture(t)
	token := f.login(t, "alice", "alicepass123")

	meReq := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	meReq.Header.Set("Authorization", "Bearer "+token)
	w, body := f.do(t, meReq)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, "user", body["role"])

	logoutReq := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	logoutReq.Header.Set("Authorization", "Bearer "+token)
	w, _ = f.do(t, logoutReq)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegister(t *testing.T) {
	f := newAPIFixture(t)

	payload, _ := json.Marshal(map[string]string{
		"username":        "newbie",
		"password":        "longenough",
		"register_secret": "join-secret",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w, body := f.do(t, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "newbie", body["username"])

	payload, _ = json.Marshal(map[string]string{
		"username":        "intruder",
		"password":        "longenough",
		"register_secret": "wrong",
	})
	req = httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w, _ = f.do(t, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	f.login(t, "newbie", "longenough")
}

func TestGetUnknownNews(t *testing.T) {
	f := newAPIFixture(t)
	token := f.login(t, "alice", "alicepass123")

	req := httptest.NewRequest(http.MethodGet, "/api/news/999", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w, _ := f.do(t, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	req = httptest.NewRequest(http.MethodDelete, "/api/admin-area/news/999", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w, _ = f.do(t, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPublicListPagination(t *testing.T) {
	f := newAPIFixture(t)
	token := f.login(t, "alice", "alicepass123")

	for i := 0; i < 7; i++ {
		req := f.newsRequest(t, http.MethodPost, "/api/admin-area/news", token,
			map[string]string{"title": "T", "description": "D"}, "", "")
		w, _ := f.do(t, req)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/news?page=1&per_page=5", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w, body := f.do(t, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 7, body["total"])
	assert.EqualValues(t, 2, body["pages"])
	assert.EqualValues(t, 5, body["per_page"])
	assert.Len(t, body["items"], 5)
}

func jsonNumber(id int64) string {
	return strconv.FormatInt(id, 10)
}
