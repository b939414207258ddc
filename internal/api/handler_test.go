package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"arkiva/internal/auth"
	"arkiva/internal/config"
	"arkiva/internal/db"
	"arkiva/internal/db/crypto"
	"arkiva/internal/db/repository"
	"arkiva/internal/domain"
	"arkiva/internal/middleware"
	"arkiva/internal/service"
)

const testEncryptionKey = "6368616e676520746869732070617373776f726420746f206120736563726574"

// blobRecorder is an in-memory BlobStore standing in for the drive.
type blobRecorder struct {
	failWith error
	files    map[string][]byte
	nextID   int
}

func (s *blobRecorder) Upload(_ context.Context, filename, _ string, data []byte, _ string) (*domain.BlobRef, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	s.nextID++
	id := "drive-file-" + filename
	s.files[id] = data
	return &domain.BlobRef{FileID: id, WebViewLink: "https://drive.example/" + id}, nil
}

func (s *blobRecorder) Update(_ context.Context, fileID, _ string, data []byte) (*domain.BlobRef, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	s.files[fileID] = data
	return &domain.BlobRef{FileID: fileID, WebViewLink: "https://drive.example/" + fileID}, nil
}

func (s *blobRecorder) Download(_ context.Context, fileID string) ([]byte, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	return s.files[fileID], nil
}

func (s *blobRecorder) Delete(_ context.Context, fileID string) error {
	if s.failWith != nil {
		return s.failWith
	}
	delete(s.files, fileID)
	return nil
}

// recorderFactory hands out the same blobRecorder for every credential.
type recorderFactory struct {
	store *blobRecorder
}

func (f *recorderFactory) FromCredential(_ context.Context, _ domain.DriveCredential) (domain.BlobStore, error) {
	return f.store, nil
}

func (f *recorderFactory) FromServiceAccount(_ context.Context, _ string) (domain.BlobStore, error) {
	return f.store, nil
}

type staticSummarizer struct{ text string }

func (s *staticSummarizer) Summarize(_ context.Context, _ domain.SummaryInput) (string, error) {
	return s.text, nil
}

type staticExchanger struct{}

func (e *staticExchanger) AuthCodeURL(state string) string {
	return "https://accounts.google.com/o/oauth2/auth?state=" + state
}

func (e *staticExchanger) Exchange(_ context.Context, _ string) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: "at", RefreshToken: "rt"}, nil
}

type apiFixture struct {
	router chi.Router
	store  *blobRecorder
	creds  *repository.DriveCredentialRepo
	tokens map[string]string // email -> session token
}

// newAPIFixture wires the full HTTP surface over a migrated test database,
// seeded with one user per role and the legacy drive credential.
func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	writeDB, readDB := db.OpenTestSQLite(t)
	users := repository.NewUserRepo(writeDB, readDB)
	docs := repository.NewDocumentRepo(writeDB, readDB)
	states := repository.NewOAuthStateRepo(writeDB)
	encryptor, err := crypto.NewEncryptor(testEncryptionKey)
	require.NoError(t, err)
	creds := repository.NewDriveCredentialRepo(writeDB, readDB, encryptor)

	require.NoError(t, creds.Upsert(ctx, domain.DriveCredential{
		UserID:       domain.LegacyCredentialUserID,
		RefreshToken: "legacy-refresh",
		TokenURI:     "https://oauth2.googleapis.com/token",
		ClientID:     "c", ClientSecret: "s",
	}))

	issuer, err := auth.NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	store := &blobRecorder{files: make(map[string][]byte)}
	resolver := service.NewCredentialResolver(creds, &recorderFactory{store: store}, "", logger)

	authSvc := service.NewAuthService(users, issuer, logger)
	docSvc := service.NewDocumentService(docs, resolver, &staticSummarizer{text: "permbledhje"}, "folder-1", logger)
	driveSvc := service.NewDriveConnectService(states, creds, issuer, &staticExchanger{}, config.OAuthClientConfig{
		ClientID: "c", ClientSecret: "s",
		TokenURI: "https://oauth2.googleapis.com/token",
		AuthURI:  "https://accounts.google.com/o/oauth2/auth",
	}, "https://app.shkolla.edu", logger)

	handler := NewHandler(authSvc, docSvc, driveSvc, writeDB.PingContext, logger)
	router := chi.NewRouter()
	router.Use(middleware.Authenticator(issuer))
	handler.Routes(router)

	f := &apiFixture{router: router, store: store, creds: creds, tokens: make(map[string]string)}
	hash, err := auth.HashPassword("sekret123")
	require.NoError(t, err)
	for _, seed := range []struct {
		email string
		role  string
	}{
		{"admin@shkolla.edu", domain.RoleAdmin},
		{"sekret@shkolla.edu", domain.RoleSekretaria},
		{"staf@shkolla.edu", domain.RoleStaf},
		{"staf2@shkolla.edu", domain.RoleStaf},
	} {
		u, err := users.Create(ctx, domain.CreateUserRequest{Email: seed.email, PasswordHash: hash, Role: seed.role})
		require.NoError(t, err)
		token, err := issuer.Issue(u.ID, u.Email, u.Role)
		require.NoError(t, err)
		f.tokens[seed.email] = token
	}
	return f
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, path, body)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, r)
	return w
}

func (f *apiFixture) doJSON(t *testing.T, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return f.do(t, method, path, token, bytes.NewReader(body), "application/json")
}

// multipartUpload builds a multipart body with metadata fields and one file part.
func multipartUpload(t *testing.T, fields map[string]string, filename, mimeType string, data []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	hdr.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) (code, message string) {
	t.Helper()
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env.Error.Code, env.Error.Message
}

func (f *apiFixture) createDocument(t *testing.T, token, title string) documentDTO {
	t.Helper()
	body, ct := multipartUpload(t, map[string]string{
		"title":    title,
		"category": "vendime",
	}, title+".pdf", domain.MimePDF, []byte("pdf-bytes"))
	w := f.do(t, http.MethodPost, "/api/documents/", token, body, ct)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var doc documentDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	return doc
}

func TestLoginAndMe(t *testing.T) {
	f := newAPIFixture(t)

	w := f.doJSON(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "sekret@shkolla.edu", "password": "sekret123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var login loginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	assert.Equal(t, "bearer", login.TokenType)
	assert.Equal(t, domain.RoleSekretaria, login.Role)
	require.NotEmpty(t, login.AccessToken)

	w = f.do(t, http.MethodGet, "/api/auth/me", login.AccessToken, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var me map[string]userDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "sekret@shkolla.edu", me["user"].Email)

	t.Run("wrong password", func(t *testing.T) {
		w := f.doJSON(t, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email": "sekret@shkolla.edu", "password": "wrong",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		code, _ := decodeEnvelope(t, w)
		assert.Equal(t, "unauthorized", code)
	})

	t.Run("me without token", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/auth/me", "", nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestDocumentLifecycleHTTP(t *testing.T) {
	f := newAPIFixture(t)
	staf := f.tokens["staf@shkolla.edu"]
	sekret := f.tokens["sekret@shkolla.edu"]

	doc := f.createDocument(t, staf, "Vendimi i bordit")
	assert.Equal(t, "active", doc.Status)
	assert.NotEmpty(t, doc.DriveFileID)

	w := f.do(t, http.MethodGet, "/api/documents/", staf, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list documentListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, int64(1), list.Total)
	assert.Equal(t, 1, list.Page)

	w = f.doJSON(t, http.MethodPut, "/api/documents/1/", sekret, map[string]string{"title": "Vendimi i ri"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated documentDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "Vendimi i ri", updated.Title)

	w = f.do(t, http.MethodPatch, "/api/documents/1/archive", staf, nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "archived", updated.Status)

	w = f.do(t, http.MethodPatch, "/api/documents/1/unarchive", staf, nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/api/documents/1/summary", staf, nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var summary summaryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, "permbledhje", summary.AISummary)

	w = f.do(t, http.MethodDelete, "/api/documents/1/", staf, nil, "")
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, f.store.files)

	w = f.do(t, http.MethodGet, "/api/documents/1/", staf, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	code, _ := decodeEnvelope(t, w)
	assert.Equal(t, "not_found", code)
}

func TestCreateDocumentValidationHTTP(t *testing.T) {
	f := newAPIFixture(t)
	staf := f.tokens["staf@shkolla.edu"]

	t.Run("missing file part", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("title", "t"))
		require.NoError(t, mw.WriteField("category", "c"))
		require.NoError(t, mw.Close())

		w := f.do(t, http.MethodPost, "/api/documents/", staf, &buf, mw.FormDataContentType())
		assert.Equal(t, http.StatusBadRequest, w.Code)
		code, message := decodeEnvelope(t, w)
		assert.Equal(t, "bad_request", code)
		assert.Contains(t, message, "file is required")
	})

	t.Run("unsupported mime type", func(t *testing.T) {
		body, ct := multipartUpload(t, map[string]string{"title": "t", "category": "c"}, "x.png", "image/png", []byte("png"))
		w := f.do(t, http.MethodPost, "/api/documents/", staf, body, ct)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, f.store.files, "rejected uploads never reach the drive")
	})

	t.Run("anonymous rejected", func(t *testing.T) {
		body, ct := multipartUpload(t, map[string]string{"title": "t", "category": "c"}, "x.pdf", domain.MimePDF, []byte("pdf"))
		w := f.do(t, http.MethodPost, "/api/documents/", "", body, ct)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestDeleteForbiddenForNonOwnerHTTP(t *testing.T) {
	f := newAPIFixture(t)
	doc := f.createDocument(t, f.tokens["staf@shkolla.edu"], "i imi")

	w := f.do(t, http.MethodDelete, "/api/documents/1/", f.tokens["staf2@shkolla.edu"], nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	code, _ := decodeEnvelope(t, w)
	assert.Equal(t, "forbidden", code)
	assert.Contains(t, f.store.files, doc.DriveFileID)
}

func TestDeleteUnavailableWhenDriveFails(t *testing.T) {
	f := newAPIFixture(t)
	staf := f.tokens["staf@shkolla.edu"]
	f.createDocument(t, staf, "doc")

	f.store.failWith = errors.New("permission denied")
	w := f.do(t, http.MethodDelete, "/api/documents/1/", staf, nil, "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	code, _ := decodeEnvelope(t, w)
	assert.Equal(t, "external_unavailable", code)

	// The record is still there.
	f.store.failWith = nil
	w = f.do(t, http.MethodGet, "/api/documents/1/", staf, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestEnvelopeNormalization(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/api/nope", "", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	code, _ := decodeEnvelope(t, w)
	assert.Equal(t, "not_found", code)

	w = f.do(t, http.MethodDelete, "/health", "", nil, "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	code, _ = decodeEnvelope(t, w)
	assert.Equal(t, "method_not_allowed", code)
}

func TestDriveEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	staf := f.tokens["staf@shkolla.edu"]

	t.Run("auth url requires a session", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/drive/auth/url", "", nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("auth url returns the provider url", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/drive/auth/url", staf, nil, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp["auth_url"], "state=")
	})

	t.Run("start accepts the token as query parameter", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/drive/auth/start?token="+staf, "", nil, "")
		assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
		assert.Contains(t, w.Header().Get("Location"), "accounts.google.com")
	})

	t.Run("status and disconnect lifecycle", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/drive/status", staf, nil, "")
		require.Equal(t, http.StatusOK, w.Code)
		var status struct {
			Connected bool `json:"connected"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		assert.False(t, status.Connected)

		require.NoError(t, f.creds.Upsert(context.Background(), domain.DriveCredential{
			UserID: 3, RefreshToken: "rt", TokenURI: "t", ClientID: "c", ClientSecret: "s",
		}))

		// staf@shkolla.edu is the third seeded user.
		w = f.do(t, http.MethodGet, "/api/drive/status", staf, nil, "")
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		assert.True(t, status.Connected)

		w = f.do(t, http.MethodDelete, "/api/drive/disconnect", staf, nil, "")
		assert.Equal(t, http.StatusOK, w.Code)

		w = f.do(t, http.MethodGet, "/api/drive/status", staf, nil, "")
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		assert.False(t, status.Connected)
	})
}

func TestHealthHTTP(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/health", "", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/health/db", "", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}
