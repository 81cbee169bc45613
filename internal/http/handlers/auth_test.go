package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jjinnspecs/authhub/internal/auth"
	"github.com/jjinnspecs/authhub/internal/domain/user"
	"github.com/jjinnspecs/authhub/internal/http/handlers"
	"github.com/jjinnspecs/authhub/internal/security"
	"golang.org/x/crypto/bcrypt"
)

// Make sure Gin does not spam the console during the test

func init() {
	gin.SetMode(gin.TestMode)
}

// Fake store implementation of the handlers.UserStore interface

type fakeUserStore struct {
	createFn          func(ctx context.Context, req user.CreateRequest) (user.User, error)
	getByIdentifierFn func(ctx context.Context, identifier string) (user.User, error)
	getByIDFn         func(ctx context.Context, id string) (user.User, error)
}

func (f *fakeUserStore) Create(ctx context.Context, req user.CreateRequest) (user.User, error) {
	if f.createFn != nil {
		return f.createFn(ctx, req)
	}
	return user.User{}, nil
}

func (f *fakeUserStore) GetByIdentifier(ctx context.Context, identifier string) (user.User, error) {
	if f.getByIdentifierFn != nil {
		return f.getByIdentifierFn(ctx, identifier)
	}
	return user.User{}, user.ErrNotFound
}

func (f *fakeUserStore) GetByID(ctx context.Context, id string) (user.User, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return user.User{}, user.ErrNotFound
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testHasher() *security.Hasher {
	return security.NewHasher(bcrypt.MinCost, 2, nil)
}

func testTokens() *auth.Manager {
	return auth.NewManager("test-secret", time.Hour)
}

// small helper which returns the gin engine to mount one handler per test

func setupRouter(method, path string, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Handle(method, path, h)

	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func TestSignUpHandler(t *testing.T) {
	validBody := `{
		"firstName": "A",
		"lastName": "B",
		"phoneNumber": "555",
		"email": "a@b.com",
		"username": "alice",
		"password": "pw123"
	}`

	tests := []struct {
		name           string
		body           string
		storeSetUp     func(*fakeUserStore)
		wantStatusCode int
	}{
		{
			name: "success",
			body: validBody,
			storeSetUp: func(f *fakeUserStore) {
				f.createFn = func(ctx context.Context, req user.CreateRequest) (user.User, error) {
					if req.PasswordHash == "" || req.PasswordHash == "pw123" {
						t.Errorf("plaintext must never reach the store, got %q", req.PasswordHash)
					}
					return user.User{ID: uuid.NewString(), Username: req.Username}, nil
				}
			},
			wantStatusCode: http.StatusCreated,
		},
		{
			name: "duplicate user",
			body: validBody,
			storeSetUp: func(f *fakeUserStore) {
				f.createFn = func(ctx context.Context, req user.CreateRequest) (user.User, error) {
					return user.User{}, user.ErrDuplicate
				}
			},
			wantStatusCode: http.StatusConflict,
		},
		{
			name: "store failure",
			body: validBody,
			storeSetUp: func(f *fakeUserStore) {
				f.createFn = func(ctx context.Context, req user.CreateRequest) (user.User, error) {
					return user.User{}, errors.New("connection refused")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
		{
			name:           "missing fields",
			body:           `{"username": "alice"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "bad email",
			body:           `{"firstName":"A","lastName":"B","phoneNumber":"555","email":"nope","username":"alice","password":"pw123"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "invalid json",
			body:           `{`,
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeUserStore{}

			if tc.storeSetUp != nil {
				tc.storeSetUp(store)
			}

			h := handlers.NewAuthHandler(store, testHasher(), testTokens(), discardLogger())
			r := setupRouter(http.MethodPost, "/api/signup", h.SignUp)

			w := doJSON(t, r, http.MethodPost, "/api/signup", tc.body)

			if w.Code != tc.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tc.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestSignUpDoesNotCallStoreOnValidationError(t *testing.T) {
	called := false
	store := &fakeUserStore{
		createFn: func(ctx context.Context, req user.CreateRequest) (user.User, error) {
			called = true
			return user.User{}, nil
		},
	}

	h := handlers.NewAuthHandler(store, testHasher(), testTokens(), discardLogger())
	r := setupRouter(http.MethodPost, "/api/signup", h.SignUp)

	w := doJSON(t, r, http.MethodPost, "/api/signup", `{"username":"alice"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", w.Code)
	}

	if called {
		t.Fatal("store must not be touched when validation fails")
	}
}

func TestLoginHandler(t *testing.T) {
	hasher := testHasher()

	storedHash, err := hasher.Hash(context.Background(), "pw123")

	if err != nil {
		t.Fatalf("hash fixture: %v", err)
	}

	alice := user.User{
		ID:           uuid.NewString(),
		Username:     "alice",
		Email:        "a@b.com",
		PhoneNumber:  "555",
		PasswordHash: storedHash,
	}

	tests := []struct {
		name           string
		body           string
		storeSetUp     func(*fakeUserStore)
		wantStatusCode int
		wantMessage    string
	}{
		{
			name: "success",
			body: `{"identifier": "alice", "password": "pw123"}`,
			storeSetUp: func(f *fakeUserStore) {
				f.getByIdentifierFn = func(ctx context.Context, identifier string) (user.User, error) {
					return alice, nil
				}
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "unknown identifier",
			body:           `{"identifier": "nobody", "password": "pw123"}`,
			wantStatusCode: http.StatusBadRequest,
			wantMessage:    "Username does not exist",
		},
		{
			name: "wrong password",
			body: `{"identifier": "alice", "password": "pw124"}`,
			storeSetUp: func(f *fakeUserStore) {
				f.getByIdentifierFn = func(ctx context.Context, identifier string) (user.User, error) {
					return alice, nil
				}
			},
			wantStatusCode: http.StatusBadRequest,
			wantMessage:    "Wrong password",
		},
		{
			name: "malformed stored hash is internal",
			body: `{"identifier": "alice", "password": "pw123"}`,
			storeSetUp: func(f *fakeUserStore) {
				f.getByIdentifierFn = func(ctx context.Context, identifier string) (user.User, error) {
					broken := alice
					broken.PasswordHash = "not-a-bcrypt-hash"
					return broken, nil
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
		{
			name: "store failure",
			body: `{"identifier": "alice", "password": "pw123"}`,
			storeSetUp: func(f *fakeUserStore) {
				f.getByIdentifierFn = func(ctx context.Context, identifier string) (user.User, error) {
					return user.User{}, errors.New("connection refused")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
		{
			name:           "missing fields",
			body:           `{"identifier": "alice"}`,
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeUserStore{}

			if tc.storeSetUp != nil {
				tc.storeSetUp(store)
			}

			h := handlers.NewAuthHandler(store, hasher, testTokens(), discardLogger())
			r := setupRouter(http.MethodPost, "/api/login", h.Login)

			w := doJSON(t, r, http.MethodPost, "/api/login", tc.body)

			if w.Code != tc.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tc.wantStatusCode, w.Body.String())
			}

			if tc.wantStatusCode == http.StatusOK {
				var resp struct {
					Token    string `json:"token"`
					Username string `json:"username"`
				}

				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("unmarshal response: %v", err)
				}

				if resp.Token == "" {
					t.Error("login response missing token")
				}

				if resp.Username != "alice" {
					t.Errorf("got username %q, want alice", resp.Username)
				}

				claims, err := testTokens().Verify(resp.Token)

				if err != nil {
					t.Fatalf("issued token does not verify: %v", err)
				}

				if claims.UserID != alice.ID {
					t.Errorf("token bound to %q, want %q", claims.UserID, alice.ID)
				}
			}

			if tc.wantMessage != "" {
				var resp struct {
					Error struct {
						Message string `json:"message"`
					} `json:"error"`
				}

				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("unmarshal error response: %v", err)
				}

				if resp.Error.Message != tc.wantMessage {
					t.Errorf("got message %q, want %q", resp.Error.Message, tc.wantMessage)
				}
			}
		})
	}
}
