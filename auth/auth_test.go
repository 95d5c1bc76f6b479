package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nijaru/yt-blog/config"
	"github.com/nijaru/yt-blog/errors"
	"github.com/nijaru/yt-blog/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memoryUsers struct {
	mu     sync.Mutex
	byID   map[int64]*models.User
	nextID int64
	err    error
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byID: map[int64]*models.User{}}
}

func (m *memoryUsers) Create(ctx context.Context, user *models.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	for _, u := range m.byID {
		if u.Username == user.Username {
			return 0, errors.Conflict("memoryUsers.Create", nil, "Username already taken")
		}
	}
	m.nextID++
	user.ID = m.nextID
	stored := *user
	m.byID[user.ID] = &stored
	return user.ID, nil
}

func (m *memoryUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, errors.NotFound("memoryUsers.GetByUsername", nil, "User not found")
}

func (m *memoryUsers) Get(ctx context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, errors.NotFound("memoryUsers.Get", nil, "User not found")
	}
	copied := *u
	return &copied, nil
}

func (m *memoryUsers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

func testService(users *memoryUsers) *Service {
	return newService(users, nil, bcrypt.MinCost)
}

func testSessionConfig() config.SessionConfig {
	return config.SessionConfig{
		Secret:     "0123456789abcdef0123456789abcdef",
		CookieName: "yt_blog_session",
		TTL:        time.Hour,
	}
}

func TestSignup(t *testing.T) {
	users := newMemoryUsers()
	svc := testService(users)

	user, err := svc.Signup(context.Background(), SignupForm{
		Username: "alice", Email: "alice@example.com",
		Password: "s3cret", RepeatPassword: "s3cret",
	})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.NotEqual(t, "s3cret", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret")))
}

func TestSignupPasswordMismatch(t *testing.T) {
	users := newMemoryUsers()
	svc := testService(users)

	_, err := svc.Signup(context.Background(), SignupForm{
		Username: "alice", Password: "one", RepeatPassword: "two",
	})

	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindInvalidInput, appErr.Kind)
	assert.Equal(t, "Password do not match", appErr.Message)
	assert.Equal(t, 0, users.count(), "no user may be created")
}

func TestSignupDuplicate(t *testing.T) {
	users := newMemoryUsers()
	svc := testService(users)
	form := SignupForm{Username: "alice", Password: "pw", RepeatPassword: "pw"}

	_, err := svc.Signup(context.Background(), form)
	require.NoError(t, err)

	_, err = svc.Signup(context.Background(), form)
	require.Error(t, err)
	appErr, _ := errors.As(err)
	assert.Equal(t, "Error creating account", appErr.Message)
	assert.True(t, errors.IsConflict(err))
}

func TestSignupStoreFailure(t *testing.T) {
	users := newMemoryUsers()
	users.err = fmt.Errorf("disk full")
	svc := testService(users)

	_, err := svc.Signup(context.Background(), SignupForm{Username: "alice", Password: "pw", RepeatPassword: "pw"})
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, "Error creating account", appErr.Message)
	assert.Equal(t, errors.KindInternal, appErr.Kind)
}

func TestSignupInvalidUsername(t *testing.T) {
	svc := testService(newMemoryUsers())

	_, err := svc.Signup(context.Background(), SignupForm{Username: "bad name", Password: "pw", RepeatPassword: "pw"})
	assert.True(t, errors.IsInvalidInput(err))
}

func TestAuthenticate(t *testing.T) {
	users := newMemoryUsers()
	svc := testService(users)
	_, err := svc.Signup(context.Background(), SignupForm{Username: "alice", Password: "pw", RepeatPassword: "pw"})
	require.NoError(t, err)

	user, err := svc.Authenticate(context.Background(), "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	for _, tc := range []struct{ username, password string }{
		{"alice", "wrong"},
		{"nobody", "pw"},
	} {
		_, err := svc.Authenticate(context.Background(), tc.username, tc.password)
		appErr, ok := errors.As(err)
		require.True(t, ok)
		assert.Equal(t, errors.KindUnauthenticated, appErr.Kind)
		assert.Equal(t, "Invalid username or password", appErr.Message)
	}
}

func TestSessionsRoundTrip(t *testing.T) {
	users := newMemoryUsers()
	user := &models.User{Username: "alice"}
	_, err := users.Create(context.Background(), user)
	require.NoError(t, err)

	sessions := NewSessions(testSessionConfig(), users, nil)

	rr := httptest.NewRecorder()
	require.NoError(t, sessions.Issue(rr, user))

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, "yt_blog_session", cookies[0].Name)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])

	principal, err := sessions.CurrentPrincipal(req)
	require.NoError(t, err)
	require.NotNil(t, principal)
	assert.Equal(t, user.ID, principal.ID)
}

func TestSessionsRejectsBadTokens(t *testing.T) {
	users := newMemoryUsers()
	user := &models.User{Username: "alice"}
	_, _ = users.Create(context.Background(), user)

	sessions := NewSessions(testSessionConfig(), users, nil)
	rr := httptest.NewRecorder()
	require.NoError(t, sessions.Issue(rr, user))
	valid := rr.Result().Cookies()[0].Value

	otherCfg := testSessionConfig()
	otherCfg.Secret = "another-secret-another-secret-xx"
	rr = httptest.NewRecorder()
	require.NoError(t, NewSessions(otherCfg, users, nil).Issue(rr, user))
	forged := rr.Result().Cookies()[0].Value

	expired := NewSessions(testSessionConfig(), users, nil)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	rr = httptest.NewRecorder()
	require.NoError(t, expired.Issue(rr, user))
	stale := rr.Result().Cookies()[0].Value

	tests := []struct {
		name  string
		value string
	}{
		{"garbage", "not-a-jwt"},
		{"wrong secret", forged},
		{"expired", stale},
		{"tampered", valid[:len(valid)-2] + "xx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(&http.Cookie{Name: "yt_blog_session", Value: tt.value})

			principal, err := sessions.CurrentPrincipal(req)
			assert.NoError(t, err)
			assert.Nil(t, principal)
		})
	}
}

func TestSessionsNoCookie(t *testing.T) {
	sessions := NewSessions(testSessionConfig(), newMemoryUsers(), nil)

	principal, err := sessions.CurrentPrincipal(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NoError(t, err)
	assert.Nil(t, principal)
}

func TestSessionsClear(t *testing.T) {
	sessions := NewSessions(testSessionConfig(), newMemoryUsers(), nil)

	rr := httptest.NewRecorder()
	sessions.Clear(rr)

	cookie := rr.Result().Cookies()[0]
	assert.Equal(t, "yt_blog_session", cookie.Name)
	assert.True(t, cookie.MaxAge < 0)
}

func TestRequireLogin(t *testing.T) {
	users := newMemoryUsers()
	user := &models.User{Username: "alice"}
	_, _ = users.Create(context.Background(), user)
	sessions := NewSessions(testSessionConfig(), users, nil)
	mw := NewMiddleware(sessions, nil)

	var seen *models.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	mw.RequireLogin(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/blog-list", nil))
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))

	rr = httptest.NewRecorder()
	mw.RequireLogin(next).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/generate-blog", nil))
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
	assert.Nil(t, seen)

	issued := httptest.NewRecorder()
	require.NoError(t, sessions.Issue(issued, user))
	req := httptest.NewRequest(http.MethodGet, "/blog-list", nil)
	req.AddCookie(issued.Result().Cookies()[0])

	rr = httptest.NewRecorder()
	mw.RequireLogin(next).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, seen)
	assert.Equal(t, user.ID, seen.ID)
}

func TestRequireLoginStoreError(t *testing.T) {
	users := newMemoryUsers()
	user := &models.User{Username: "alice"}
	_, _ = users.Create(context.Background(), user)
	sessions := NewSessions(testSessionConfig(), users, nil)

	issued := httptest.NewRecorder()
	require.NoError(t, sessions.Issue(issued, user))
	users.err = fmt.Errorf("db down")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(issued.Result().Cookies()[0])
	rr := httptest.NewRecorder()
	NewMiddleware(sessions, nil).RequireLogin(http.NotFoundHandler()).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestPrincipalFromContextEmpty(t *testing.T) {
	assert.Nil(t, PrincipalFromContext(context.Background()))
}
