package cli

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/dmitrijs2005/shelfsync/internal/client/client"
	"github.com/dmitrijs2005/shelfsync/internal/client/config"
	"github.com/dmitrijs2005/shelfsync/internal/client/services"
	"github.com/dmitrijs2005/shelfsync/internal/logging"
	"github.com/dmitrijs2005/shelfsync/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubSecret(t *testing.T, secret []byte, err error) {
	t.Helper()
	orig := getSecret
	getSecret = func(_ io.Writer, _ string) ([]byte, error) { return secret, err }
	t.Cleanup(func() { getSecret = orig })
}

type fakeAuth struct {
	loginToken string
	loginUser  string
	loginErr   error

	resumeUser string
	resumeErr  error

	logoutCalled bool
	logoutErr    error

	pingErr error
}

func (f *fakeAuth) Login(_ context.Context, token string) (string, error) {
	f.loginToken = token
	return f.loginUser, f.loginErr
}
func (f *fakeAuth) Resume(context.Context) (string, error) { return f.resumeUser, f.resumeErr }
func (f *fakeAuth) Logout(context.Context) error {
	f.logoutCalled = true
	return f.logoutErr
}
func (f *fakeAuth) Ping(context.Context) error  { return f.pingErr }
func (f *fakeAuth) Close(context.Context) error { return nil }

type fakeSync struct {
	user        string
	hydration   services.Hydration
	signInErr   error
	signOutErr  error
	refreshErr  error
	persistErr  error
	rows        map[string][]record.Row
	signIns     []string
	signOuts    int
	refreshes   int
	persists    int
	lastQuery   string
	runStarted  chan struct{}
	runFinished chan struct{}
}

func (f *fakeSync) CurrentUser() string { return f.user }
func (f *fakeSync) Collections() []string {
	return []string{"listings", "images"}
}
func (f *fakeSync) SignIn(_ context.Context, userID string) (services.Hydration, error) {
	f.signIns = append(f.signIns, userID)
	if f.signInErr != nil {
		return services.Hydration{}, f.signInErr
	}
	f.user = userID
	return f.hydration, nil
}
func (f *fakeSync) SignOut(context.Context) error {
	f.signOuts++
	if f.signOutErr != nil {
		return f.signOutErr
	}
	f.user = ""
	return nil
}
func (f *fakeSync) Refresh(context.Context) error { f.refreshes++; return f.refreshErr }
func (f *fakeSync) Persist(context.Context) error { f.persists++; return f.persistErr }
func (f *fakeSync) Run(ctx context.Context, _ time.Duration) {
	if f.runStarted != nil {
		close(f.runStarted)
	}
	<-ctx.Done()
	if f.runFinished != nil {
		close(f.runFinished)
	}
}
func (f *fakeSync) Wait() {}
func (f *fakeSync) Rows(name string) ([]record.Row, error) {
	rows, ok := f.rows[name]
	if !ok {
		return nil, errors.New("unknown collection: " + name)
	}
	return rows, nil
}
func (f *fakeSync) Search(name, query string) ([]record.Row, error) {
	f.lastQuery = query
	return f.Rows(name)
}

func newTestApp(fa *fakeAuth, fs *fakeSync) *App {
	return &App{
		config:      &config.Config{},
		authService: fa,
		syncService: fs,
		logger:      logging.Nop{},
	}
}

func TestLogin_SignsInResolvedUser(t *testing.T) {
	silencePrintln(t)
	stubSecret(t, []byte("tok"), nil)

	fa := &fakeAuth{loginUser: "u1"}
	fs := &fakeSync{}
	a := newTestApp(fa, fs)

	require.NoError(t, a.Login(context.Background()))
	assert.Equal(t, "tok", fa.loginToken)
	assert.Equal(t, []string{"u1"}, fs.signIns)
	assert.Equal(t, ModeOnline, a.currentMode())
	assert.True(t, a.isLoggedIn())
}

func TestLogin_SwitchUserSignsOutFirst(t *testing.T) {
	silencePrintln(t)
	stubSecret(t, []byte("tok2"), nil)

	fs := &fakeSync{user: "u1"}
	a := newTestApp(&fakeAuth{loginUser: "u2"}, fs)

	require.NoError(t, a.Login(context.Background()))
	assert.Equal(t, 1, fs.signOuts)
	assert.Equal(t, "u2", fs.user)
}

func TestLogin_SameUserKeepsReplica(t *testing.T) {
	silencePrintln(t)
	stubSecret(t, []byte("tok"), nil)

	fs := &fakeSync{user: "u1"}
	a := newTestApp(&fakeAuth{loginUser: "u1"}, fs)

	require.NoError(t, a.Login(context.Background()))
	assert.Zero(t, fs.signOuts)
}

func TestLogin_UnavailableGoesOffline(t *testing.T) {
	out := silencePrintln(t)
	stubSecret(t, []byte("tok"), nil)

	fs := &fakeSync{user: "u1"}
	a := newTestApp(&fakeAuth{loginErr: client.ErrUnavailable}, fs)

	err := a.Login(context.Background())
	require.ErrorIs(t, err, client.ErrUnavailable)
	assert.Equal(t, ModeOffline, a.currentMode())
	assert.Equal(t, "u1", fs.user, "session kept")
	assert.Contains(t, (*out)[0], "Login unsuccessful")
}

func TestLogin_EmptyTokenIsIgnored(t *testing.T) {
	silencePrintln(t)
	stubSecret(t, []byte{}, nil)

	fa := &fakeAuth{loginUser: "u1"}
	fs := &fakeSync{}
	a := newTestApp(fa, fs)

	require.NoError(t, a.Login(context.Background()))
	assert.Empty(t, fa.loginToken)
	assert.Empty(t, fs.signIns)
}

func TestLogin_PromptError(t *testing.T) {
	stubSecret(t, nil, errors.New("no tty"))
	a := newTestApp(&fakeAuth{}, &fakeSync{})
	require.Error(t, a.Login(context.Background()))
}

func TestLogin_ReportsFailedCollections(t *testing.T) {
	out := silencePrintln(t)
	stubSecret(t, []byte("tok"), nil)

	fs := &fakeSync{hydration: services.Hydration{Failed: []string{"images"}}}
	a := newTestApp(&fakeAuth{loginUser: "u1"}, fs)

	require.NoError(t, a.Login(context.Background()))
	assert.Contains(t, *out, "Could not load: images")
}

func TestResume(t *testing.T) {
	out := silencePrintln(t)

	fs := &fakeSync{hydration: services.Hydration{FromSnapshot: true, Stale: true}}
	a := newTestApp(&fakeAuth{resumeUser: "u1"}, fs)

	a.resume(context.Background())
	assert.Equal(t, []string{"u1"}, fs.signIns)
	assert.Contains(t, *out, "Signed in as u1 (cached data, refreshing)")
}

func TestResume_NoSession(t *testing.T) {
	silencePrintln(t)

	fs := &fakeSync{}
	a := newTestApp(&fakeAuth{resumeErr: services.ErrNoSession}, fs)

	a.resume(context.Background())
	assert.Empty(t, fs.signIns)
}

func TestLogout(t *testing.T) {
	silencePrintln(t)

	fa := &fakeAuth{}
	fs := &fakeSync{user: "u1"}
	a := newTestApp(fa, fs)

	require.NoError(t, a.Logout(context.Background()))
	assert.Equal(t, 1, fs.signOuts)
	assert.True(t, fa.logoutCalled)
	assert.False(t, a.isLoggedIn())
}

func TestLogout_SignOutErrorKeepsSession(t *testing.T) {
	silencePrintln(t)

	fa := &fakeAuth{}
	a := newTestApp(fa, &fakeSync{user: "u1", signOutErr: errors.New("disk")})

	require.Error(t, a.Logout(context.Background()))
	assert.False(t, fa.logoutCalled)
}

func TestSignIn_StartsAndStopsRevalidation(t *testing.T) {
	silencePrintln(t)

	fs := &fakeSync{runStarted: make(chan struct{}), runFinished: make(chan struct{})}
	a := newTestApp(&fakeAuth{}, fs)
	a.config.RevalidateInterval = time.Minute

	require.NoError(t, a.signIn(context.Background(), "u1"))
	<-fs.runStarted

	a.stopRevalidation()
	select {
	case <-fs.runFinished:
	default:
		t.Fatal("Run still active after stopRevalidation")
	}
}
