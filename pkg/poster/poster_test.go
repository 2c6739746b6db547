package poster

import (
	"context"
	"encoding/json"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igposter/pkg/auth"
	"igposter/pkg/config"
	"igposter/pkg/errors"
	"igposter/pkg/instagram"
	"igposter/pkg/logger"
)

// stubStore serves one stored account
type stubStore struct {
	username  string
	sessionID string
	csrfToken string
}

func (s stubStore) Retrieve(username string) (*auth.Account, error) {
	if username != s.username {
		return nil, auth.ErrCredentialsNotFound
	}
	return &auth.Account{
		Username:  s.username,
		SessionID: s.sessionID,
		CSRFToken: s.csrfToken,
	}, nil
}

// platformStub fakes the web surface and counts every request it sees
type platformStub struct {
	server        *httptest.Server
	totalCalls    int32
	loginCalls    int32
	verifyCalls   int32
	uploadCalls   int32
	configCalls   int32
	rejectSession bool
	rejectLogin   bool
	failConfigure bool
}

func newPlatformStub(t *testing.T) *platformStub {
	t.Helper()
	stub := &platformStub{}

	mux := http.NewServeMux()
	mux.HandleFunc(instagram.LoginPageEndpoint, func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "csrf1", Path: "/"})
	})
	mux.HandleFunc(instagram.LoginEndpoint, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&stub.loginCalls, 1)
		if stub.rejectLogin {
			json.NewEncoder(w).Encode(instagram.LoginResponse{User: true, Status: "ok"})
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "sess1", Path: "/"})
		json.NewEncoder(w).Encode(instagram.LoginResponse{
			User: true, UserID: "42", Authenticated: true, Status: "ok",
		})
	})
	mux.HandleFunc(instagram.CurrentUserEndpoint, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&stub.verifyCalls, 1)
		if stub.rejectSession {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var resp instagram.CurrentUserResponse
		resp.User.PK = 42
		resp.User.Username = "someone"
		resp.Status = "ok"
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc(instagram.UploadEndpoint, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&stub.uploadCalls, 1)
		json.NewEncoder(w).Encode(instagram.UploadResponse{UploadID: "up1", Status: "ok"})
	})
	mux.HandleFunc(instagram.ConfigureEndpoint, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&stub.configCalls, 1)
		if stub.failConfigure {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var resp instagram.ConfigureResponse
		resp.Media.ID = "999"
		resp.Media.Code = "Cabc"
		resp.Status = "ok"
		json.NewEncoder(w).Encode(resp)
	})

	stub.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&stub.totalCalls, 1)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(stub.server.Close)

	return stub
}

func (s *platformStub) total() int32 {
	return atomic.LoadInt32(&s.totalCalls)
}

func testPoster(t *testing.T) *Poster {
	t.Helper()
	p := New(config.DefaultConfig(), logger.NewTestLogger())
	p.store = nil
	return p
}

func writeTestImage(t *testing.T) string {
	t.Helper()
	img := imaging.New(640, 640, color.NRGBA{R: 10, G: 120, B: 80, A: 255})
	path := filepath.Join(t.TempDir(), "post.jpg")
	require.NoError(t, imaging.Save(img, path))
	return path
}

func sessionRequest(stub *platformStub, imagePath string) *config.Request {
	return &config.Request{
		Credentials: config.Credentials{
			Username:  "someone",
			SessionID: "sess1",
			CSRFToken: "csrf1",
		},
		TargetEndpoint: stub.server.URL,
		Caption:        "a brand new morning in the mountains",
		ImagePath:      imagePath,
	}
}

func TestRunRejectsMissingRequestFile(t *testing.T) {
	stub := newPlatformStub(t)
	p := testPoster(t)

	_, err := p.Run(context.Background(), filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Equal(t, errors.CategoryConfig, errors.CategoryOf(err))
	assert.Equal(t, 2, errors.ExitCode(err))
	assert.Equal(t, int32(0), stub.total())
}

func TestRunRejectsIncompleteRequest(t *testing.T) {
	stub := newPlatformStub(t)
	p := testPoster(t)

	path := filepath.Join(t.TempDir(), "request.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"caption": "no creds"}`), 0o644))

	_, err := p.Run(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, errors.CategoryConfig, errors.CategoryOf(err))
	assert.Equal(t, int32(0), stub.total())
}

func TestRunRequestRejectsMalformedUsername(t *testing.T) {
	stub := newPlatformStub(t)
	p := testPoster(t)

	req := sessionRequest(stub, writeTestImage(t))
	req.Credentials.Username = "has spaces!"

	_, err := p.RunRequest(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, errors.CategoryConfig, errors.CategoryOf(err))
	assert.Equal(t, int32(0), stub.total())
}

func TestRunRequestMissingImageMakesNoNetworkCall(t *testing.T) {
	stub := newPlatformStub(t)
	p := testPoster(t)

	req := sessionRequest(stub, filepath.Join(t.TempDir(), "absent.jpg"))
	_, err := p.RunRequest(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, errors.CategoryImage, errors.CategoryOf(err))
	assert.Equal(t, 3, errors.ExitCode(err))
	assert.Equal(t, int32(0), stub.total())
}

func TestRunRequestAuthFailureStopsBeforeSubmission(t *testing.T) {
	stub := newPlatformStub(t)
	stub.rejectSession = true
	p := testPoster(t)

	_, err := p.RunRequest(context.Background(), sessionRequest(stub, writeTestImage(t)))
	require.Error(t, err)
	assert.Equal(t, errors.CategoryAuth, errors.CategoryOf(err))
	assert.Equal(t, 4, errors.ExitCode(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(&stub.uploadCalls))
	assert.Equal(t, int32(0), atomic.LoadInt32(&stub.configCalls))
}

func TestRunRequestPostFailureIsSingleAttempt(t *testing.T) {
	stub := newPlatformStub(t)
	stub.failConfigure = true
	p := testPoster(t)

	_, err := p.RunRequest(context.Background(), sessionRequest(stub, writeTestImage(t)))
	require.Error(t, err)
	assert.Equal(t, errors.CategoryPost, errors.CategoryOf(err))
	assert.Equal(t, 5, errors.ExitCode(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.uploadCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.configCalls))
}

func TestRunRequestHappyPathWithSession(t *testing.T) {
	stub := newPlatformStub(t)
	p := testPoster(t)
	imagePath := writeTestImage(t)

	outcome, err := p.RunRequest(context.Background(), sessionRequest(stub, imagePath))
	require.NoError(t, err)

	assert.Equal(t, "999", outcome.Result.MediaID)
	assert.Equal(t, "api", outcome.Result.Publisher)
	assert.Contains(t, outcome.Caption, "brand new morning")
	assert.Contains(t, outcome.Caption, "#")

	// Processed copy saved next to the source
	assert.Equal(t, filepath.Join(filepath.Dir(imagePath), "post_processed.jpg"), outcome.OutputPath)
	_, statErr := os.Stat(outcome.OutputPath)
	assert.NoError(t, statErr)

	assert.Equal(t, int32(0), atomic.LoadInt32(&stub.loginCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.verifyCalls))
}

func TestRunRequestHappyPathWithPassword(t *testing.T) {
	stub := newPlatformStub(t)
	p := testPoster(t)

	req := sessionRequest(stub, writeTestImage(t))
	req.Credentials.SessionID = ""
	req.Credentials.CSRFToken = ""
	req.Credentials.Password = "hunter2"

	outcome, err := p.RunRequest(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "web", outcome.Result.Publisher)
	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.loginCalls))
	assert.Equal(t, int32(0), atomic.LoadInt32(&stub.verifyCalls))
}

func TestRunRequestLoginFailure(t *testing.T) {
	stub := newPlatformStub(t)
	stub.rejectLogin = true
	p := testPoster(t)

	req := sessionRequest(stub, writeTestImage(t))
	req.Credentials.SessionID = ""
	req.Credentials.Password = "wrong"

	_, err := p.RunRequest(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, errors.CategoryAuth, errors.CategoryOf(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(&stub.uploadCalls))
}

func TestRunRequestEmptyCaptionUsesThemedFallback(t *testing.T) {
	stub := newPlatformStub(t)
	p := testPoster(t)

	req := sessionRequest(stub, writeTestImage(t))
	req.Caption = ""
	req.CaptionTheme = "motivation"

	outcome, err := p.RunRequest(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, outcome.Caption, "strength to overcome")
}

func TestRunRequestRemoteImage(t *testing.T) {
	stub := newPlatformStub(t)
	p := testPoster(t)

	img := imaging.New(640, 640, color.NRGBA{R: 200, G: 20, B: 20, A: 255})
	imageServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, imaging.Encode(w, img, imaging.JPEG))
	}))
	t.Cleanup(imageServer.Close)

	req := sessionRequest(stub, imageServer.URL+"/remote.jpg")

	// Keep the saved copy inside the test directory
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })

	outcome, err := p.RunRequest(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "999", outcome.Result.MediaID)
	assert.Equal(t, "remote_processed.jpg", outcome.OutputPath)
}

func TestRunRequestStoredSessionAdopted(t *testing.T) {
	stub := newPlatformStub(t)
	p := testPoster(t)
	p.store = stubStore{username: "someone", sessionID: "sess1", csrfToken: "csrf1"}

	req := sessionRequest(stub, writeTestImage(t))
	req.Credentials.SessionID = ""
	req.Credentials.CSRFToken = ""
	req.Credentials.Password = "hunter2"

	outcome, err := p.RunRequest(context.Background(), req)
	require.NoError(t, err)

	// The stored session wins over a fresh password login
	assert.Equal(t, "api", outcome.Result.Publisher)
	assert.Equal(t, int32(0), atomic.LoadInt32(&stub.loginCalls))
}
