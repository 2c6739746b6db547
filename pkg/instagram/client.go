// Package instagram implements the web client used to authenticate and
// publish a photo post. It speaks the same endpoints a browser session
// does: AJAX login, resumable photo upload, then media configure.
package instagram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"igposter/pkg/config"
	"igposter/pkg/errors"
	"igposter/pkg/logger"
	"igposter/pkg/ratelimit"
)

// Client is an Instagram web API client
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	csrfToken  string
	limiter    ratelimit.Limiter
	logger     logger.Logger

	// now is swappable for deterministic tests
	now func() time.Time
}

// NewClient creates a client for the given base URL. The limiter, when
// present, paces every platform call; it never causes a second attempt.
func NewClient(cfg *config.HTTPConfig, baseURL string, limiter ratelimit.Limiter, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if baseURL == "" {
		baseURL = BaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	jar, _ := cookiejar.New(nil)

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Jar:     jar,
		},
		headers: map[string]string{
			"User-Agent":       cfg.UserAgent,
			"Accept":           "*/*",
			"Accept-Language":  "en-US,en;q=0.9",
			"X-IG-App-ID":      AppID,
			"X-Requested-With": "XMLHttpRequest",
			"Referer":          baseURL + "/",
			"Origin":           baseURL,
		},
		baseURL: baseURL,
		limiter: limiter,
		logger:  log,
		now:     time.Now,
	}
}

// BaseURL returns the base URL the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetSession installs an existing sessionid and csrftoken on the client
func (c *Client) SetSession(sessionID, csrfToken string) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return
	}

	cookies := []*http.Cookie{
		{Name: "sessionid", Value: sessionID, Path: "/"},
	}
	if csrfToken != "" {
		cookies = append(cookies, &http.Cookie{Name: "csrftoken", Value: csrfToken, Path: "/"})
		c.csrfToken = csrfToken
	}
	c.httpClient.Jar.SetCookies(u, cookies)
}

// FetchCSRFToken loads the login page so the server issues a csrftoken
// cookie, and returns that token.
func (c *Client) FetchCSRFToken() (string, error) {
	resp, err := c.doRequest(http.MethodGet, LoginPageURL(c.baseURL), "", nil)
	if err != nil {
		return "", errors.NewAuthError("cannot reach login page", 0)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", errors.NewAuthError(
			fmt.Sprintf("login page returned status %d", resp.StatusCode), resp.StatusCode)
	}

	token := c.cookieValue("csrftoken")
	if token == "" {
		return "", errors.NewAuthError("no csrftoken cookie issued", resp.StatusCode)
	}

	c.csrfToken = token
	return token, nil
}

// Login authenticates with username and password via the AJAX endpoint.
// The session cookies land in the client's jar on success.
func (c *Client) Login(username, password string) (*LoginResponse, error) {
	if c.csrfToken == "" {
		if _, err := c.FetchCSRFToken(); err != nil {
			return nil, err
		}
	}

	form := url.Values{}
	form.Set("username", username)
	form.Set("enc_password", EncodePassword(password, c.now().Unix()))
	form.Set("queryParams", "{}")
	form.Set("optIntoOneTap", "false")

	c.logger.InfoWithFields("logging in", map[string]interface{}{
		"username": username,
	})

	resp, err := c.doRequest(http.MethodPost, LoginURL(c.baseURL),
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.NewAuthError("login request failed", 0)
	}
	defer resp.Body.Close()

	var login LoginResponse
	if err := decodeJSON(resp.Body, &login); err != nil {
		return nil, errors.NewAuthError(
			fmt.Sprintf("unreadable login response (status %d)", resp.StatusCode), resp.StatusCode)
	}

	switch {
	case login.TwoFactorRequired:
		return nil, errors.NewAuthError("two-factor authentication required", resp.StatusCode)
	case login.CheckpointURL != "":
		return nil, errors.NewAuthError("account checkpoint required", resp.StatusCode)
	case !login.Authenticated:
		if login.User {
			return nil, errors.NewAuthError("wrong password", resp.StatusCode)
		}
		return nil, errors.NewAuthError("unknown username", resp.StatusCode)
	}

	if token := c.cookieValue("csrftoken"); token != "" {
		c.csrfToken = token
	}

	c.logger.InfoWithFields("login succeeded", map[string]interface{}{
		"username": username,
		"user_id":  login.UserID,
	})

	return &login, nil
}

// VerifySession checks that the installed session still identifies a user
func (c *Client) VerifySession() (*CurrentUserResponse, error) {
	resp, err := c.doRequest(http.MethodGet, CurrentUserURL(c.baseURL), "", nil)
	if err != nil {
		return nil, errors.NewAuthError("session check request failed", 0)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, errors.NewAuthError("session expired or invalid", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewAuthError(
			fmt.Sprintf("session check returned status %d", resp.StatusCode), resp.StatusCode)
	}

	var user CurrentUserResponse
	if err := decodeJSON(resp.Body, &user); err != nil {
		return nil, errors.NewAuthError("unreadable session check response", resp.StatusCode)
	}
	if user.User.Username == "" {
		return nil, errors.NewAuthError("session identifies no user", resp.StatusCode)
	}

	return &user, nil
}

// UploadPhoto uploads JPEG bytes and returns the upload ID needed by
// ConfigurePost. The upload happens exactly once.
func (c *Client) UploadPhoto(data []byte, width, height int) (string, error) {
	uploadID := strconv.FormatInt(c.now().UnixMilli(), 10)
	entityName := fmt.Sprintf("fb_uploader_%s", uploadID)

	params, _ := json.Marshal(map[string]interface{}{
		"media_type":          1,
		"upload_id":           uploadID,
		"upload_media_width":  width,
		"upload_media_height": height,
		"xsharing_user_ids":   []string{},
		"image_compression":   `{"lib_name":"moz","lib_version":"3.1.m","quality":"85"}`,
	})

	req, err := http.NewRequest(http.MethodPost, UploadURL(c.baseURL, entityName), bytes.NewReader(data))
	if err != nil {
		return "", errors.NewPostError("cannot build upload request", 0)
	}
	c.applyHeaders(req)
	req.Header.Set("Content-Type", "image/jpeg")
	req.Header.Set("X-Instagram-Rupload-Params", string(params))
	req.Header.Set("X-Entity-Name", entityName)
	req.Header.Set("X-Entity-Type", "image/jpeg")
	req.Header.Set("X-Entity-Length", strconv.Itoa(len(data)))
	req.Header.Set("Offset", "0")

	c.logger.InfoWithFields("uploading photo", map[string]interface{}{
		"upload_id": uploadID,
		"bytes":     len(data),
	})

	resp, err := c.send(req)
	if err != nil {
		return "", errors.NewPostError("photo upload request failed", 0)
	}
	defer resp.Body.Close()

	if err := c.checkPostStatus("photo upload", resp.StatusCode); err != nil {
		return "", err
	}

	var upload UploadResponse
	if err := decodeJSON(resp.Body, &upload); err != nil {
		return "", errors.NewPostError("unreadable upload response", resp.StatusCode)
	}
	if upload.Status != "ok" {
		return "", errors.NewPostError(
			fmt.Sprintf("upload rejected: %s", responseDetail(upload.Status, upload.Message)), resp.StatusCode)
	}
	if upload.UploadID != "" {
		uploadID = upload.UploadID
	}

	return uploadID, nil
}

// ConfigurePost attaches the uploaded photo to a new feed post with the
// given caption. This is the single submission attempt.
func (c *Client) ConfigurePost(uploadID, caption string) (*ConfigureResponse, error) {
	form := url.Values{}
	form.Set("upload_id", uploadID)
	form.Set("caption", TruncateCaption(caption))
	form.Set("source_type", "library")
	form.Set("disable_comments", "0")

	c.logger.InfoWithFields("configuring post", map[string]interface{}{
		"upload_id":   uploadID,
		"caption_len": len(caption),
	})

	resp, err := c.doRequest(http.MethodPost, ConfigureURL(c.baseURL),
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.NewPostError("configure request failed", 0)
	}
	defer resp.Body.Close()

	if err := c.checkPostStatus("configure", resp.StatusCode); err != nil {
		return nil, err
	}

	var configure ConfigureResponse
	if err := decodeJSON(resp.Body, &configure); err != nil {
		return nil, errors.NewPostError("unreadable configure response", resp.StatusCode)
	}
	if configure.Status != "ok" {
		return nil, errors.NewPostError(
			fmt.Sprintf("configure rejected: %s", responseDetail(configure.Status, configure.Message)), resp.StatusCode)
	}

	c.logger.InfoWithFields("post configured", map[string]interface{}{
		"media_id":  configure.Media.ID,
		"shortcode": configure.Media.Code,
	})

	return &configure, nil
}

// doRequest builds and sends a request with the standard headers
func (c *Client) doRequest(method, rawURL, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequest(method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.applyHeaders(req)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.send(req)
}

// send paces, sends and logs a single request
func (c *Client) send(req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		c.limiter.Wait()
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, err
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

func (c *Client) applyHeaders(req *http.Request) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if c.csrfToken != "" {
		req.Header.Set("X-CSRFToken", c.csrfToken)
	}
}

// checkPostStatus maps an HTTP status from the submission path to the
// right error category. 401 and 403 mean the session died mid-flight.
func (c *Client) checkPostStatus(operation string, status int) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errors.NewAuthError(
			fmt.Sprintf("%s rejected: not authenticated", operation), status)
	case status == http.StatusTooManyRequests:
		return errors.NewPostError(
			fmt.Sprintf("%s throttled by the platform", operation), status)
	default:
		return errors.NewPostError(
			fmt.Sprintf("%s returned status %d", operation, status), status)
	}
}

func (c *Client) cookieValue(name string) string {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return ""
	}
	for _, cookie := range c.httpClient.Jar.Cookies(u) {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}

func decodeJSON(r io.Reader, target interface{}) error {
	body, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("parse JSON: %w", err)
	}
	return nil
}

func responseDetail(status, message string) string {
	if message != "" {
		return message
	}
	if status != "" {
		return status
	}
	return "no detail"
}
