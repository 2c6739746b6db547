package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"igposter/pkg/errors"
)

// DefaultEndpoint is used when the request does not name a target endpoint
const DefaultEndpoint = "https://www.instagram.com"

// Credentials holds the account material used to authenticate a run.
// Either Password (web login flow) or SessionID (direct API session) must
// be present; both may be, in which case the session wins.
type Credentials struct {
	Username  string `json:"username"`
	Password  string `json:"password,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	CSRFToken string `json:"csrf_token,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// Request describes a single posting run, loaded once from request.json and
// held immutably until the process exits.
type Request struct {
	Credentials    Credentials `json:"credentials"`
	TargetEndpoint string      `json:"target_endpoint,omitempty"`
	Caption        string      `json:"caption"`
	CaptionTheme   string      `json:"caption_theme,omitempty"`
	ImagePath      string      `json:"image_path"`
}

// LoadRequest reads and validates the request file. Every failure here is a
// config error raised before any network activity.
func LoadRequest(path string) (*Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigError(fmt.Sprintf("cannot read request file %q", path), err)
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, errors.NewConfigError(fmt.Sprintf("malformed request file %q", path), err)
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.TargetEndpoint == "" {
		req.TargetEndpoint = DefaultEndpoint
	}

	return &req, nil
}

// Validate checks the required request fields
func (r *Request) Validate() error {
	var missing []string

	if strings.TrimSpace(r.Credentials.Username) == "" {
		missing = append(missing, "credentials.username")
	}
	if r.Credentials.Password == "" && r.Credentials.SessionID == "" {
		missing = append(missing, "credentials.password or credentials.session_id")
	}
	if strings.TrimSpace(r.ImagePath) == "" {
		missing = append(missing, "image_path")
	}

	if len(missing) > 0 {
		return errors.NewConfigError(
			fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", ")), nil)
	}

	if r.TargetEndpoint != "" {
		u, err := url.Parse(r.TargetEndpoint)
		if err != nil || u.Scheme != "https" || u.Host == "" {
			return errors.NewConfigError(
				fmt.Sprintf("target_endpoint %q must be an absolute https URL", r.TargetEndpoint), err)
		}
	}

	return nil
}

// ImageIsRemote reports whether the image must be fetched over HTTP before
// processing
func (r *Request) ImageIsRemote() bool {
	return strings.HasPrefix(r.ImagePath, "http://") || strings.HasPrefix(r.ImagePath, "https://")
}

// HasSession reports whether a direct API session can be used without a
// password login
func (r *Request) HasSession() bool {
	return r.Credentials.SessionID != ""
}
