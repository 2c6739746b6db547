// Package publisher abstracts how a prepared post reaches the platform.
// Two implementations exist: one rides an existing API session, the
// other performs a fresh browser-style password login. Both submit the
// post exactly once.
package publisher

import (
	"context"
	"fmt"
	"time"

	"igposter/pkg/auth"
	"igposter/pkg/errors"
	"igposter/pkg/imageproc"
	"igposter/pkg/instagram"
	"igposter/pkg/logger"
)

// Publisher modes accepted by New
const (
	ModeAPI  = "api"
	ModeWeb  = "web"
	ModeAuto = "auto"
)

// Post is the fully prepared unit of work handed to a publisher
type Post struct {
	Image   *imageproc.Processed
	Caption string
}

// Result describes a successfully published post
type Result struct {
	MediaID     string
	Shortcode   string
	URL         string
	Publisher   string
	PublishedAt time.Time
}

// Publisher submits a prepared post to the platform
type Publisher interface {
	// Name identifies the publishing method
	Name() string
	// Publish authenticates as needed and submits the post once
	Publish(ctx context.Context, post *Post) (*Result, error)
}

// New builds a publisher for the requested mode. Auto prefers the API
// path when the account carries a session token and falls back to the
// web login otherwise.
func New(mode string, client *instagram.Client, account *auth.Account, log logger.Logger) (Publisher, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	switch mode {
	case ModeAPI:
		if !account.HasSession() {
			return nil, errors.NewConfigError("publisher mode api requires a session_id credential", nil)
		}
		return newAPIPublisher(client, account, log), nil
	case ModeWeb:
		if account.Password == "" {
			return nil, errors.NewConfigError("publisher mode web requires a password credential", nil)
		}
		return newWebPublisher(client, account, log), nil
	case ModeAuto, "":
		if account.HasSession() {
			return newAPIPublisher(client, account, log), nil
		}
		if account.Password == "" {
			return nil, errors.NewConfigError("account carries neither session_id nor password", nil)
		}
		return newWebPublisher(client, account, log), nil
	default:
		return nil, errors.NewConfigError(fmt.Sprintf("unknown publisher mode %q", mode), nil)
	}
}

// submit runs the shared upload-then-configure sequence. Callers have
// already established an authenticated session on the client.
func submit(client *instagram.Client, post *Post, name string) (*Result, error) {
	uploadID, err := client.UploadPhoto(post.Image.Data, post.Image.Width, post.Image.Height)
	if err != nil {
		return nil, err
	}

	configure, err := client.ConfigurePost(uploadID, post.Caption)
	if err != nil {
		return nil, err
	}

	return &Result{
		MediaID:     configure.Media.ID,
		Shortcode:   configure.Media.Code,
		URL:         configure.PostURL(client.BaseURL()),
		Publisher:   name,
		PublishedAt: time.Now(),
	}, nil
}
