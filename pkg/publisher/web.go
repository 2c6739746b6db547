package publisher

import (
	"context"

	"igposter/pkg/auth"
	"igposter/pkg/instagram"
	"igposter/pkg/logger"
)

// webPublisher performs the browser-style password login before
// submitting. It mirrors what a human session does: load the login page
// for a csrf token, authenticate, then upload and configure.
type webPublisher struct {
	client  *instagram.Client
	account *auth.Account
	log     logger.Logger
}

func newWebPublisher(client *instagram.Client, account *auth.Account, log logger.Logger) *webPublisher {
	return &webPublisher{
		client:  client,
		account: account,
		log:     log.WithField("publisher", ModeWeb),
	}
}

func (p *webPublisher) Name() string {
	return ModeWeb
}

func (p *webPublisher) Publish(ctx context.Context, post *Post) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	login, err := p.client.Login(p.account.Username, p.account.Password)
	if err != nil {
		return nil, err
	}

	p.log.InfoWithFields("logged in", map[string]interface{}{
		"username": p.account.Username,
		"user_id":  login.UserID,
	})

	return submit(p.client, post, p.Name())
}
