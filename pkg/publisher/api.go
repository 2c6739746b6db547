package publisher

import (
	"context"

	"igposter/pkg/auth"
	"igposter/pkg/instagram"
	"igposter/pkg/logger"
)

// apiPublisher rides an existing session token. It verifies the session
// before touching the submission endpoints so a dead session surfaces as
// an authentication failure, not a failed post.
type apiPublisher struct {
	client  *instagram.Client
	account *auth.Account
	log     logger.Logger
}

func newAPIPublisher(client *instagram.Client, account *auth.Account, log logger.Logger) *apiPublisher {
	return &apiPublisher{
		client:  client,
		account: account,
		log:     log.WithField("publisher", ModeAPI),
	}
}

func (p *apiPublisher) Name() string {
	return ModeAPI
}

func (p *apiPublisher) Publish(ctx context.Context, post *Post) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.client.SetSession(p.account.SessionID, p.account.CSRFToken)

	user, err := p.client.VerifySession()
	if err != nil {
		return nil, err
	}

	p.log.InfoWithFields("session verified", map[string]interface{}{
		"username": user.User.Username,
	})

	return submit(p.client, post, p.Name())
}
