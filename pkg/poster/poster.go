// Package poster orchestrates one posting run end to end: load the
// request, prepare the image, resolve credentials, publish once, and
// keep the processed bytes on disk for inspection.
package poster

import (
	"context"
	"fmt"

	"igposter/pkg/auth"
	"igposter/pkg/caption"
	"igposter/pkg/config"
	"igposter/pkg/errors"
	"igposter/pkg/imageproc"
	"igposter/pkg/instagram"
	"igposter/pkg/logger"
	"igposter/pkg/publisher"
	"igposter/pkg/ratelimit"
	"igposter/pkg/storage"
)

// credentialSource is the slice of the credential manager the poster needs
type credentialSource interface {
	Retrieve(username string) (*auth.Account, error)
}

// Outcome is what a successful run produced
type Outcome struct {
	Result     *publisher.Result
	Caption    string
	OutputPath string
}

// Poster runs a single posting request
type Poster struct {
	cfg        *config.Config
	log        logger.Logger
	processor  *imageproc.Processor
	downloader *imageproc.Downloader
	writer     *storage.Writer
	store      credentialSource

	// newPublisher is swappable for tests
	newPublisher func(mode string, client *instagram.Client, account *auth.Account, log logger.Logger) (publisher.Publisher, error)
}

// New creates a poster wired with the real image pipeline, credential
// manager and publishers.
func New(cfg *config.Config, log logger.Logger) *Poster {
	if log == nil {
		log = logger.GetLogger()
	}

	p := &Poster{
		cfg:          cfg,
		log:          log,
		processor:    imageproc.NewProcessor(&cfg.Image, log),
		downloader:   imageproc.NewDownloader(&cfg.Download, cfg.HTTP.UserAgent, log),
		writer:       storage.NewWriter(&cfg.Image, log),
		newPublisher: publisher.New,
	}

	// Stored credentials are optional; a run can carry everything inline
	if manager, err := auth.NewManager(); err == nil {
		p.store = manager
	} else {
		log.WithError(err).Warn("credential store unavailable")
	}

	return p
}

// Run executes the request file at the given path
func (p *Poster) Run(ctx context.Context, requestPath string) (*Outcome, error) {
	req, err := config.LoadRequest(requestPath)
	if err != nil {
		return nil, err
	}
	return p.RunRequest(ctx, req)
}

// RunRequest executes an already-loaded request. The image is fully
// prepared before any platform call, and the post is submitted exactly
// once.
func (p *Poster) RunRequest(ctx context.Context, req *config.Request) (*Outcome, error) {
	if !instagram.ValidUsername(req.Credentials.Username) {
		return nil, errors.NewConfigError(
			fmt.Sprintf("invalid username %q", req.Credentials.Username), nil)
	}

	image, err := p.prepareImage(ctx, req)
	if err != nil {
		return nil, err
	}

	text := caption.Compose(req.Caption, req.CaptionTheme)

	account := p.resolveAccount(req)
	client := p.buildClient(req, account)

	pub, err := p.newPublisher(p.cfg.Publisher.Mode, client, account, p.log)
	if err != nil {
		return nil, err
	}

	p.log.InfoWithFields("publishing", map[string]interface{}{
		"publisher": pub.Name(),
		"username":  account.Username,
		"endpoint":  req.TargetEndpoint,
	})

	result, err := pub.Publish(ctx, &publisher.Post{Image: image, Caption: text})
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{
		Result:  result,
		Caption: text,
	}

	// Keeping the submitted bytes around is best effort; the post is
	// already live at this point
	if path, err := p.writer.Save(image); err != nil {
		p.log.WithError(err).Warn("could not save processed image")
	} else {
		outcome.OutputPath = path
	}

	p.log.InfoWithFields("post published", map[string]interface{}{
		"publisher": result.Publisher,
		"media_id":  result.MediaID,
		"url":       result.URL,
	})

	return outcome, nil
}

// prepareImage loads, downloads if necessary, and normalizes the image
func (p *Poster) prepareImage(ctx context.Context, req *config.Request) (*imageproc.Processed, error) {
	if req.ImageIsRemote() {
		data, err := p.downloader.Fetch(ctx, req.ImagePath)
		if err != nil {
			return nil, err
		}
		return p.processor.ProcessBytes(data, req.ImagePath)
	}
	return p.processor.ProcessFile(req.ImagePath)
}

// resolveAccount turns request credentials into an account, adopting a
// stored session for the same username when the request carries none.
func (p *Poster) resolveAccount(req *config.Request) *auth.Account {
	account := &auth.Account{
		Username:  req.Credentials.Username,
		Password:  req.Credentials.Password,
		SessionID: req.Credentials.SessionID,
		CSRFToken: req.Credentials.CSRFToken,
		UserAgent: req.Credentials.UserAgent,
	}

	if account.SessionID == "" && p.store != nil {
		if stored, err := p.store.Retrieve(account.Username); err == nil && stored.HasSession() {
			p.log.InfoWithFields("adopting stored session", map[string]interface{}{
				"username": account.Username,
			})
			account.SessionID = stored.SessionID
			account.CSRFToken = stored.CSRFToken
			if account.UserAgent == "" {
				account.UserAgent = stored.UserAgent
			}
		}
	}

	return account
}

// buildClient assembles the platform client for this run
func (p *Poster) buildClient(req *config.Request, account *auth.Account) *instagram.Client {
	httpCfg := p.cfg.HTTP
	if account.UserAgent != "" {
		httpCfg.UserAgent = account.UserAgent
	}

	limiter := ratelimit.ForConfig(
		p.cfg.RateLimit.Limiter,
		p.cfg.RateLimit.RequestsPerMinute,
		p.cfg.RateLimit.BurstSize,
	)

	return instagram.NewClient(&httpCfg, req.TargetEndpoint, limiter, p.log)
}
