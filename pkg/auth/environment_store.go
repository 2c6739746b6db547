package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements CredentialStore using environment variables.
// It is read-only and mainly serves CI and one-off runs.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve gets credentials from environment variables
func (e *EnvironmentStore) Retrieve(username string) (*Account, error) {
	envUsername := os.Getenv("IGPOSTER_USERNAME")
	password := os.Getenv("IGPOSTER_PASSWORD")
	sessionID := os.Getenv("IGPOSTER_SESSION_ID")
	csrfToken := os.Getenv("IGPOSTER_CSRF_TOKEN")
	userAgent := os.Getenv("IGPOSTER_USER_AGENT")

	if password == "" && sessionID == "" {
		return nil, ErrCredentialsNotFound
	}

	if username == "" {
		username = envUsername
	}
	if username == "" {
		username = "default"
	}

	return &Account{
		Username:     username,
		Password:     password,
		SessionID:    sessionID,
		CSRFToken:    csrfToken,
		UserAgent:    userAgent,
		LastModified: time.Now(),
	}, nil
}

// List returns a single account if environment variables are set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(username string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(username string) bool {
	return os.Getenv("IGPOSTER_PASSWORD") != "" || os.Getenv("IGPOSTER_SESSION_ID") != ""
}
