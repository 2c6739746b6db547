package instagram

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// BaseURL is the default base URL for Instagram's web surface
	BaseURL = "https://www.instagram.com"

	// LoginPageEndpoint serves the login page and the csrftoken cookie
	LoginPageEndpoint = "/accounts/login/"

	// LoginEndpoint is the AJAX login endpoint used by the web client
	LoginEndpoint = "/accounts/login/ajax/"

	// CurrentUserEndpoint identifies the session owner
	CurrentUserEndpoint = "/api/v1/accounts/current_user/"

	// UploadEndpoint is the resumable photo upload endpoint
	UploadEndpoint = "/rupload_igphoto/"

	// ConfigureEndpoint attaches an uploaded photo to a new feed post
	ConfigureEndpoint = "/api/v1/media/configure/"

	// AppID is the web app identifier Instagram expects on API calls
	AppID = "936619743392459"

	// MaxCaptionLength is the documented caption limit for feed posts
	MaxCaptionLength = 2200
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._]{1,30}$`)

// LoginPageURL constructs the URL serving the login page
func LoginPageURL(base string) string {
	return strings.TrimSuffix(base, "/") + LoginPageEndpoint
}

// LoginURL constructs the AJAX login URL
func LoginURL(base string) string {
	return strings.TrimSuffix(base, "/") + LoginEndpoint
}

// CurrentUserURL constructs the session verification URL
func CurrentUserURL(base string) string {
	return strings.TrimSuffix(base, "/") + CurrentUserEndpoint
}

// UploadURL constructs the photo upload URL for an entity name
func UploadURL(base, entityName string) string {
	return fmt.Sprintf("%s%s%s", strings.TrimSuffix(base, "/"), UploadEndpoint, entityName)
}

// ConfigureURL constructs the post configuration URL
func ConfigureURL(base string) string {
	return strings.TrimSuffix(base, "/") + ConfigureEndpoint
}

// ValidUsername reports whether a username matches Instagram's character rules
func ValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// EncodePassword wraps a plain password in the browser login envelope.
// Instagram's web login accepts this form when no encryption keys were
// negotiated beforehand.
func EncodePassword(password string, timestamp int64) string {
	return fmt.Sprintf("#PWD_INSTAGRAM_BROWSER:0:%d:%s", timestamp, password)
}

// TruncateCaption clips a caption to the platform limit. The limit counts
// characters, not bytes, so the cut always lands on a rune boundary.
func TruncateCaption(caption string) string {
	if utf8.RuneCountInString(caption) <= MaxCaptionLength {
		return caption
	}
	return string([]rune(caption)[:MaxCaptionLength])
}
