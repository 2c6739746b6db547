package instagram

// LoginResponse is the JSON body returned by the AJAX login endpoint
type LoginResponse struct {
	User              bool   `json:"user"`
	UserID            string `json:"userId"`
	Authenticated     bool   `json:"authenticated"`
	OneTapPrompt      bool   `json:"oneTapPrompt"`
	TwoFactorRequired bool   `json:"two_factor_required"`
	CheckpointURL     string `json:"checkpoint_url"`
	Status            string `json:"status"`
	Message           string `json:"message"`
}

// CurrentUserResponse is the JSON body returned when verifying a session
type CurrentUserResponse struct {
	User struct {
		PK       int64  `json:"pk"`
		Username string `json:"username"`
	} `json:"user"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// UploadResponse is the JSON body returned by the photo upload endpoint
type UploadResponse struct {
	UploadID string `json:"upload_id"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

// ConfigureResponse is the JSON body returned when a post is configured
type ConfigureResponse struct {
	Media struct {
		ID   string `json:"id"`
		Code string `json:"code"`
	} `json:"media"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// PostURL returns the public permalink for a configured post, or empty
// when the response carried no shortcode.
func (r *ConfigureResponse) PostURL(base string) string {
	if r.Media.Code == "" {
		return ""
	}
	return base + "/p/" + r.Media.Code + "/"
}
