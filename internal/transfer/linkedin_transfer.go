package transfer

type LinkedInTokenResponse struct {
	AccessToken           string `json:"access_token"`
	ExpiresIn             int    `json:"expires_in"`
	RefreshToken          string `json:"refresh_token"`
	RefreshTokenExpiresIn int    `json:"refresh_token_expires_in"`
	Scope                 string `json:"scope"`
}

// LinkedInUserInfo is the OpenID Connect userinfo payload.
type LinkedInUserInfo struct {
	Sub     string `json:"sub"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	Email   string `json:"email"`
}

type LinkedInErrorResponse struct {
	Message      string `json:"message"`
	ServiceError int    `json:"serviceErrorCode"`
	Status       int    `json:"status"`
}
