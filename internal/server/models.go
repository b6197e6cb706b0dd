package server

// HTTPError is a generic error envelope returned by the server.
type HTTPError struct {
	Error string `json:"error"`
}

// AuthRegisterRequest represents the registration payload.
type AuthRegisterRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// AuthTokenRequest accepts OAuth2 password-form fields or a JSON body.
type AuthTokenRequest struct {
	Username string `json:"email" form:"username"`
	Password string `json:"password" form:"password"`
}

// TokenResponse carries a bearer token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// MeResponse returns the current authenticated user id.
type MeResponse struct {
	UserID string `json:"user_id"`
}

// ChatRequest is a question about the latest uploaded file.
type ChatRequest struct {
	Question string `json:"question"`
}

// ChatResponse carries the composed answer, with any " [MM:SS]" suffix.
type ChatResponse struct {
	Answer string `json:"answer"`
}

// UploadResponse describes a processed upload.
type UploadResponse struct {
	ID            string `json:"id"`
	Filename      string `json:"filename"`
	Kind          string `json:"kind"`
	Detail        string `json:"detail"`
	Summary       string `json:"summary"`
	Transcription string `json:"transcription"`
}

// StatusResponse is the root liveness payload.
type StatusResponse struct {
	Message string `json:"message"`
}
