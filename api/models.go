package api

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse is the sanitized user shape returned by the auth endpoints.
type UserResponse struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Email             string   `json:"email"`
	IsVerified        bool     `json:"isVerified"`
	ConnectedAccounts []string `json:"connectedAccounts"`
	Points            int64    `json:"points"`
	Earnings          int64    `json:"earnings"`
}

// AuthResponse carries a fresh bearer token plus the user it identifies.
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// WithdrawRequest is the body of POST /api/user/withdraw.
type WithdrawRequest struct {
	Provider string `json:"provider"`
	Points   int64  `json:"points"`
	Rupees   int64  `json:"rupees"`
	Name     string `json:"name"`
	Number   string `json:"number"`
}

// LinkRequest selects the platform for the code and QR flows.
type LinkRequest struct {
	Platform string `json:"platform"`
}

// CodeResponse is the issued six-digit linking code.
type CodeResponse struct {
	Code      string `json:"code"`
	ExpiresIn int64  `json:"expiresIn"`
}

// QRResponse is the issued QR link: the data-URL image plus the link ID the
// initiating page polls with.
type QRResponse struct {
	LinkID    string `json:"linkId"`
	QRCode    string `json:"qrCode"`
	ExpiresIn int64  `json:"expiresIn"`
}

// VerifyCodeRequest is the body of POST /api/social/verify-code.
type VerifyCodeRequest struct {
	Code     string `json:"code"`
	Platform string `json:"platform"`
}

// LinkResultResponse reports the owner's balances after a redemption.
type LinkResultResponse struct {
	Platform          string   `json:"platform"`
	ConnectedAccounts []string `json:"connectedAccounts"`
	Points            int64    `json:"points"`
	Earnings          int64    `json:"earnings"`
}

// PageResponse is a connected Facebook page; page tokens never leave the
// server.
type PageResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// PostRequest is the body of POST /api/facebook/post.
type PostRequest struct {
	PageID  string `json:"pageId"`
	Message string `json:"message"`
	Link    string `json:"link,omitempty"`
}
