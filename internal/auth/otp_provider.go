package auth

import (
	"context"

	"github.com/google/uuid"
)

// OtpProvider defines the interface for OTP operations
type OtpProvider interface {
	RequestCode(ctx context.Context, rawPhone string, includeDebugCode bool) (RequestResult, error)
	ConfirmCode(ctx context.Context, rawPhone, rawCode string) (ConfirmResult, error)
}

// CodeGenerator produces plaintext one-time codes of a fixed digit length.
type CodeGenerator interface {
	Generate(length int) (string, error)
}

// Hasher turns codes into stored hashes and checks codes against them.
type Hasher interface {
	Hash(code string) string
	Verify(code, hash string) bool
}

// TokenIssuer mints bearer credentials for a verified user.
type TokenIssuer interface {
	IssueAccessToken(userID uuid.UUID, phoneNumber string) (AccessToken, error)
}
