package middleware

import (
	"context"

	"github.com/anonto42/social-graph/backend/internal/models"
)

// parseFirebase verifies a Firebase ID token and resolves the local user
// linked to its UID. Accounts are linked by /auth/firebase-login; an
// unlinked UID is rejected.
func (a *Authenticator) parseFirebase(ctx context.Context, idToken string) (*models.JwtCustomClaims, error) {
	token, err := a.firebase.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}
	user, err := a.users.GetUserByFirebaseUID(ctx, token.UID)
	if err != nil {
		return nil, err
	}
	return &models.JwtCustomClaims{UserID: user.ID, Username: user.Username}, nil
}
