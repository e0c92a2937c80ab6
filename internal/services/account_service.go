package services

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/anonto42/social-graph/backend/internal/models"
	"github.com/anonto42/social-graph/backend/internal/repositories"
	"github.com/anonto42/social-graph/backend/pkg/apperror"
	"github.com/anonto42/social-graph/backend/pkg/cursor"
	"github.com/anonto42/social-graph/backend/pkg/firebase"
	"github.com/anonto42/social-graph/backend/pkg/logger"
	"github.com/anonto42/social-graph/backend/pkg/storage"
	"golang.org/x/crypto/bcrypt"
)

// AuthResult is returned by every login flow.
type AuthResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

type AccountService struct {
	store    *repositories.Store
	follows  *FollowService
	tokens   *TokenIssuer
	firebase firebase.TokenVerifier
	images   storage.ImageStorage
}

// NewAccountService builds the service. verifier and images may be nil
// when Firebase or Cloudinary are not configured.
func NewAccountService(store *repositories.Store, follows *FollowService, tokens *TokenIssuer, verifier firebase.TokenVerifier, images storage.ImageStorage) *AccountService {
	return &AccountService{store: store, follows: follows, tokens: tokens, firebase: verifier, images: images}
}

func (s *AccountService) Register(ctx context.Context, req models.RegisterRequest) (*AuthResult, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username: req.Username,
		Email:    strings.ToLower(req.Email),
		Password: string(hash),
		Bio:      plainText(req.Bio),
	}
	if err := s.store.Users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Login accepts a username or email. Unknown users and wrong passwords
// produce the same error.
func (s *AccountService) Login(ctx context.Context, req models.LoginRequest) (*AuthResult, error) {
	user, err := s.store.Users.GetUserByLogin(ctx, req.Login)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFoundOrForbidden) {
			return nil, apperror.New(apperror.ErrUnauthorized, "invalid credentials")
		}
		return nil, err
	}
	if user.Password == "" || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return nil, apperror.New(apperror.ErrUnauthorized, "invalid credentials")
	}
	return s.issue(user)
}

// FirebaseLogin exchanges a Firebase ID token for a local session, linking
// by email or creating the user on first sight.
func (s *AccountService) FirebaseLogin(ctx context.Context, idToken string) (*AuthResult, error) {
	if s.firebase == nil {
		return nil, apperror.New(apperror.ErrUnavailable, "firebase login is not enabled")
	}
	token, err := s.firebase.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, apperror.New(apperror.ErrUnauthorized, "invalid firebase ID token")
	}
	email := strings.ToLower(firebase.Claim(token, "email"))
	if email == "" {
		return nil, apperror.Validation("firebase account has no email address")
	}
	uid := token.UID

	user, err := s.store.Users.GetUserByFirebaseUID(ctx, uid)
	switch {
	case err == nil:
		return s.issue(user)
	case !errors.Is(err, apperror.ErrNotFoundOrForbidden):
		return nil, err
	}

	user, err = s.store.Users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		user.FirebaseUID = &uid
		if err := s.store.Users.UpdateUser(ctx, user); err != nil {
			return nil, err
		}
	case errors.Is(err, apperror.ErrNotFoundOrForbidden):
		user = &models.User{
			Username:    usernameFromEmail(email, uid),
			Email:       email,
			FirebaseUID: &uid,
		}
		if err := s.store.Users.CreateUser(ctx, user); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	return s.issue(user)
}

// Profile returns userID with follow counts as seen by viewerID (0 for anonymous).
func (s *AccountService) Profile(ctx context.Context, viewerID, userID uint) (*models.Profile, error) {
	user, err := s.store.Users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := &models.Profile{User: *user}
	if p.FollowersCount, err = s.follows.FollowersCount(ctx, userID); err != nil {
		return nil, err
	}
	if p.FollowingCount, err = s.follows.FollowingCount(ctx, userID); err != nil {
		return nil, err
	}
	if p.IsFollowing, err = s.follows.IsFollowing(ctx, viewerID, userID); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *AccountService) UpdateProfile(ctx context.Context, userID uint, req models.UpdateProfileRequest) (*models.Profile, error) {
	user, err := s.store.Users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.Email != nil {
		user.Email = strings.ToLower(*req.Email)
	}
	if req.Bio != nil {
		user.Bio = plainText(*req.Bio)
	}
	if err := s.store.Users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return s.Profile(ctx, userID, userID)
}

// UploadAvatar stores a new avatar and removes the previous one.
func (s *AccountService) UploadAvatar(ctx context.Context, userID uint, r io.Reader, fileName string) (*models.Profile, error) {
	if s.images == nil {
		return nil, apperror.New(apperror.ErrUnavailable, "avatar upload is not enabled")
	}
	user, err := s.store.Users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	url, err := s.images.UploadImage(ctx, r, fileName)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}
	previous := user.AvatarURL
	user.AvatarURL = url
	if err := s.store.Users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	if previous != "" {
		if err := s.images.DeleteImage(ctx, previous); err != nil {
			logger.Warnf("delete old avatar of user %d: %v", userID, err)
		}
	}
	return s.Profile(ctx, userID, userID)
}

// DeleteAccount removes the user and, through foreign keys, everything they own.
func (s *AccountService) DeleteAccount(ctx context.Context, userID uint) error {
	return s.store.Users.DeleteUser(ctx, userID)
}

func (s *AccountService) SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.Validation("search query is required")
	}
	return s.store.Users.SearchUsers(ctx, query, cursor.ClampLimit(limit))
}

func (s *AccountService) issue(user *models.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}

// usernameFromEmail derives a handle for accounts created through Firebase.
// The uid suffix keeps it unique.
func usernameFromEmail(email, uid string) string {
	local, _, _ := strings.Cut(email, "@")
	var b strings.Builder
	for _, r := range local {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || strings.ContainsRune(".+-_", r) {
			b.WriteRune(r)
		}
	}
	if len(uid) > 8 {
		uid = uid[:8]
	}
	name := b.String()
	if len(name) > 100 {
		name = name[:100]
	}
	return name + "_" + uid
}
