package services

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"rentledger-backend/internal/apperrors"
	"rentledger-backend/internal/auth"
	"rentledger-backend/internal/cache"
	"rentledger-backend/internal/models"
	"rentledger-backend/internal/repositories"
	"rentledger-backend/internal/timeutil"
)

type UserService struct {
	Store      *repositories.Store
	JWTManager *auth.JWTManager

	nowFn func() time.Time
}

func NewUserService(store *repositories.Store, jwtManager *auth.JWTManager) *UserService {
	return &UserService{
		Store:      store,
		JWTManager: jwtManager,
		nowFn:      timeutil.Now,
	}
}

func validRole(role string) bool {
	switch role {
	case models.RoleAdmin, models.RoleManager, models.RoleViewer:
		return true
	}
	return false
}

// CreateUser adds a staff account. Only admins reach this path; the
// handler enforces that.
func (s *UserService) CreateUser(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return nil, apperrors.NewValidation("user", "name, email and password are required")
	}
	role := req.Role
	if role == "" {
		role = models.RoleViewer
	}
	if !validRole(role) {
		return nil, apperrors.NewValidation("role", "role must be admin, manager or viewer")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if existing, err := s.Store.Users.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, apperrors.NewValidation("email", "a user with this email already exists")
	} else if err != nil && !apperrors.IsNotFound(err) {
		return nil, err
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.nowFn()
	user := &models.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        email,
		Phone:        req.Phone,
		PasswordHash: hashed,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.Users.Save(ctx, user); err != nil {
		return nil, err
	}
	log.Printf("[Users] Created %s user %s (%s)", user.Role, user.ID, user.Email)
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.Store.Users.GetByID(ctx, id)
}

func (s *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.Store.Users.List(ctx)
}

// UpdateUser patches a staff account. Empty request fields keep the
// stored value; a non-empty password is re-hashed.
func (s *UserService) UpdateUser(ctx context.Context, id string, req *models.UpdateUserRequest) (*models.User, error) {
	user, err := s.Store.Users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Email != "" {
		email := strings.ToLower(strings.TrimSpace(req.Email))
		if email != user.Email {
			if existing, err := s.Store.Users.GetByEmail(ctx, email); err == nil && existing != nil && existing.ID != id {
				return nil, apperrors.NewValidation("email", "a user with this email already exists")
			} else if err != nil && !apperrors.IsNotFound(err) {
				return nil, err
			}
			user.Email = email
		}
	}
	if req.Phone != "" {
		user.Phone = req.Phone
	}
	if req.Role != "" {
		if !validRole(req.Role) {
			return nil, apperrors.NewValidation("role", "role must be admin, manager or viewer")
		}
		user.Role = req.Role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	passwordRotated := false
	if req.Password != "" {
		hashed, err := auth.HashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hashed
		passwordRotated = true
	}
	user.UpdatedAt = s.nowFn()

	if err := s.Store.Users.Update(ctx, user); err != nil {
		return nil, err
	}
	if passwordRotated {
		// The old password must stop working now, not when its cache
		// entry expires
		cache.InvalidateAuthForEmail(ctx, user.Email)
	}
	return user, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	user, err := s.Store.Users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Store.Users.Delete(ctx, id); err != nil {
		return err
	}
	cache.InvalidateAuthForEmail(ctx, user.Email)
	return nil
}

// Signup creates the operator account. The first account becomes admin;
// later signups default to viewer so an admin can promote them.
func (s *UserService) Signup(ctx context.Context, req *models.SignupRequest) (*models.AuthResponse, error) {
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return nil, apperrors.NewValidation("user", "name, email and password are required")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if existing, err := s.Store.Users.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, apperrors.NewValidation("email", "a user with this email already exists")
	} else if err != nil && !apperrors.IsNotFound(err) {
		return nil, err
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	role := models.RoleViewer
	all, err := s.Store.Users.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		role = models.RoleAdmin
	}

	now := s.nowFn()
	user := &models.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        email,
		PasswordHash: hashed,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.Users.Save(ctx, user); err != nil {
		return nil, err
	}
	log.Printf("[Users] Signed up %s as %s", user.Email, user.Role)

	token, err := s.JWTManager.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, User: user}, nil
}

// Login authenticates a staff account. Accounts with 2FA enabled get a
// short-lived temp token back instead of a session; the caller finishes
// with a TOTP or backup code.
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, *models.LoginStep1Response, error) {
	if req.Email == "" || req.Password == "" {
		return nil, nil, apperrors.NewValidation("user", "email and password are required")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.Store.Users.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil, apperrors.NewValidation("credentials", "invalid email or password")
		}
		return nil, nil, err
	}

	// A cache hit skips the bcrypt check; a miss pays it once and primes
	// the cache for the next 15 minutes
	if cachedID, ok := cache.GetCachedAuth(ctx, email, req.Password); !ok || cachedID != user.ID {
		if !auth.VerifyPassword(user.PasswordHash, req.Password) {
			return nil, nil, apperrors.NewValidation("credentials", "invalid email or password")
		}
		cache.CacheAuth(ctx, email, req.Password, user.ID)
	}
	if !user.IsActive {
		return nil, nil, apperrors.NewValidation("account", "account is deactivated")
	}

	if user.TOTPEnabled {
		tempToken, err := s.JWTManager.GenerateTempToken(user)
		if err != nil {
			return nil, nil, err
		}
		return nil, &models.LoginStep1Response{
			Requires2FA: true,
			TempToken:   tempToken,
			Message:     "enter the code from your authenticator app",
		}, nil
	}

	token, err := s.JWTManager.GenerateToken(user)
	if err != nil {
		return nil, nil, err
	}
	return &models.AuthResponse{Token: token, User: user}, nil, nil
}

// CompleteTOTPLogin exchanges a verified temp token for a session token.
// The TOTP code itself is checked by the caller before this runs.
func (s *UserService) CompleteTOTPLogin(ctx context.Context, userID string) (*models.AuthResponse, error) {
	user, err := s.Store.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.NewValidation("account", "account is deactivated")
	}
	token, err := s.JWTManager.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, User: user}, nil
}
