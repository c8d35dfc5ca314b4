package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"image/png"
	"log"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"rentledger-backend/internal/apperrors"
	"rentledger-backend/internal/auth"
	"rentledger-backend/internal/models"
	"rentledger-backend/internal/repositories"
)

const (
	totpIssuer       = "RentLedger"
	backupCodeCount  = 10
	backupCodeLength = 8
)

type TOTPService struct {
	Store *repositories.Store
}

func NewTOTPService(store *repositories.Store) *TOTPService {
	return &TOTPService{Store: store}
}

// GenerateSetup creates a fresh TOTP secret for a user and returns it
// with a scannable QR code. The secret is stored but 2FA stays off until
// the user proves they can produce a code.
func (s *TOTPService) GenerateSetup(ctx context.Context, userID string) (*models.TOTPSetupResponse, error) {
	user, err := s.Store.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TOTPEnabled {
		return nil, apperrors.NewValidation("totp", "2FA is already enabled")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: user.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, err
	}

	if err := s.Store.Users.SetTOTPSecret(ctx, user.ID, key.Secret()); err != nil {
		return nil, err
	}

	qrImage, err := key.Image(200, 200)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, qrImage); err != nil {
		return nil, err
	}
	qrBase64 := base64.StdEncoding.EncodeToString(buf.Bytes())

	return &models.TOTPSetupResponse{
		Secret:      key.Secret(),
		QRCode:      "data:image/png;base64," + qrBase64,
		Issuer:      totpIssuer,
		AccountName: user.Email,
	}, nil
}

// VerifyAndEnable checks the first code against the pending secret and
// turns 2FA on, handing back the single-use backup codes.
func (s *TOTPService) VerifyAndEnable(ctx context.Context, userID, code string) (*models.BackupCodesResponse, error) {
	user, err := s.Store.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TOTPEnabled {
		return nil, apperrors.NewValidation("totp", "2FA is already enabled")
	}
	if user.TOTPSecret == "" {
		return nil, apperrors.NewValidation("totp", "2FA setup has not been started")
	}

	if !totp.Validate(code, user.TOTPSecret) {
		return nil, apperrors.NewValidation("code", "invalid verification code")
	}

	if err := s.Store.Users.SetTOTPEnabled(ctx, user.ID, true); err != nil {
		return nil, err
	}

	codes, err := s.issueBackupCodes(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	log.Printf("[TOTP] 2FA enabled for user %s", user.ID)
	return &models.BackupCodesResponse{Codes: codes}, nil
}

// Verify checks a login code. A 6-digit TOTP code is tried first, then
// the unused backup codes; a matched backup code is burned.
func (s *TOTPService) Verify(ctx context.Context, userID, code string) error {
	user, err := s.Store.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TOTPEnabled {
		return apperrors.NewValidation("totp", "2FA is not enabled")
	}

	if totp.Validate(code, user.TOTPSecret) {
		return nil
	}

	backupCodes, err := s.Store.TOTP.GetUnusedBackupCodes(ctx, user.ID)
	if err != nil {
		return err
	}
	for _, bc := range backupCodes {
		if auth.VerifyPassword(bc.CodeHash, code) {
			if err := s.Store.TOTP.MarkBackupCodeUsed(ctx, bc.ID); err != nil {
				return err
			}
			log.Printf("[TOTP] Backup code used for user %s (%d left)", user.ID, len(backupCodes)-1)
			return nil
		}
	}
	return apperrors.NewValidation("code", "invalid verification code")
}

// Disable turns 2FA off. The password and a current code are both
// required so a hijacked session cannot silently strip the account.
func (s *TOTPService) Disable(ctx context.Context, userID, password, code string) error {
	user, err := s.Store.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TOTPEnabled {
		return apperrors.NewValidation("totp", "2FA is not enabled")
	}
	if !auth.VerifyPassword(user.PasswordHash, password) {
		return apperrors.NewValidation("password", "invalid password")
	}
	if err := s.Verify(ctx, userID, code); err != nil {
		return err
	}

	if err := s.Store.Users.SetTOTPEnabled(ctx, user.ID, false); err != nil {
		return err
	}
	if err := s.Store.Users.SetTOTPSecret(ctx, user.ID, ""); err != nil {
		return err
	}
	if err := s.Store.TOTP.ReplaceBackupCodes(ctx, user.ID, nil); err != nil {
		return err
	}
	log.Printf("[TOTP] 2FA disabled for user %s", user.ID)
	return nil
}

// RegenerateBackupCodes replaces all backup codes with a fresh set.
func (s *TOTPService) RegenerateBackupCodes(ctx context.Context, userID, password string) (*models.BackupCodesResponse, error) {
	user, err := s.Store.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.TOTPEnabled {
		return nil, apperrors.NewValidation("totp", "2FA is not enabled")
	}
	if !auth.VerifyPassword(user.PasswordHash, password) {
		return nil, apperrors.NewValidation("password", "invalid password")
	}

	codes, err := s.issueBackupCodes(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &models.BackupCodesResponse{Codes: codes}, nil
}

// GetStatus reports whether 2FA is on and how many backup codes remain.
func (s *TOTPService) GetStatus(ctx context.Context, userID string) (*models.TOTPStatusResponse, error) {
	user, err := s.Store.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	status := &models.TOTPStatusResponse{Enabled: user.TOTPEnabled}
	if user.TOTPEnabled {
		backupCodes, err := s.Store.TOTP.GetUnusedBackupCodes(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		status.BackupCodesLeft = len(backupCodes)
	}
	return status, nil
}

// issueBackupCodes mints a new code set, replacing whatever was stored.
// Plaintext codes are returned exactly once; only hashes persist.
func (s *TOTPService) issueBackupCodes(ctx context.Context, userID string) ([]string, error) {
	codes := make([]string, backupCodeCount)
	hashes := make([]string, backupCodeCount)
	for i := range codes {
		code := generateRandomCode(backupCodeLength)
		hash, err := auth.HashPassword(code)
		if err != nil {
			return nil, err
		}
		codes[i] = code
		hashes[i] = hash
	}
	if err := s.Store.TOTP.ReplaceBackupCodes(ctx, userID, hashes); err != nil {
		return nil, err
	}
	return codes, nil
}

// generateRandomCode creates a random alphanumeric code
func generateRandomCode(length int) string {
	const charset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // Excludes similar chars: I, O, 0, 1
	code := make([]byte, length)
	randomBytes := make([]byte, length)
	rand.Read(randomBytes)
	for i := range code {
		code[i] = charset[int(randomBytes[i])%len(charset)]
	}
	return string(code)
}
