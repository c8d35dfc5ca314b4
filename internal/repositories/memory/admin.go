package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"rentledger-backend/internal/apperrors"
	"rentledger-backend/internal/models"
)

type userRepo struct {
	locker
	items map[string]*models.User
	quota *quota
}

func cloneUser(u *models.User) *models.User {
	cp := *u
	return &cp
}

func (r *userRepo) List(ctx context.Context) ([]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.User, 0, len(r.items))
	for _, u := range r.items {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.items[id]
	if !ok {
		return nil, apperrors.NewNotFound("user", id)
	}
	return cloneUser(u), nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.items {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, apperrors.NewNotFound("user", email)
}

func (r *userRepo) Save(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[user.ID]; !exists {
		if err := r.quota.check("users", len(r.items)); err != nil {
			return err
		}
	}
	r.items[user.ID] = cloneUser(user)
	return nil
}

func (r *userRepo) Update(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[user.ID]; !ok {
		return apperrors.NewNotFound("user", user.ID)
	}
	r.items[user.ID] = cloneUser(user)
	return nil
}

func (r *userRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return apperrors.NewNotFound("user", id)
	}
	delete(r.items, id)
	return nil
}

func (r *userRepo) SetTOTPSecret(ctx context.Context, userID, secret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.items[userID]
	if !ok {
		return apperrors.NewNotFound("user", userID)
	}
	u.TOTPSecret = secret
	u.UpdatedAt = time.Now()
	return nil
}

func (r *userRepo) SetTOTPEnabled(ctx context.Context, userID string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.items[userID]
	if !ok {
		return apperrors.NewNotFound("user", userID)
	}
	u.TOTPEnabled = enabled
	if !enabled {
		u.TOTPSecret = ""
	}
	u.UpdatedAt = time.Now()
	return nil
}

type onlineTxRepo struct {
	locker
	items map[string]*models.OnlineTransaction
	quota *quota
}

func cloneOnlineTx(t *models.OnlineTransaction) *models.OnlineTransaction {
	cp := *t
	if t.CompletedAt != nil {
		d := *t.CompletedAt
		cp.CompletedAt = &d
	}
	return &cp
}

func (r *onlineTxRepo) List(ctx context.Context) ([]*models.OnlineTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.OnlineTransaction, 0, len(r.items))
	for _, t := range r.items {
		out = append(out, cloneOnlineTx(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *onlineTxRepo) GetByOrderID(ctx context.Context, orderID string) (*models.OnlineTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.items {
		if t.RazorpayOrderID == orderID {
			return cloneOnlineTx(t), nil
		}
	}
	return nil, apperrors.NewNotFound("online transaction", orderID)
}

func (r *onlineTxRepo) GetByTenant(ctx context.Context, tenantID string) ([]*models.OnlineTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.OnlineTransaction
	for _, t := range r.items {
		if t.TenantID == tenantID {
			out = append(out, cloneOnlineTx(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *onlineTxRepo) Save(ctx context.Context, tx *models.OnlineTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[tx.ID]; !exists {
		if err := r.quota.check("online_transactions", len(r.items)); err != nil {
			return err
		}
	}
	r.items[tx.ID] = cloneOnlineTx(tx)
	return nil
}

func (r *onlineTxRepo) Update(ctx context.Context, tx *models.OnlineTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[tx.ID]; !ok {
		return apperrors.NewNotFound("online transaction", tx.ID)
	}
	r.items[tx.ID] = cloneOnlineTx(tx)
	return nil
}

type settingRepo struct {
	locker
	items  map[string]*models.SystemSetting
	nextID int
}

func (r *settingRepo) Get(ctx context.Context, key string) (*models.SystemSetting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.items[key]
	if !ok {
		return nil, apperrors.NewNotFound("system setting", key)
	}
	cp := *s
	return &cp, nil
}

func (r *settingRepo) List(ctx context.Context) ([]*models.SystemSetting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.SystemSetting, 0, len(r.items))
	for _, s := range r.items {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SettingKey < out[j].SettingKey })
	return out, nil
}

func (r *settingRepo) Update(ctx context.Context, key, value, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[key]
	if !ok {
		return apperrors.NewNotFound("system setting", key)
	}
	s.SettingValue = value
	s.UpdatedByUserID = userID
	s.UpdatedAt = time.Now()
	return nil
}

func (r *settingRepo) Upsert(ctx context.Context, key, value, description, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.items[key]; ok {
		s.SettingValue = value
		if description != "" {
			s.Description = description
		}
		s.UpdatedByUserID = userID
		s.UpdatedAt = time.Now()
		return nil
	}
	r.nextID++
	r.items[key] = &models.SystemSetting{
		ID:              r.nextID,
		SettingKey:      key,
		SettingValue:    value,
		Description:     description,
		UpdatedByUserID: userID,
		UpdatedAt:       time.Now(),
	}
	return nil
}

type smsLogRepo struct {
	locker
	logs []*models.SMSLog
}

func (r *smsLogRepo) Create(ctx context.Context, log *models.SMSLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *log
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.DeliveredAt != nil {
		d := *cp.DeliveredAt
		cp.DeliveredAt = &d
	}
	r.logs = append(r.logs, &cp)
	return nil
}

func (r *smsLogRepo) List(ctx context.Context, limit int) ([]*models.SMSLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := len(r.logs)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]*models.SMSLog, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		cp := *r.logs[i]
		out = append(out, &cp)
	}
	return out, nil
}

type totpRepo struct {
	locker
	byUser map[string][]*models.TOTPBackupCode
}

func (r *totpRepo) ReplaceBackupCodes(ctx context.Context, userID string, hashes []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	codes := make([]*models.TOTPBackupCode, 0, len(hashes))
	for _, h := range hashes {
		codes = append(codes, &models.TOTPBackupCode{
			ID:        uuid.NewString(),
			UserID:    userID,
			CodeHash:  h,
			CreatedAt: time.Now(),
		})
	}
	r.byUser[userID] = codes
	return nil
}

func (r *totpRepo) GetUnusedBackupCodes(ctx context.Context, userID string) ([]*models.TOTPBackupCode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.TOTPBackupCode
	for _, c := range r.byUser[userID] {
		if !c.Used {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *totpRepo) MarkBackupCodeUsed(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, codes := range r.byUser {
		for _, c := range codes {
			if c.ID == id {
				now := time.Now()
				c.Used = true
				c.UsedAt = &now
				return nil
			}
		}
	}
	return apperrors.NewNotFound("backup code", id)
}

type tenantOTPRepo struct {
	locker
	items []*models.TenantOTP
}

func cloneTenantOTP(o *models.TenantOTP) *models.TenantOTP {
	cp := *o
	if o.VerifiedAt != nil {
		d := *o.VerifiedAt
		cp.VerifiedAt = &d
	}
	return &cp
}

func (r *tenantOTPRepo) Create(ctx context.Context, otp *models.TenantOTP) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := cloneTenantOTP(otp)
	if cp.ID == "" {
		cp.ID = uuid.NewString()
		otp.ID = cp.ID
	}
	r.items = append(r.items, cp)
	return nil
}

func (r *tenantOTPRepo) GetLatestByPhone(ctx context.Context, phone string) (*models.TenantOTP, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *models.TenantOTP
	for _, o := range r.items {
		if o.Phone != phone {
			continue
		}
		if latest == nil || o.CreatedAt.After(latest.CreatedAt) {
			latest = o
		}
	}
	if latest == nil {
		return nil, apperrors.NewNotFound("login code", phone)
	}
	return cloneTenantOTP(latest), nil
}

func (r *tenantOTPRepo) IncrementAttempts(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.items {
		if o.ID == id {
			o.Attempts++
			return nil
		}
	}
	return apperrors.NewNotFound("login code", id)
}

func (r *tenantOTPRepo) MarkVerified(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.items {
		if o.ID == id {
			now := time.Now()
			o.Verified = true
			o.VerifiedAt = &now
			return nil
		}
	}
	return apperrors.NewNotFound("login code", id)
}

func (r *tenantOTPRepo) CountRecentRequests(ctx context.Context, phone string, window time.Duration) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cutoff := time.Now().Add(-window)
	count := 0
	for _, o := range r.items {
		if o.Phone == phone && o.CreatedAt.After(cutoff) {
			count++
		}
	}
	return count, nil
}
