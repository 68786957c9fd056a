package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountStatus is the lifecycle status of an account.
type AccountStatus string

const (
	// AccountStatusActive accounts may log in.
	AccountStatusActive AccountStatus = "active"
	// AccountStatusSuspended accounts are temporarily locked out.
	AccountStatusSuspended AccountStatus = "suspended"
	// AccountStatusDisabled accounts are permanently locked out.
	AccountStatusDisabled AccountStatus = "disabled"
)

// Account is a staff, company, or customer account of the retail platform.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`

	ID            uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role          Role          `bun:"role,notnull" json:"role,omitempty"`
	Status        AccountStatus `bun:"status,notnull,default:'active'" json:"status,omitempty"`
	FirstName     string        `bun:"first_name" json:"first_name,omitempty"`
	LastName      string        `bun:"last_name" json:"last_name,omitempty"`
	Email         string        `bun:"email,unique" json:"email,omitempty"`
	Phone         string        `bun:"phone_number" json:"phone_number,omitempty"`
	BranchID      string        `bun:"branch_id" json:"branch_id,omitempty"`
	CompanyName   string        `bun:"company_name" json:"company_name,omitempty"`
	PasswordHash  string        `bun:"password_hash" json:"-"`
	AccessKeyID   string        `bun:"access_key_id" json:"-"`
	AccessKeyHash string        `bun:"access_key_hash" json:"-"`

	LoginAttempts  int        `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LoggedInAt     *time.Time `bun:"loggedin_at" json:"loggedin_at,omitempty"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureStatus backfills the default status on legacy rows.
func (a *Account) EnsureStatus() {
	if a.Status == "" {
		a.Status = AccountStatusActive
	}
}

// IsActive reports whether the account may log in.
func (a *Account) IsActive() bool {
	a.EnsureStatus()
	return a.Status == AccountStatusActive
}

// DisplayName is what dashboards greet the identity with.
func (a *Account) DisplayName() string {
	if a.Role == RoleCompany && a.CompanyName != "" {
		return a.CompanyName
	}
	name := strings.TrimSpace(a.FirstName + " " + a.LastName)
	if name != "" {
		return name
	}
	return a.Email
}

// CredentialAttributes is the extra payload embedded in issued credentials.
// Branch scoping travels with the credential so dashboards can filter without
// an extra lookup.
func (a *Account) CredentialAttributes() map[string]any {
	attrs := map[string]any{}
	if a.BranchID != "" {
		attrs["branch_id"] = a.BranchID
	}
	if a.CompanyName != "" {
		attrs["company_name"] = a.CompanyName
	}
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}

// statusAuthError maps a non-active status to the login failure it causes.
func statusAuthError(status AccountStatus) error {
	switch status {
	case AccountStatusActive, "":
		return nil
	default:
		return errWithMetadata(ErrAccountInactive, map[string]any{
			"status": string(status),
		})
	}
}
