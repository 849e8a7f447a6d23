package account

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/redmonkez12/users-api/internal/user"
)

// Fields that UpdateUserRequest may change.
const (
	FieldEmail       = "email"
	FieldName        = "name"
	FieldDob         = "dob"
	FieldDescription = "description"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// TextResponse carries a human-readable confirmation.
type TextResponse struct {
	Detail string `json:"detail"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// LoginResponse is returned on successful login
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// AddressRequest is an optional postal location of a user
type AddressRequest struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (a AddressRequest) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&a.Latitude, validation.Min(-90.0), validation.Max(90.0)),
		validation.Field(&a.Longitude, validation.Min(-180.0), validation.Max(180.0)),
	)
}

// NewUserRequest represents the registration request body
type NewUserRequest struct {
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	Password    string          `json:"password"`
	Dob         string          `json:"dob,omitempty" example:"1990-01-01"`
	Address     *AddressRequest `json:"address,omitempty"`
	Description string          `json:"description"`
}

func (r NewUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 255), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 72)),
		validation.Field(&r.Dob, validation.Date(user.DateLayout)),
		validation.Field(&r.Address),
		validation.Field(&r.Description, validation.Length(0, 255)),
	)
}

// UpdateUserRequest changes a single field of a user. An empty UserID
// targets the authenticated caller.
type UpdateUserRequest struct {
	UserID string `json:"user_id,omitempty"`
	Field  string `json:"field" enums:"email,name,dob,description"`
	Value  string `json:"value"`
}

func (r UpdateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Field, validation.Required, validation.In(FieldEmail, FieldName, FieldDob, FieldDescription)),
		validation.Field(&r.Value, valueRules(r.Field)...),
	)
}

func valueRules(field string) []validation.Rule {
	switch field {
	case FieldEmail:
		return []validation.Rule{validation.Required, validation.Length(3, 255), is.Email}
	case FieldName:
		return []validation.Rule{validation.Required, validation.Length(1, 255)}
	case FieldDob:
		return []validation.Rule{validation.Required, validation.Date(user.DateLayout)}
	case FieldDescription:
		return []validation.Rule{validation.Length(0, 255)}
	default:
		return nil
	}
}

// ListQuery selects a page of users
type ListQuery struct {
	Start int `json:"start"`
	Limit int `json:"limit"`
}

func (q ListQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Start, validation.Min(0)),
		validation.Field(&q.Limit, validation.Required, validation.Min(1), validation.Max(MaxPageLimit)),
	)
}

// PasswordResetRequest asks for a reset link to be mailed
type PasswordResetRequest struct {
	Email string `json:"email"`
}

func (r PasswordResetRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

// PasswordResetConfirm sets a new password with a reset token
type PasswordResetConfirm struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (r PasswordResetConfirm) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 72)),
	)
}

// Info is the public shape of a user. It never carries the password hash.
type Info struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Email       string        `json:"email"`
	Dob         string        `json:"dob" example:"1990-01-01"`
	Address     *user.Address `json:"address,omitempty"`
	Description string        `json:"description"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func NewInfo(u *user.User) Info {
	return Info{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Dob:         u.Dob.Format(user.DateLayout),
		Address:     u.Address,
		Description: u.Description,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// Page is one slice of the user list
type Page struct {
	Users []Info `json:"users"`
	Start int    `json:"start"`
	Limit int    `json:"limit"`
}
