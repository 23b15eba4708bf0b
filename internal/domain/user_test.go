package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	user, err := NewUser("  Alice@Example.com ", "Str0ng!Passw0rd")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "Str0ng!Passw0rd", user.Password)
	assert.False(t, user.CreatedAt.IsZero())
	assert.Equal(t, Identity{ID: user.ID, Email: "alice@example.com"}, user.Identity())

	_, err = NewUser("", "Str0ng!Passw0rd")
	assert.ErrorIs(t, err, ErrEmptyEmail)

	_, err = NewUser("invalidemail", "Str0ng!Passw0rd")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = NewUser("a@b.co", "weak")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestUserValidate_StoredUser(t *testing.T) {
	user := User{ID: uuid.New(), Email: "a@example.com", HashedPassword: "$2a$10$hash"}
	assert.NoError(t, user.Validate())

	user.HashedPassword = ""
	assert.ErrorIs(t, user.Validate(), ErrEmptyPassword)

	user.ID = uuid.Nil
	assert.ErrorIs(t, user.Validate(), ErrEmptyUserID)
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		want     error
	}{
		{password: "Str0ng!Passw0rd", want: nil},
		{password: "", want: ErrEmptyPassword},
		{password: "Sh0rt!", want: ErrPasswordTooShort},
		{password: "A1!" + strings.Repeat("a", PasswordMaxLength), want: ErrPasswordTooLong},
		{password: "nouppercase1!", want: ErrPasswordNoUppercase},
		{password: "NoDigitsHere!", want: ErrPasswordNoDigit},
		{password: "NoSymbols123", want: ErrPasswordNoSymbol},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.password, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidateEmailFormat(t *testing.T) {
	valid := []string{"a@b.co", "user.name+tag@example.org"}
	invalid := []string{"", "@example.com", "user@", "user@com", "user@.com", "user@example.", "a@b@c.com"}

	for _, e := range valid {
		assert.True(t, validateEmailFormat(e), e)
	}
	for _, e := range invalid {
		assert.False(t, validateEmailFormat(e), e)
	}
}
