package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterFormValidate(t *testing.T) {
	form := func(pw, confirm string) RegisterForm {
		return RegisterForm{RegisterRequest: RegisterRequest{Email: "a@b.c", Password: pw}, ConfirmPassword: confirm}
	}
	assert.NoError(t, form("secret", "secret").Validate())
	assert.EqualError(t, form("secret", "secreT").Validate(), "Passwords do not match")
	assert.EqualError(t, form("abc", "abc").Validate(), "Password must be at least 6 characters")

	empty := form("secret", "secret")
	empty.Email = " "
	assert.Error(t, empty.Validate())
}

func TestDisplayName(t *testing.T) {
	first, last := "Ada", "Lovelace"
	assert.Equal(t, "Ada Lovelace", (&User{FirstName: &first, LastName: &last}).DisplayName())
	assert.Equal(t, "a@b.c", (&User{Email: "a@b.c"}).DisplayName())
	assert.False(t, (*User)(nil).IsAdmin())
}
