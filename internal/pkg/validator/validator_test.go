package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("a@x.com"))
	assert.True(t, IsValidEmail("first.last+tag@sub.example.org"))
	assert.False(t, IsValidEmail("a@x"))
	assert.False(t, IsValidEmail("not-an-email"))
	assert.False(t, IsValidEmail(""))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@x.com", NormalizeEmail("  A@X.com "))
}

func TestIsValidUUID(t *testing.T) {
	assert.True(t, IsValidUUID("0190c1d2-7b1a-7c3e-9f00-0123456789ab"))
	assert.True(t, IsValidUUID("f47ac10b-58cc-4372-a567-0e02b2c3d479"))
	assert.False(t, IsValidUUID("not-a-uuid"))
}

func TestIsValidRoutePath(t *testing.T) {
	assert.True(t, IsValidRoutePath("/dashboard/support"))
	assert.True(t, IsValidRoutePath("/dashboard/users/[uid]"))
	assert.False(t, IsValidRoutePath("dashboard"))
	assert.False(t, IsValidRoutePath("/dash board"))
}

func TestValidationErrors(t *testing.T) {
	errs := ValidationErrors{
		{Field: "email", Message: "email is required"},
		{Field: "status", Message: "status is invalid"},
	}

	assert.Equal(t, "email: email is required; status: status is invalid", errs.Error())
	assert.Equal(t, map[string]string{
		"email":  "email is required",
		"status": "status is invalid",
	}, errs.ToMap())
}
