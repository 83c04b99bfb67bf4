package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	assert.Equal(t, "users", User{}.TableName(), "Table name should be 'users'")
	assert.Equal(t, "technicians", Technician{}.TableName())
	assert.Equal(t, "services", Service{}.TableName())
	assert.Equal(t, "bookings", Booking{}.TableName())
}

func TestValidRole(t *testing.T) {
	tests := []struct {
		name string
		role string
		want bool
	}{
		{"customer role", RoleCustomer, true},
		{"technician role", RoleTechnician, true},
		{"admin role", RoleAdmin, true},
		{"empty role", "", false},
		{"unknown role", "superuser", false},
		{"wrong case", "Admin", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidRole(tt.role))
		})
	}
}

func TestUserDefaultValues(t *testing.T) {
	user := User{
		Email: "new@example.com",
	}

	assert.Equal(t, "new@example.com", user.Email, "Email should be set")
	assert.Equal(t, "", user.Role, "Role should be empty string by default in Go struct")
	assert.Nil(t, user.Phone)
}
