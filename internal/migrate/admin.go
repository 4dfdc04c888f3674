package migrate

import (
	"context"
	"fmt"

	"counselbot.org/internal/auth"
)

// DefaultAdmin is the administrator created by a fresh deployment.
var DefaultAdmin = auth.Registration{
	Name:    "Admin User",
	Email:   "admin@maseno.ac.ke",
	IsAdmin: true,
	Profile: auth.Profile{
		Phone:          "+254700000000",
		Specialization: "System Administration",
		Bio:            "System administrator for Maseno Counseling Bot",
		OfficeLocation: "Main Campus - Admin Office",
		OfficeHours:    "Monday-Friday: 8:00 AM - 5:00 PM",
	},
}

// EnsureAdmin provisions reg with the given password unless the email exists.
func EnsureAdmin(ctx context.Context, p auth.Provisioner, reg auth.Registration, password string) (auth.Principal, bool, error) {
	if password == "" {
		return auth.Principal{}, false, fmt.Errorf("%w: admin password is required", auth.ErrInvalidInput)
	}
	reg.IsAdmin = true
	return auth.Provision(ctx, p, reg, password)
}
