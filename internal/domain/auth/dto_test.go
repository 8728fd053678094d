package auth

import (
	"strings"
	"testing"

	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginRequest_Validate(t *testing.T) {
	req := LoginRequest{Email: "  Ops@Example.COM ", Password: "correct horse"}
	require.NoError(t, req.Validate())
	assert.Equal(t, "ops@example.com", req.Email)

	cases := []struct {
		name  string
		req   LoginRequest
		field string
	}{
		{"missing email", LoginRequest{Password: "longenough"}, "email"},
		{"bad email", LoginRequest{Email: "ops@", Password: "longenough"}, "email"},
		{"short password", LoginRequest{Email: "ops@example.com", Password: "short"}, "password"},
		{"long password", LoginRequest{Email: "ops@example.com", Password: strings.Repeat("p", 73)}, "password"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var errs validator.ValidationErrors
			require.ErrorAs(t, tc.req.Validate(), &errs)
			assert.Contains(t, errs.ToMap(), tc.field)
		})
	}
}
