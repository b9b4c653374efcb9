package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/invitation"
	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/role"
	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/user"
	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{
			name:        "conflict message follows existing status",
			err:         &invitation.ConflictError{Existing: invitation.StatusRequested},
			wantStatus:  http.StatusConflict,
			wantCode:    "CONFLICT",
			wantMessage: "Your request is pending approval.",
		},
		{
			name:        "store error surfaced verbatim",
			err:         &invitation.StoreError{Err: errors.New("permission denied")},
			wantStatus:  http.StatusInternalServerError,
			wantCode:    "INTERNAL_SERVER_ERROR",
			wantMessage: "permission denied",
		},
		{
			name:        "invitation not found",
			err:         invitation.ErrInvitationNotFound,
			wantStatus:  http.StatusNotFound,
			wantCode:    "NOT_FOUND",
			wantMessage: "Invitation not found",
		},
		{
			name:        "role update failure is generic",
			err:         role.ErrRoleUpdateFailed,
			wantStatus:  http.StatusInternalServerError,
			wantCode:    "INTERNAL_SERVER_ERROR",
			wantMessage: "Failed to update role",
		},
		{
			name:        "unknown role names the role",
			err:         fmt.Errorf("%w: ghost", role.ErrUnknownRole),
			wantStatus:  http.StatusBadRequest,
			wantCode:    "BAD_REQUEST",
			wantMessage: "unknown role: ghost",
		},
		{
			name:        "self delete",
			err:         user.ErrCannotDeleteSelf,
			wantStatus:  http.StatusForbidden,
			wantCode:    "FORBIDDEN",
			wantMessage: "You cannot delete your own account",
		},
		{
			name:        "validation",
			err:         validator.ValidationErrors{{Field: "email", Message: "email is required"}},
			wantStatus:  http.StatusUnprocessableEntity,
			wantCode:    "VALIDATION_ERROR",
			wantMessage: "Validation failed",
		},
		{
			name:        "unknown error",
			err:         errors.New("boom"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    "INTERNAL_SERVER_ERROR",
			wantMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var body Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantMessage, body.Message)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantCode, body.Error.Code)
		})
	}
}
