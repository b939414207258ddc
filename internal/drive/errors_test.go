package drive

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantPermission bool
		wantQuota      bool
	}{
		{
			name:           "403 is a permission failure",
			err:            &googleapi.Error{Code: 403, Message: "insufficient permissions"},
			wantPermission: true,
		},
		{
			name:           "401 is a permission failure",
			err:            &googleapi.Error{Code: 401},
			wantPermission: true,
		},
		{
			name: "storageQuotaExceeded reason wins over the 403 code",
			err: &googleapi.Error{
				Code:   403,
				Errors: []googleapi.ErrorItem{{Reason: "storageQuotaExceeded"}},
			},
			wantQuota: true,
		},
		{
			name:      "quota message without a reason item",
			err:       &googleapi.Error{Code: 403, Message: "The user's Drive storage quota has been exceeded."},
			wantQuota: true,
		},
		{
			name: "transport error stays generic",
			err:  errors.New("connection reset"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify("upload", tt.err)
			assert.Equal(t, tt.wantPermission, IsPermission(got))
			assert.Equal(t, tt.wantQuota, IsQuota(got))
			assert.ErrorIs(t, got, tt.err)
		})
	}

	assert.NoError(t, classify("upload", nil))
}
