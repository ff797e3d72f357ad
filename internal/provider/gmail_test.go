package provider

import (
	"errors"
	"net/http"
	"testing"

	"google.golang.org/api/googleapi"

	"github.com/floworx/floworx-core/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitPathLabel(t *testing.T) {
	idByPath := map[string]string{
		"banking":            "l-banking",
		"banking/e-transfer": "l-et",
	}

	tests := []struct {
		name       string
		id         string
		fullName   string
		wantName   string
		wantParent string
	}{
		{"top level", "l-banking", "BANKING", "BANKING", ""},
		{"nested", "l-et", "BANKING/e-transfer", "e-transfer", "l-banking"},
		{"deeply nested", "l-rcv", "BANKING/e-transfer/received", "received", "l-et"},
		{"orphaned path", "l-x", "Missing/child", "child", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitPathLabel(tt.id, tt.fullName, idByPath)
			assert.Equal(t, tt.id, got.ID)
			assert.Equal(t, tt.wantName, got.Name)
			assert.Equal(t, tt.wantParent, got.ParentID)
		})
	}
}

func TestWrapGoogleError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantStatus    int
		wantTransient bool
	}{
		{"rate limited", &googleapi.Error{Code: http.StatusTooManyRequests}, 429, true},
		{"server error", &googleapi.Error{Code: http.StatusServiceUnavailable}, 503, true},
		{"not found", &googleapi.Error{Code: http.StatusNotFound}, 404, false},
		{"forbidden", &googleapi.Error{Code: http.StatusForbidden}, 403, false},
		{"plain error", errors.New("connection reset"), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := wrapGoogleError("gmail.ListLabels", tt.err)

			var provErr *common.ProviderError
			require.ErrorAs(t, wrapped, &provErr)
			assert.Equal(t, tt.wantStatus, provErr.StatusCode)
			assert.Equal(t, tt.wantTransient, provErr.Transient())
			assert.ErrorIs(t, wrapped, tt.err)
		})
	}
}
