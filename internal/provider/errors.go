package provider

import (
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"

	"github.com/floworx/floworx-core/internal/common"
)

// wrapGoogleError converts a Gmail API failure into a ProviderError carrying
// the HTTP status, so retry policy can separate 429/5xx from hard failures.
func wrapGoogleError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &common.ProviderError{Op: op, Err: err, StatusCode: gerr.Code}
	}
	return &common.ProviderError{Op: op, Err: err}
}

// graphError builds a ProviderError from a raw Graph API response.
func graphError(op string, status int, body []byte) error {
	return &common.ProviderError{
		Op:         op,
		Err:        fmt.Errorf("graph API error: %s", string(body)),
		StatusCode: status,
	}
}
