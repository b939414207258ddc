package drive

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
)

// FailureKind classifies drive failures so callers can distinguish
// credential problems from storage problems from everything else.
type FailureKind int

const (
	// FailureGeneric covers transport and unexpected API errors.
	FailureGeneric FailureKind = iota
	// FailurePermission means the credential cannot access the file.
	FailurePermission
	// FailureQuota means the owning account has no storage quota — the usual
	// service-account-without-a-shared-drive problem.
	FailureQuota
)

// Failure wraps a drive API error with its classification.
type Failure struct {
	Kind FailureKind
	Op   string
	Err  error
}

func (f *Failure) Error() string {
	switch f.Kind {
	case FailurePermission:
		return fmt.Sprintf("drive %s: permission denied: %v", f.Op, f.Err)
	case FailureQuota:
		return fmt.Sprintf("drive %s: no storage quota (use a Shared Drive and add the account as a member): %v", f.Op, f.Err)
	default:
		return fmt.Sprintf("drive %s: %v", f.Op, f.Err)
	}
}

func (f *Failure) Unwrap() error { return f.Err }

// IsPermission reports whether err is a permission-classified drive failure.
func IsPermission(err error) bool {
	var f *Failure
	return errors.As(err, &f) && f.Kind == FailurePermission
}

// IsQuota reports whether err is a quota-classified drive failure.
func IsQuota(err error) bool {
	var f *Failure
	return errors.As(err, &f) && f.Kind == FailureQuota
}

// classify wraps an API error with its failure kind.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	kind := FailureGeneric
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case hasReason(apiErr, "storageQuotaExceeded") ||
			strings.Contains(apiErr.Message, "storage quota"):
			kind = FailureQuota
		case apiErr.Code == 401 || apiErr.Code == 403:
			kind = FailurePermission
		}
	}
	return &Failure{Kind: kind, Op: op, Err: err}
}

func hasReason(apiErr *googleapi.Error, reason string) bool {
	for _, item := range apiErr.Errors {
		if item.Reason == reason {
			return true
		}
	}
	return false
}
