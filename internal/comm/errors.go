package comm

import appErrors "github.com/transfermesh/dtk/pkg/errors"

func invariantf(msg string) error {
	return appErrors.New(appErrors.CodeInvariantViolation, msg)
}
