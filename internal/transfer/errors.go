package transfer

import appErrors "github.com/transfermesh/dtk/pkg/errors"

func wrapErr(msg string, err error) error {
	return appErrors.Wrap(appErrors.CodeCommunication, msg, err)
}
