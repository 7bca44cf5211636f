package distributed

import appErrors "github.com/transfermesh/dtk/pkg/errors"

func wrapCommErr(msg string, err error) error {
	return appErrors.Wrap(appErrors.CodeCommunication, msg, err)
}
