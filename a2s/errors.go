package a2s

import "github.com/calyxforge/valveclient/errs"

func errBadQueryChallenge() error {
	return errs.ErrBadQueryChallenge
}
