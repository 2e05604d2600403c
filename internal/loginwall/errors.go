package loginwall

import (
	"errors"
	"fmt"
)

// ErrLoginRedirect matches every *LoginRedirectError via errors.Is.
var ErrLoginRedirect = errors.New("login redirect detected")

// LoginRedirectError is returned by Assert when a page is a login wall.
type LoginRedirectError struct {
	SiteName    string
	Reason      string
	OriginalURL string
}

func (e *LoginRedirectError) Error() string {
	return fmt.Sprintf("%s: %s redirected %s to a login page (%s)",
		ErrLoginRedirect.Error(), e.SiteName, e.OriginalURL, e.Reason)
}

// Is reports whether target is ErrLoginRedirect.
func (e *LoginRedirectError) Is(target error) bool {
	return target == ErrLoginRedirect
}

// AsLoginRedirect extracts the detail from err if it carries a login
// redirect verdict.
func AsLoginRedirect(err error) (*LoginRedirectError, bool) {
	var lr *LoginRedirectError
	if errors.As(err, &lr) {
		return lr, true
	}
	return nil, false
}
