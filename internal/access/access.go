// Package access decides whether a caller may act on a file.
//
// The rule is the same for every private operation: admins may act on any
// file, everyone else only on files they own. Public share-token downloads
// never pass through this package; possession of the token is the credential.
package access

import (
	"errors"
	"fmt"

	"github.com/templui/fileshare/internal/model"
)

var ErrForbidden = errors.New("forbidden")

type Action int

const (
	ActionRead Action = iota + 1
	ActionDelete
	ActionShare
	ActionUpload
	ActionList
)

func (a Action) String() string {
	switch a {
	case ActionRead:
		return "read"
	case ActionDelete:
		return "delete"
	case ActionShare:
		return "share"
	case ActionUpload:
		return "upload"
	case ActionList:
		return "list"
	default:
		return "unknown"
	}
}

// Authorize returns nil when caller may perform action on file,
// and an error wrapping ErrForbidden otherwise.
func Authorize(caller model.Caller, file *model.File, action Action) error {
	if file == nil {
		return fmt.Errorf("%w: no file", ErrForbidden)
	}
	return AuthorizeOwner(caller, file.OwnerID, action)
}

// AuthorizeOwner applies the file rule when only the owner id is known,
// e.g. before a file exists.
func AuthorizeOwner(caller model.Caller, ownerID string, action Action) error {
	if caller.ID == "" {
		return fmt.Errorf("%w: anonymous caller cannot %s", ErrForbidden, action)
	}

	switch caller.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleUser:
		if ownerID != "" && caller.ID == ownerID {
			return nil
		}
		return fmt.Errorf("%w: user %s cannot %s resources of %s", ErrForbidden, caller.ID, action, ownerID)
	default:
		return fmt.Errorf("%w: unknown role for user %s", ErrForbidden, caller.ID)
	}
}
