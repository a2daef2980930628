package access_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/templui/fileshare/internal/access"
	"github.com/templui/fileshare/internal/model"
)

func TestAuthorize(t *testing.T) {
	t.Parallel()

	file := &model.File{ID: "f1", OwnerID: "owner"}
	actions := []access.Action{access.ActionRead, access.ActionDelete, access.ActionShare}

	tests := []struct {
		name   string
		caller model.Caller
		allow  bool
	}{
		{"owner", model.Caller{ID: "owner", Role: model.RoleUser}, true},
		{"admin", model.Caller{ID: "root", Role: model.RoleAdmin}, true},
		{"admin owning the file", model.Caller{ID: "owner", Role: model.RoleAdmin}, true},
		{"other user", model.Caller{ID: "mallory", Role: model.RoleUser}, false},
		{"anonymous", model.Caller{}, false},
		{"unknown role", model.Caller{ID: "owner"}, false},
		{"out of range role", model.Caller{ID: "owner", Role: model.Role(99)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			for _, action := range actions {
				err := access.Authorize(tt.caller, file, action)
				if tt.allow {
					assert.NoError(t, err, action.String())
				} else {
					assert.ErrorIs(t, err, access.ErrForbidden, action.String())
				}
			}
		})
	}
}

func TestAuthorize_NilFile(t *testing.T) {
	t.Parallel()
	err := access.Authorize(model.Caller{ID: "root", Role: model.RoleAdmin}, nil, access.ActionRead)
	assert.ErrorIs(t, err, access.ErrForbidden)
}

func TestAuthorizeOwner(t *testing.T) {
	t.Parallel()

	user := model.Caller{ID: "u1", Role: model.RoleUser}
	admin := model.Caller{ID: "a1", Role: model.RoleAdmin}

	assert.NoError(t, access.AuthorizeOwner(user, "u1", access.ActionUpload))
	assert.ErrorIs(t, access.AuthorizeOwner(user, "u2", access.ActionUpload), access.ErrForbidden)
	assert.ErrorIs(t, access.AuthorizeOwner(user, "", access.ActionList), access.ErrForbidden)
	assert.NoError(t, access.AuthorizeOwner(admin, "u2", access.ActionList))
}
