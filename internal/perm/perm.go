// Package perm ranks collaborator permissions on boards and documents.
package perm

type Permission string

const (
	View Permission = "view"
	Edit Permission = "edit"
)

func rank(p Permission) int {
	switch p {
	case Edit:
		return 1
	case View:
		return 0
	default:
		return -1
	}
}

// Allows reports whether a collaborator holding `have` may perform an
// action requiring `need`.
func Allows(have, need Permission) bool {
	return rank(have) >= rank(need) && rank(have) >= 0
}

func Valid(p Permission) bool {
	return p == View || p == Edit
}

// Normalize maps unknown values to the weakest permission.
func Normalize(raw string) Permission {
	if Valid(Permission(raw)) {
		return Permission(raw)
	}
	return View
}
