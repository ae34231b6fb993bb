package memberrepo

import "errors"

var (
	ErrNotFound      = errors.New("member not found")
	ErrAlreadyExists = errors.New("member already exists")
)
