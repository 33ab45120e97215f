package blob

import (
	"vnastore/internal/infra/blob/fs"
)

// NewFilesystem constructs a filesystem-backed Store rooted at root.
func NewFilesystem(root string) (Store, error) {
	st, err := fs.New(root)
	if err != nil {
		return nil, err
	}
	return st, nil
}
