package transfer

import (
	"context"
	"errors"

	"github.com/largo-sh/largo/pkg/storage"
)

// Stat probes the backend for key. It checks existence before size so a
// missing object is always reported as missing, never as a size mismatch.
// An object that disappears between the two calls counts as missing.
func Stat(ctx context.Context, s storage.Storage, key storage.ObjectKey) (found bool, size int64, err error) {
	found, err = s.Exists(ctx, key)
	if err != nil || !found {
		return false, 0, err
	}

	size, err = s.Size(ctx, key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, err
	}

	return true, size, nil
}
