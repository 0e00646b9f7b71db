package hub

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"gemmad/internal/common/fsutil"
)

// IsLocalPath reports whether file names something on disk rather than a
// path inside a hub repository: an absolute path, a '~' path or ./relative.
func IsLocalPath(file string) bool {
	return filepath.IsAbs(file) || strings.HasPrefix(file, "~") || strings.HasPrefix(file, "./") || strings.HasPrefix(file, "../")
}

// Resolve returns a local path for file. Local paths are used as-is and
// must exist; anything else is fetched from repo@revision.
func (c *Client) Resolve(ctx context.Context, repo, revision, file string) (string, error) {
	if !IsLocalPath(file) {
		return c.Fetch(ctx, repo, revision, file)
	}
	p, err := fsutil.ExpandHome(file)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("abs path: %w", err)
	}
	if _, ok := fsutil.FileSize(abs); !ok {
		return "", fmt.Errorf("hub: local file %s not found", abs)
	}
	c.log.Debug().Str("path", abs).Msg("using local model file")
	return abs, nil
}
