//go:build linux || darwin || windows

package utils

import (
	"context"
	"fmt"
	"net/url"
)

// OpenBrowser opens an http(s) URL in the default browser
func OpenBrowser(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("refusing to open %q: not an http(s) URL", rawURL)
	}
	return browserCommand(ctx, u.String()).Run()
}
