//go:build windows

package utils

import (
	"context"
	"os/exec"
)

func browserCommand(ctx context.Context, url string) *exec.Cmd {
	return exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", url)
}
