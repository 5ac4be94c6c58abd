//go:build linux

package utils

import (
	"context"
	"os/exec"
)

func browserCommand(ctx context.Context, url string) *exec.Cmd {
	return exec.CommandContext(ctx, "xdg-open", url)
}
