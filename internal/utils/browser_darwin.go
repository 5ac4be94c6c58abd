//go:build darwin

package utils

import (
	"context"
	"os/exec"
)

func browserCommand(ctx context.Context, url string) *exec.Cmd {
	return exec.CommandContext(ctx, "open", url)
}
