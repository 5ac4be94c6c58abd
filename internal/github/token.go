package github

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	pubsiteerrors "pubsite.dev/pubsite/internal/errors"
)

// tokenEnvVars are consulted in order before falling back to the gh CLI
var tokenEnvVars = []string{"PUBSITE_GITHUB_TOKEN", "GITHUB_TOKEN", "GH_TOKEN"}

// ghAuthToken is swapped out in tests
var ghAuthToken = func(ctx context.Context, hostname string) (string, error) {
	args := []string{"auth", "token"}
	if hostname != "" && hostname != DefaultHostname {
		args = append(args, "--hostname", hostname)
	}
	cmd := exec.CommandContext(ctx, "gh", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", pubsiteerrors.NewCommandError("gh", args, cmd.ProcessState.ExitCode(), stdout.String(), stderr.String(), err)
	}
	return stdout.String(), nil
}

// GetToken returns a GitHub token from the environment or the gh CLI
func GetToken(ctx context.Context, hostname string) (string, error) {
	for _, name := range tokenEnvVars {
		if token := strings.TrimSpace(os.Getenv(name)); token != "" {
			return token, nil
		}
	}

	output, err := ghAuthToken(ctx, hostname)
	if err != nil {
		return "", fmt.Errorf("%w: set GITHUB_TOKEN or run 'gh auth login': %v", pubsiteerrors.ErrNoToken, err)
	}

	token := strings.TrimSpace(output)
	if token == "" {
		return "", fmt.Errorf("%w: gh returned an empty token", pubsiteerrors.ErrNoToken)
	}
	return token, nil
}
