// Package helpers provides shared helper functions for CLI commands.
package helpers

import (
	"github.com/spf13/cobra"

	"pubsite.dev/pubsite/internal/runtime"
)

// ProjectFlag is the persistent flag naming the project directory
const ProjectFlag = "project"

// Run is a helper that provides a runtime context to a command's execution function.
// The context is closed once fn returns.
func Run(cmd *cobra.Command, fn func(ctx *runtime.Context) error) (err error) {
	root, _ := cmd.Flags().GetString(ProjectFlag)
	logFile, _ := cmd.Flags().GetString("log-file")

	ctx, err := runtime.NewContext(cmd.Context(), runtime.Options{
		Root:    root,
		Out:     cmd.OutOrStdout(),
		LogFile: logFile,
	})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := ctx.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return fn(ctx)
}
