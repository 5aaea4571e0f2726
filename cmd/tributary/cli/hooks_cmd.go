package cli

import (
	"github.com/spf13/cobra"

	"tributary.dev/cli/cmd/tributary/cli/claudecode"
	"tributary.dev/cli/cmd/tributary/cli/hookio"
	"tributary.dev/cli/cmd/tributary/cli/lifecycle"
)

func newHooksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "hooks",
		Short:  "Hook handlers",
		Long:   "Commands called by host hooks. These are internal and not for direct user use.",
		Hidden: true, // Internal command, not for direct user use
	}

	cmd.AddCommand(newClaudeCodeHooksCmd())

	return cmd
}

func newClaudeCodeHooksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claude-code",
		Short: "Claude Code hook handlers",
	}

	hooks := []struct {
		verb  string
		event lifecycle.Event
		name  string
	}{
		{claudecode.HookNameSessionStart, lifecycle.EventSessionStart, hookio.EventSessionStart},
		{claudecode.HookNameUserPromptSubmit, lifecycle.EventUserPromptSubmit, hookio.EventUserPromptSubmit},
		{claudecode.HookNameStop, lifecycle.EventStop, hookio.EventStop},
		{claudecode.HookNameSessionEnd, lifecycle.EventSessionEnd, hookio.EventSessionEnd},
	}

	for _, h := range hooks {
		h := h
		cmd.AddCommand(&cobra.Command{
			Use:   h.verb,
			Short: "Handle the " + h.name + " event",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return handleHookEvent(cmd, h.event, h.name)
			},
		})
	}

	return cmd
}
