package cli

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"tributary.dev/cli/cmd/tributary/cli/claudecode"
	"tributary.dev/cli/cmd/tributary/cli/paths"
	"tributary.dev/cli/cmd/tributary/cli/settings"
)

func newEnableCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "enable",
		Short: "Register session hooks in this repository",
		Long: "Registers the lifecycle hooks in .claude/settings.json and marks the\n" +
			"repository as enabled in .tributary/settings.json.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEnable(cmd, yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

func runEnable(cmd *cobra.Command, yes bool) error {
	repoRoot, err := paths.RepoRoot()
	if err != nil {
		return errors.New("tributary must be enabled inside a git repository")
	}

	w := cmd.OutOrStdout()

	if !yes && isInteractive() {
		var confirm bool
		form := NewAccessibleForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Enable tributary in this repository?").
					Description("Hooks will be added to .claude/settings.json so each assistant\nsession's file and commit attribution is recorded.").
					Affirmative("Enable").
					Negative("Cancel").
					Value(&confirm),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("confirmation cancelled: %w", err)
		}
		if !confirm {
			fmt.Fprintln(w, "Enable cancelled.")
			return nil
		}
	}

	installed, err := claudecode.InstallHooks(repoRoot)
	if err != nil {
		return fmt.Errorf("failed to install hooks: %w", err)
	}
	if installed > 0 {
		fmt.Fprintln(w, "✓ Claude Code hooks installed")
	} else {
		fmt.Fprintln(w, "✓ Claude Code hooks verified")
	}

	// Preserve any existing settings fields; only flip enabled.
	cfg, err := settings.Load(repoRoot)
	if err != nil {
		cfg = &settings.Settings{}
	}
	cfg.Enabled = true
	if err := settings.Save(repoRoot, cfg); err != nil {
		return err
	}
	fmt.Fprintln(w, "✓ Repository enabled")

	return nil
}

func newDisableCmd() *cobra.Command {
	var keepHooks bool

	cmd := &cobra.Command{
		Use:   "disable",
		Short: "Unregister session hooks in this repository",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDisable(cmd, keepHooks)
		},
	}

	cmd.Flags().BoolVar(&keepHooks, "keep-hooks", false, "Leave .claude/settings.json untouched, only disable in settings")

	return cmd
}

func runDisable(cmd *cobra.Command, keepHooks bool) error {
	repoRoot, err := paths.RepoRoot()
	if err != nil {
		return errors.New("not inside a git repository")
	}

	w := cmd.OutOrStdout()

	if !keepHooks {
		removed, err := claudecode.UninstallHooks(repoRoot)
		if err != nil {
			return fmt.Errorf("failed to remove hooks: %w", err)
		}
		if removed > 0 {
			fmt.Fprintln(w, "✓ Claude Code hooks removed")
		}
	}

	cfg, err := settings.Load(repoRoot)
	if err != nil {
		cfg = &settings.Settings{}
	}
	cfg.Enabled = false
	if err := settings.Save(repoRoot, cfg); err != nil {
		return err
	}
	fmt.Fprintln(w, "✓ Repository disabled")

	return nil
}
