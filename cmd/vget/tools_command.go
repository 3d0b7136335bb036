package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vget/internal/logging"
)

func newToolsCommand(ctx *commandContext) *cobra.Command {
	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "Manage the yt-dlp and ffmpeg binaries",
	}

	toolsCmd.AddCommand(newToolsEnsureCommand(ctx))
	toolsCmd.AddCommand(newToolsStatusCommand(ctx))

	return toolsCmd
}

func newToolsEnsureCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure",
		Short: "Fetch any missing tool binaries into the cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}

			provisioner, err := ctx.provisioner()
			if err != nil {
				return err
			}
			paths, err := provisioner.Ensure(cmd.Context(), logger)
			if err != nil {
				return err
			}

			rows := [][]string{
				{"yt-dlp", paths.YtdlpPath},
				{"ffmpeg", paths.FFmpegDir},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Tool", "Location"}, rows, nil))
			return nil
		},
	}
}

func newToolsStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where each tool resolves from, without fetching",
		RunE: func(cmd *cobra.Command, args []string) error {
			provisioner, err := ctx.provisioner()
			if err != nil {
				return err
			}
			statuses, err := provisioner.Status()
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(statuses))
			for _, st := range statuses {
				present := "missing"
				if st.Present {
					present = "present"
				}
				path := st.Path
				if path == "" {
					path = "-"
				}
				rows = append(rows, []string{st.Name, present, st.Source, path})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Tool", "State", "Source", "Path"}, rows, nil))
			return nil
		},
	}
}
