package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"reelay/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "records_dir          %s\n", cfg.Paths.RecordsDir)
			fmt.Fprintf(out, "log_dir              %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "graph base_url       %s\n", cfg.Instagram.BaseURL)
			fmt.Fprintf(out, "access_token set     %s\n", yesNo(cfg.Instagram.AccessToken != ""))
			fmt.Fprintf(out, "business_account_id  %s\n", cfg.Instagram.BusinessAccountID)
			fmt.Fprintf(out, "processing_timeout   %ds\n", cfg.Instagram.ProcessingTimeout)
			fmt.Fprintf(out, "poll_interval        %ds\n", cfg.Instagram.PollInterval)
			fmt.Fprintf(out, "cloudinary cloud     %s\n", cfg.Cloudinary.CloudName)
			fmt.Fprintf(out, "cloudinary folder    %s\n", cfg.Cloudinary.Folder)
			fmt.Fprintf(out, "timezone             %s\n", cfg.Scheduling.Timezone)
			fmt.Fprintf(out, "default_lead_hours   %d\n", cfg.Scheduling.DefaultLeadHours)
			fmt.Fprintf(out, "retention_days       %d\n", cfg.Scheduling.CleanupRetentionDays)
			fmt.Fprintf(out, "ntfy_topic set       %s\n", yesNo(cfg.Notifications.NtfyTopic != ""))
			fmt.Fprintf(out, "log format/level     %s/%s\n", cfg.Logging.Format, cfg.Logging.Level)
			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set the Instagram and Cloudinary credentials before scheduling posts.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}
