package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"photomaton/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if overwrite {
				if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("remove existing config: %w", err)
				}
			}
			if err := config.WriteSample(target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVar(&targetPath, "path", "", "Target path for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing configuration file")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Data dir:       %s\n", cfg.Paths.DataDir)
			fmt.Fprintf(out, "Storage dir:    %s\n", cfg.Paths.StorageDir)
			fmt.Fprintf(out, "Log dir:        %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "API bind:       %s\n", cfg.Paths.APIBind)
			fmt.Fprintf(out, "Provider:       %s (timeout %s)\n", cfg.Transform.Provider, cfg.ProviderTimeout())
			fmt.Fprintf(out, "Upload limit:   %s\n", humanBytes(cfg.MaxUploadBytes()))
			fmt.Fprintf(out, "Formats:        %s\n", strings.Join(cfg.Storage.AllowedFormats, ", "))
			fmt.Fprintf(out, "Thumbnail:      %dpx, JPEG quality %d\n", cfg.Storage.ThumbnailSize, cfg.Storage.JPEGQuality)
			watermark := "disabled"
			if cfg.Watermark.Enabled {
				watermark = fmt.Sprintf("%s at %s (padding %d,%d)",
					cfg.Watermark.OverlayPath, cfg.Watermark.Position,
					cfg.Watermark.PaddingX, cfg.Watermark.PaddingY)
			}
			fmt.Fprintf(out, "Watermark:      %s\n", watermark)
			fmt.Fprintf(out, "Restyle:        enabled=%v base_url=%s\n",
				cfg.Providers.Restyle.Enabled, orDash(cfg.Providers.Restyle.BaseURL))
			fmt.Fprintf(out, "Export prefix:  %s\n", cfg.Export.FilenamePrefix)
			fmt.Fprintf(out, "Logging:        %s/%s\n", cfg.Logging.Format, cfg.Logging.Level)
			return nil
		},
	}
}
