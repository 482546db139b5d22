package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modpack-run/modsync/cmd/util"
	"github.com/modpack-run/modsync/pkg/errors"
	"github.com/modpack-run/modsync/pkg/settings"
)

// New creates a new `config` command.
func New() *cobra.Command {
	var modFolder, theme string
	var removeOld bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the modsync settings.",
		Long: "Show or change the persisted modsync settings.\n" +
			"Without flags, the current settings are printed. Each flag that is\n" +
			"set updates the corresponding setting and writes the settings file.",
		Run: func(cmd *cobra.Command, _ []string) {
			if err := run(cmd, modFolder, removeOld, theme); err != nil {
				util.HandleFatalError(err)
			}
		},
	}

	cmd.Flags().StringVar(&modFolder, "mod-folder", "",
		"The local directory to keep in sync.")
	cmd.Flags().BoolVar(&removeOld, "remove-old", true,
		"Whether to delete local files the manifest no longer references.")
	cmd.Flags().StringVar(&theme, "theme", settings.ThemeDark,
		"The UI theme preference (dark or light).")
	return cmd
}

func run(cmd *cobra.Command, modFolder string, removeOld bool, theme string) error {
	current, err := settings.Load()
	if err != nil {
		return errors.WithContext(err, "load settings")
	}

	changed := false
	if cmd.Flags().Changed("mod-folder") {
		current.ModFolder = modFolder
		changed = true
	}
	if cmd.Flags().Changed("remove-old") {
		current.RemoveOld = removeOld
		changed = true
	}
	if cmd.Flags().Changed("theme") {
		if theme != settings.ThemeDark && theme != settings.ThemeLight {
			return errors.NewFriendlyError(
				"Unknown theme %q. The supported themes are %q and %q.",
				theme, settings.ThemeDark, settings.ThemeLight)
		}
		current.Theme = theme
		changed = true
	}

	if changed {
		if err := current.Save(); err != nil {
			return errors.WithContext(err, "save settings")
		}
	}

	path, err := settings.Path()
	if err != nil {
		return errors.WithContext(err, "get settings path")
	}

	fmt.Printf("Settings file: %s\n\n", path)
	fmt.Printf("mod_folder: %q\n", current.ModFolder)
	fmt.Printf("remove_old: %v\n", current.RemoveOld)
	fmt.Printf("theme:      %s\n", current.Theme)
	return nil
}
