package generate

import (
	"fmt"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/modpack-run/modsync/cmd/util"
	"github.com/modpack-run/modsync/pkg/errors"
	"github.com/modpack-run/modsync/pkg/fswatch"
	"github.com/modpack-run/modsync/pkg/manifest"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// New creates a new `generate` command.
func New() *cobra.Command {
	var configPath, outPath string
	var watch, gitVersion bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the manifest for a modpack repository.",
		Long: "Scan the configured category directories and write a manifest\n" +
			"listing every published file with its content hash. Consumers use\n" +
			"the manifest to decide which files to download.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(configPath, outPath, watch, gitVersion); err != nil {
				util.HandleFatalError(err)
			}
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "modsync.yaml",
		"Path to the build configuration.")
	cmd.Flags().StringVar(&outPath, "out", "manifest.json",
		"Path the manifest is written to.")
	cmd.Flags().BoolVar(&watch, "watch", false,
		"Keep running and regenerate the manifest when files change.")
	cmd.Flags().BoolVar(&gitVersion, "git-version", false,
		"Stamp the manifest version from the repository's HEAD commit.")
	return cmd
}

func run(configPath, outPath string, watch, gitVersion bool) error {
	cfg, err := manifest.ParseBuildConfig(configPath)
	if err != nil {
		if _, ok := errors.RootCause(err).(errors.FileNotFound); ok {
			log.WithField("path", configPath).
				Debug("No build configuration found, using defaults")
			cfg = manifest.DefaultBuildConfig()
		} else {
			return errors.WithContext(err, "parse build config")
		}
	}

	// Category roots are resolved relative to the build configuration, so
	// `modsync generate` works from anywhere in the repository.
	baseDir := filepath.Dir(configPath)
	for i, spec := range cfg.Categories {
		if !filepath.IsAbs(spec.Root) {
			cfg.Categories[i].Root = filepath.Join(baseDir, spec.Root)
		}
	}

	if gitVersion {
		v, err := manifest.GitVersion(baseDir)
		if err != nil {
			return errors.WithContext(err, "derive version from git")
		}
		cfg.Version = v
	}

	if err := generateOnce(cfg, outPath); err != nil {
		if !watch {
			return err
		}
		log.WithError(err).Warn("Initial generation was incomplete")
	}

	if !watch {
		return nil
	}
	return watchLoop(cfg, outPath)
}

// generateOnce builds the manifest and writes it out. A manifest with no
// entries is never written; a partial manifest (some category roots missing)
// is written but still reported as an error.
func generateOnce(cfg manifest.BuildConfig, outPath string) error {
	m, buildErr := manifest.Build(cfg)
	if m.EntryCount() == 0 && buildErr != nil {
		return errors.WithContext(buildErr, "build manifest")
	}

	warnOnVersionRegression(m, outPath)

	contents, err := manifest.Marshal(m)
	if err != nil {
		return errors.WithContext(err, "marshal manifest")
	}

	if err := afero.WriteFile(fs, outPath, contents, 0644); err != nil {
		return errors.WithContext(err, "write manifest")
	}

	fmt.Printf("Manifest generated with %d files.\n", m.EntryCount())
	if buildErr != nil {
		log.WithError(buildErr).Warn("Manifest is partial: not every category was scanned")
		return buildErr
	}
	return nil
}

// warnOnVersionRegression compares the new manifest version against the one
// being replaced. Publishing a lower version usually means the configured
// version was forgotten.
func warnOnVersionRegression(m manifest.Manifest, outPath string) {
	contents, err := afero.ReadFile(fs, outPath)
	if err != nil {
		return
	}

	previous, err := manifest.Parse(contents)
	if err != nil {
		return
	}

	cmp, err := manifest.CompareVersions(m.Version, previous.Version)
	if err != nil {
		log.WithError(err).Debug("Skipping version comparison")
		return
	}
	if cmp < 0 {
		log.WithFields(log.Fields{
			"previous": previous.Version,
			"new":      m.Version,
		}).Warn("The new manifest version is lower than the one it replaces")
	}
}

// watchLoop regenerates the manifest whenever a watched category root
// changes, until the process is terminated.
func watchLoop(cfg manifest.BuildConfig, outPath string) error {
	var roots []string
	for _, spec := range cfg.Categories {
		if exists, _ := afero.DirExists(fs, spec.Root); exists {
			roots = append(roots, spec.Root)
		}
	}
	if len(roots) == 0 {
		return errors.New("no category roots exist to watch")
	}

	changes, err := fswatch.Watch(roots)
	if err != nil {
		return errors.WithContext(err, "watch category roots")
	}

	log.WithField("roots", roots).Info("Watching for changes")
	for range changes {
		if err := generateOnce(cfg, outPath); err != nil {
			log.WithError(err).Warn("Regeneration failed; still watching")
		}
	}
	return nil
}
