package update

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/modpack-run/modsync/cmd/util"
	"github.com/modpack-run/modsync/pkg/errors"
	"github.com/modpack-run/modsync/pkg/manifest"
	"github.com/modpack-run/modsync/pkg/reconcile"
	"github.com/modpack-run/modsync/pkg/settings"
	"github.com/modpack-run/modsync/pkg/transport"
)

// The published locations of the modpack. The manifest lists what to sync;
// entries without explicit URLs resolve against the per-category bases.
var (
	manifestURL = "https://raw.githubusercontent.com/modpack-run/modpack/main/manifest.json"
	baseURLs    = map[string]string{
		manifest.CategoryMods:    "https://raw.githubusercontent.com/modpack-run/modpack/main/mods/",
		manifest.CategoryConfigs: "https://raw.githubusercontent.com/modpack-run/modpack/main/config/",
	}
)

// New creates a new `update` command.
func New() *cobra.Command {
	var manifestOverride string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Synchronize the local mod folder with the published modpack.",
		Long: "Fetch the modpack manifest and bring the local mod folder into\n" +
			"exact correspondence with it: missing and outdated files are\n" +
			"downloaded and verified, and stale files are removed when cleanup\n" +
			"is enabled in the settings.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(manifestOverride, dryRun); err != nil {
				util.HandleFatalError(err)
			}
		},
	}

	cmd.Flags().StringVar(&manifestOverride, "manifest", "",
		"Fetch the manifest from this URL instead of the published one.")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"Plan the sync and print it without changing any files.")
	return cmd
}

func run(manifestOverride string, dryRun bool) error {
	userSettings, err := settings.Load()
	if err != nil {
		return errors.WithContext(err, "load settings")
	}
	if userSettings.ModFolder == "" {
		return errors.NewFriendlyError(
			"The mod folder isn't set yet. Please run\n\n" +
				"\tmodsync config --mod-folder <path>\n\n" +
				"to choose the directory to keep in sync.")
	}

	url := manifestURL
	if manifestOverride != "" {
		url = manifestOverride
	}
	log.WithField("url", url).Debug("Manifest location")
	for category, base := range baseURLs {
		log.WithFields(log.Fields{"category": category, "url": base}).
			Debug("Download location")
	}

	fetcher := transport.NewHTTP(nil)
	m, err := fetchManifest(fetcher, url)
	if err != nil {
		return err
	}

	fmt.Printf("Modpack: %s (version %s)\n", m.Name, m.Version)

	plan, err := reconcile.PlanSync(m, userSettings.ModFolder, reconcile.Options{
		RemoveStale: userSettings.RemoveOld,
		Policies:    reconcile.DefaultPolicies,
	})
	if err != nil {
		if errors.RootCause(err) == errors.ErrEmptyManifest {
			return errors.NewFriendlyError(
				"The fetched manifest lists no files at all, which usually means\n" +
					"the published modpack is broken. Nothing was changed locally.")
		}
		return errors.WithContext(err, "plan sync")
	}

	keep, fetch, del := plan.Counts()
	fmt.Printf("Plan: %d up-to-date, %d to download, %d to delete\n", keep, fetch, del)
	for _, stale := range plan.SkippedStale {
		fmt.Printf("Stale (kept, cleanup disabled): %s\n", stale)
	}

	if dryRun {
		for _, action := range plan.Actions {
			fmt.Printf("  %-6s %s\n", action.Kind, action.TrackedPath())
		}
		return nil
	}

	result := reconcile.Execute(interruptContext(), plan, fetcher, printerHooks())

	fmt.Printf("\n=== Update Complete ===\n")
	fmt.Printf("Successful: %d | Failed: %d\n", result.Succeeded, result.Failed)

	if result.Cancelled {
		return errors.NewFriendlyError(
			"The update was interrupted. Already-verified files were kept;\n" +
				"run `modsync update` again to finish.")
	}
	if result.Failed > 0 {
		return errors.NewFriendlyError(
			"%d of %d files failed to sync. The log above lists each failure;\n"+
				"running `modsync update` again retries just the failed files.",
			result.Failed, len(result.Results))
	}
	return nil
}

func fetchManifest(fetcher transport.Fetcher, url string) (manifest.Manifest, error) {
	pp := util.NewProgressPrinter(os.Stdout, "Fetching manifest")
	go pp.Run()
	m, err := fetcher.FetchManifest(url)
	pp.Stop()
	if err != nil {
		return manifest.Manifest{}, errors.WithContext(err, "fetch manifest")
	}

	if err := m.ResolveSources(baseURLs); err != nil {
		return manifest.Manifest{}, errors.WithContext(err, "resolve download locations")
	}
	return m, nil
}

// printerHooks renders per-file lines and an in-place progress bar for the
// file currently downloading.
func printerHooks() reconcile.Hooks {
	var current string
	var sawProgress bool
	return reconcile.Hooks{
		OnAction: func(a reconcile.Action) {
			current = a.TrackedPath()
			sawProgress = false
			if a.Kind == reconcile.Fetch {
				fmt.Printf("Downloading %s\n", current)
			}
		},
		OnProgress: func(done, total int64) {
			sawProgress = true
			util.RenderDownloadProgress(os.Stdout, current, done, total)
		},
		OnResult: func(r reconcile.ActionResult) {
			if sawProgress {
				fmt.Println()
			}
			switch r.Outcome {
			case reconcile.Success:
				fmt.Printf("  %-6s %s: ok\n", r.Action.Kind, r.Action.TrackedPath())
			default:
				fmt.Printf("  %-6s %s: %s (%s)\n",
					r.Action.Kind, r.Action.TrackedPath(), r.Outcome, r.Err)
			}
		},
	}
}

// interruptContext cancels on SIGINT/SIGTERM. Cancellation is coarse: the
// in-flight file finishes, and the run stops before the next action.
func interruptContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signals
		log.Warn("Interrupt received; stopping after the current file")
		cancel()
	}()
	return ctx
}
