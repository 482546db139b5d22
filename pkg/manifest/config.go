package manifest

import (
	"os"

	"github.com/ghodss/yaml"
	"github.com/spf13/afero"

	"github.com/modpack-run/modsync/pkg/errors"
)

// parseConfigErrTemplate is a template for when we fail to parse the build
// configuration file. This can happen for a multitude of reasons, including
// extraneous fields and incorrect field types. However, the yaml library
// constructs errors in a way that loses context, and so we can only pass the
// error message on.
const parseConfigErrTemplate = "Build configuration could not be parsed. " +
	"Please review %q.\n" +
	"Common pitfalls include:\n" +
	" - Using the wrong types for fields\n" +
	" - Having extra fields inside the config file\n\n" +
	"For reference, here is the error from the parser:\n" +
	"%s"

// DefaultBuildConfig mirrors the published repository layout: jar files flat
// in mods/, configs recursive under config/. It's used when the build
// configuration file declares no categories of its own.
func DefaultBuildConfig() BuildConfig {
	return BuildConfig{
		Name:    "Modpack",
		Version: "1.0.0",
		Categories: []CategorySpec{
			{
				Name:       CategoryMods,
				Root:       "mods",
				Extensions: []string{".jar"},
				Prune:      true,
			},
			{
				Name:      CategoryConfigs,
				Root:      "config",
				Recursive: true,
				Prune:     true,
			},
		},
	}
}

// ParseBuildConfig reads the build configuration from path.
func ParseBuildConfig(path string) (BuildConfig, error) {
	contents, err := afero.ReadFile(fs, path)
	if err != nil {
		if isPathNotFoundError(err) {
			return BuildConfig{}, errors.FileNotFound{Path: path}
		}
		return BuildConfig{}, errors.WithContext(err, "read file")
	}

	cfg := DefaultBuildConfig()
	cfg.Categories = nil
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return BuildConfig{}, errors.NewFriendlyError(parseConfigErrTemplate, path, err)
	}

	// Do a strict unmarshal to check for any extra fields, so typos in the
	// config don't silently publish the defaults.
	strictCfg := BuildConfig{}
	if err := yaml.UnmarshalStrict(contents, &strictCfg, yaml.DisallowUnknownFields); err != nil {
		return BuildConfig{}, errors.NewFriendlyError(parseConfigErrTemplate, path, err)
	}

	if len(cfg.Categories) == 0 {
		cfg.Categories = DefaultBuildConfig().Categories
	}
	for _, spec := range cfg.Categories {
		if spec.Name == "" || spec.Root == "" {
			return BuildConfig{}, errors.MissingFieldError{Field: "name/root"}
		}
	}
	return cfg, nil
}

func isPathNotFoundError(err error) bool {
	if fileErr, ok := err.(*os.PathError); ok && fileErr.Op == "open" &&
		fileErr.Err.Error() == "no such file or directory" {
		return true
	}
	return os.IsNotExist(err)
}
