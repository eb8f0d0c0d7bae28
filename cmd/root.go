package cmd

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cmmoran/buildergen/pkg/parser"
)

var version string

const levelTrace = slog.Level(-8)

// config carries the state shared by every subcommand.
type config struct {
	v           *viper.Viper
	configFiles []string
	level       string
}

// NewRootCommand builds the buildergen command tree. Every call returns an
// independent tree with its own configuration.
func NewRootCommand() *cobra.Command {
	c := &config{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:           "buildergen",
		Short:         "generate builders for annotated structs",
		Long:          "Generate builder types for structs annotated with //builder: directives and builder struct tags.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init(cmd)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&c.level, "level", "l", "info", "log level (trace, debug, info, warn, error, debug+1, etc)")
	pf.StringSliceVar(&c.configFiles, "config", []string{}, "config file(s) - multiple config files are merged with last specified file having highest priority")
	pf.StringP("in-dir", "i", ".", "directory packages are loaded from")
	pf.StringSliceP("patterns", "p", []string{"./..."}, "package patterns, relative to the input directory")
	pf.StringSlice("include", nil, "only read files matching these globs")
	pf.StringSlice("exclude", nil, "skip files matching these globs")
	pf.StringSliceP("types", "t", nil, "only generate builders for these structs")
	pf.StringSlice("exclude-types", nil, "skip these structs")
	pf.BoolP("exclude-deprecated", "d", false, "skip deprecated structs")
	pf.Bool("tests", false, "also read _test.go files")
	pf.String("tag", parser.DefaultTag, "struct tag key carrying field attributes")
	pf.String("directive", parser.DefaultDirective, "comment prefix of attribute directives")
	pf.String("out-suffix", parser.DefaultOutSuffix, "suffix of generated files")
	pf.String("manifest", parser.DefaultManifest, "manifest file, relative to the input directory")

	rootCmd.AddCommand(
		newGenerateCommand(c),
		newCheckCommand(c),
		newInspectCommand(c),
		newWatchCommand(c),
	)
	return rootCmd
}

// Execute runs the command tree. This is called by main.main().
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		rootCmd.PrintErrln("Error:", err)
		os.Exit(1)
	}
}

func parseLevel(s string) (slog.Level, error) {
	if strings.EqualFold(s, "trace") {
		return levelTrace, nil
	}
	var ll slog.Level
	if err := ll.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level: %s", s)
	}
	return ll, nil
}

// init sets up logging and reads config files and BUILDERGEN_* variables.
func (c *config) init(cmd *cobra.Command) error {
	l, err := newLogger(cmd, c.level)
	if err != nil {
		return err
	}

	v := c.v
	v.SetEnvPrefix("BUILDERGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Name == "level" || f.Name == "config" || f.Name == "help" {
			return
		}
		if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil && bindErr == nil {
			bindErr = err
		}
	})
	if bindErr != nil {
		return bindErr
	}

	if len(c.configFiles) > 0 {
		v.SetConfigFile(c.configFiles[0])
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("buildergen")
	}

	if err = v.ReadInConfig(); err == nil {
		l.With("config", v.ConfigFileUsed()).Debug("using config file(s)")
	} else if len(c.configFiles) > 0 {
		return fmt.Errorf("read config %s: %w", c.configFiles[0], err)
	} else {
		l.With("error", err).Debug("no config file")
	}
	if len(c.configFiles) > 1 {
		for _, file := range c.configFiles[1:] {
			configBytes, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read config %s: %w", file, err)
			}
			if err = v.MergeConfig(bytes.NewReader(configBytes)); err != nil {
				return fmt.Errorf("merge config %s: %w", file, err)
			}
			l.With("file", file).Debug("merged config file")
		}
	}

	// the flag wins over the config file
	if llstr := v.GetString("common.log.level"); llstr != "" && !cmd.Flags().Changed("level") {
		if _, err = newLogger(cmd, llstr); err != nil {
			return err
		}
	}
	return nil
}

func newLogger(cmd *cobra.Command, level string) (*slog.Logger, error) {
	ll, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	l := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		AddSource: false,
		Level:     ll,
	}))
	slog.SetDefault(l)
	return l, nil
}

// options decodes the merged flags, environment and config files.
func (c *config) options() (*parser.Options, error) {
	opts := parser.NewOptions()
	err := c.v.Unmarshal(opts, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	)))
	if err != nil {
		return nil, fmt.Errorf("decode options: %w", err)
	}
	if err = opts.Normalize(); err != nil {
		return nil, err
	}
	return opts, nil
}
