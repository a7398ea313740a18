package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/vk/rehydrator/internal/app"
	"github.com/vk/rehydrator/internal/registry"
)

// DefaultConfigPath is read when --config is not given. Its absence is not an
// error.
const DefaultConfigPath = "rehydrator.yaml"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	return &ExitError{Code: 2, Message: err.Error()}
}

// options holds the raw flag values shared by every subcommand.
type options struct {
	configPath   string
	documentPath string
	classesPaths []string
	libraryPath  string
	logFormat    string
	logLevel     string
}

// NewRootCommand builds the command tree. Command output goes to outW, logs
// and errors to errW. modules replace the compiled-in class modules when
// given.
func NewRootCommand(outW, errW io.Writer, modules ...registry.Module) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "rehydrator",
		Short: "Persist typed object graphs inside a scene document",
		Long: `rehydrator stores instances of declared classes as collections and objects
of a scene document, and rebuilds them from the document later.

Classes come from the modules compiled into the binary and from HCL
manifests (see --classes).`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(outW)
	root.SetErr(errW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError(err) })

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", DefaultConfigPath, "Path to a YAML config file.")
	flags.StringVarP(&opts.documentPath, "document", "d", "", "Path to the scene document.")
	flags.StringSliceVar(&opts.classesPaths, "classes", nil, "Class manifest files or directories. Repeatable.")
	flags.StringVar(&opts.libraryPath, "library", "", "Base directory for relative import paths. Defaults to the document's directory.")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log output format. Options: 'text' or 'json'.")
	flags.StringVar(&opts.logLevel, "log-level", "", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	open := func(cmd *cobra.Command) (*app.App, error) {
		cfg, err := opts.config(cmd)
		if err != nil {
			return nil, err
		}
		return app.NewApp(cmd.Context(), outW, errW, cfg, modules...)
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "classes",
			Short: "List every registered class with its resolved fields",
			Args:  exactArgs(0),
			RunE: func(cmd *cobra.Command, _ []string) error {
				a, err := open(cmd)
				if err != nil {
					return err
				}
				return a.Classes()
			},
		},
		&cobra.Command{
			Use:   "scene",
			Short: "Reconstruct and print every persisted instance in the document",
			Args:  exactArgs(0),
			RunE: func(cmd *cobra.Command, _ []string) error {
				a, err := open(cmd)
				if err != nil {
					return err
				}
				return a.Scene(cmd.Context())
			},
		},
		newCommand(open),
		&cobra.Command{
			Use:   "set CONTAINER KEY EXPR",
			Short: "Assign an attribute of the instance persisted in CONTAINER",
			Long: `Assign an attribute of the instance persisted in CONTAINER. EXPR is an HCL
expression such as 42, "text" or { x = 1 }. Keys the class does not declare
are stored as extra attributes.`,
			Args: exactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := open(cmd)
				if err != nil {
					return err
				}
				return a.Set(cmd.Context(), args[0], args[1], args[2])
			},
		},
	)
	return root
}

func newCommand(open func(*cobra.Command) (*app.App, error)) *cobra.Command {
	var into string
	cmd := &cobra.Command{
		Use:   "new CLASS",
		Short: "Construct a fresh instance of CLASS, named by identity chain (e.g. Foo.Bar)",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			_, err = a.New(cmd.Context(), args[0], into)
			return err
		},
	}
	cmd.Flags().StringVar(&into, "into", "", "Existing collection to bind the instance to instead of creating one.")
	return cmd
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}

// config merges defaults, the config file and explicitly set flags, in that
// order, and validates the result.
func (o *options) config(cmd *cobra.Command) (*app.Config, error) {
	cfg := app.DefaultConfig()
	if err := app.LoadConfigFile(o.configPath, &cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("config") {
			return nil, usageError(err)
		}
		slog.Debug("No config file found, using defaults.", "path", o.configPath)
	}

	flags := cmd.Flags()
	if flags.Changed("document") {
		cfg.DocumentPath = o.documentPath
	}
	if flags.Changed("classes") {
		cfg.ClassesPaths = o.classesPaths
	}
	if flags.Changed("library") {
		cfg.LibraryPath = o.libraryPath
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = o.logFormat
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, usageError(err)
	}
	return config, nil
}

// Execute runs the command tree against args.
func Execute(ctx context.Context, args []string, outW, errW io.Writer, modules ...registry.Module) error {
	root := NewRootCommand(outW, errW, modules...)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr
		}
		return fmt.Errorf("%s: %w", root.Name(), err)
	}
	return nil
}
