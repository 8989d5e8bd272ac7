package cmd

import (
	"context"
	"testing"

	log "github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/maxgio92/pyperf/pkg/cmd/options"
)

func TestNewOptions(t *testing.T) {
	tests := []struct {
		name     string
		options  []Option
		validate func(*testing.T, *Options)
	}{
		{
			name:    "empty options",
			options: []Option{},
			validate: func(t *testing.T, opts *Options) {
				require.NotNil(t, opts)
				require.NotNil(t, opts.CommonOptions)
				require.Empty(t, opts.LogLevel)
				require.Empty(t, opts.ConfigPath)
			},
		},
		{
			name: "with log level",
			options: []Option{
				WithLogLevel("debug"),
			},
			validate: func(t *testing.T, opts *Options) {
				require.Equal(t, "debug", opts.LogLevel)
			},
		},
		{
			name: "with config path",
			options: []Option{
				WithConfigPath("/etc/pyperf.yaml"),
			},
			validate: func(t *testing.T, opts *Options) {
				require.Equal(t, "/etc/pyperf.yaml", opts.ConfigPath)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := NewOptions(tt.options...)
			require.NotNil(t, opts)

			if tt.validate != nil {
				tt.validate(t, opts)
			}
		})
	}
}

func TestWithContext(t *testing.T) {
	ctx := context.Background()
	opts := &Options{}
	opts.CommonOptions = &options.CommonOptions{}

	WithContext(ctx)(opts)

	require.Equal(t, ctx, opts.Ctx)
}

func TestWithLogger(t *testing.T) {
	opts := NewOptions()

	WithLogger(log.New(log.ConsoleWriter{}))(opts)

	require.NotPanics(t, func() {
		opts.Logger.Info().Msg("test")
	})
}

func TestOptionsOverride(t *testing.T) {
	opts := NewOptions()

	WithLogLevel("info")(opts)
	require.Equal(t, "info", opts.LogLevel)

	WithLogLevel("warn")(opts)
	require.Equal(t, "warn", opts.LogLevel)
}

func TestOptionsWithNilPointer(t *testing.T) {
	require.NotPanics(t, func() {
		WithLogLevel("debug")(nil)
		WithConfigPath("c.yaml")(nil)
		WithContext(context.Background())(nil)
		WithLogger(log.New(log.ConsoleWriter{}))(nil)
	})
}

func TestOptionsWithoutCommonOptions(t *testing.T) {
	opts := &Options{}
	require.Nil(t, opts.CommonOptions)

	WithLogLevel("debug")(opts)

	require.NotNil(t, opts.CommonOptions)
	require.Equal(t, "debug", opts.LogLevel)
}

func TestOptionsIntegration(t *testing.T) {
	ctx := context.Background()
	opts := NewOptions(
		WithContext(ctx),
		WithLogger(log.New(log.ConsoleWriter{})),
		WithConfigPath("config.yaml"),
	)

	require.Equal(t, ctx, opts.Ctx)
	require.Equal(t, "config.yaml", opts.ConfigPath)

	cmd := NewCommand(opts)
	require.NotNil(t, cmd)
	require.Equal(t, "pyperf", cmd.Name())
}

func TestCommonOptionsInit(t *testing.T) {
	workspace := t.TempDir()
	opts := NewOptions(
		WithLogLevel("debug"),
		WithConfigPath(workspace+"/missing.yaml"),
	)
	opts.Workspace = workspace

	cfg, err := opts.Init()
	require.NoError(t, err)
	require.Equal(t, workspace, cfg.Workspace)
	require.Equal(t, log.DebugLevel, opts.Logger.GetLevel())

	tree, err := opts.OpenTree(cfg)
	require.NoError(t, err)
	require.Zero(t, tree.Len())

	_, err = options.FindSession(tree, "app")
	require.Error(t, err)
}

func BenchmarkNewOptions(b *testing.B) {
	ctx := context.Background()
	logger := log.New(log.ConsoleWriter{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = NewOptions(
			WithContext(ctx),
			WithLogger(logger),
		)
	}
}
