package brandify

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/flanksource/brandify/convert"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptionsFromEnv(t *testing.T) {
	t.Setenv("PORT", "8088")
	t.Setenv("MCP_ENDPOINT", "http://styles")
	t.Setenv("DEFAULT_MODEL", "ai/other")
	t.Setenv("MODEL_RUNNER_ENGINE", "")

	o := DefaultOptions()
	assert.Equal(t, ":8088", o.Addr())
	assert.Equal(t, "http://styles", o.RemoteEndpoint)
	assert.Equal(t, "ai/other", o.Model)
	assert.Equal(t, "llama.cpp", o.ModelEngine)
	assert.Equal(t, "remote,model,process,copy", o.Tiers)

	o.Port = "127.0.0.1:9000"
	assert.Equal(t, "127.0.0.1:9000", o.Addr())
}

func TestNewApp(t *testing.T) {
	o := Options{Tiers: "remote, builtin ,copy", UploadsDir: t.TempDir()}
	app, err := New(o)
	require.NoError(t, err)
	defer app.Close()

	assert.Equal(t, []string{"remote", "builtin", "copy"}, app.Chain.Names())
	assert.False(t, app.Remote.Configured())
	assert.False(t, app.Model.Configured())
	assert.Nil(t, app.Cache)

	in := filepath.Join(t.TempDir(), "d.svg")
	require.NoError(t, os.WriteFile(in, []byte(`<svg><rect fill="#e67700"/></svg>`), 0o644))
	out := filepath.Join(t.TempDir(), "out.svg")

	res, err := app.Chain.Run(context.Background(), convert.Request{Input: in, Output: out})
	require.NoError(t, err)
	assert.Equal(t, "svg", res.Metadata.ProcessMethod)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `fill="#FF9900"`)
}

func TestNewAppErrors(t *testing.T) {
	_, err := New(Options{Tiers: "remote,psychic"})
	assert.ErrorContains(t, err, "psychic")

	_, err = New(Options{BrandConfig: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func TestUseFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindAllFlags(flags)
	require.NoError(t, flags.Parse([]string{"--yaml", "--no-color", "--max-retries", "2", "--tiers", "builtin"}))

	require.NoError(t, Flags.UseFlags())
	assert.Equal(t, "yaml", Flags.FormatOptions.Format)
	assert.True(t, Flags.ManagerOptions.NoColor)
	assert.Equal(t, 2, Flags.ManagerOptions.MaxRetries)
	assert.Contains(t, Flags.String(), "tiers: builtin")

	flags = pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindAllFlags(flags)
	require.NoError(t, flags.Parse([]string{"--csv", "--markdown"}))
	assert.Error(t, Flags.UseFlags())
}
