package cli

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testOpts struct {
	input   string
	level   int
	verbose bool
}

func newTestCommand(t *testing.T, o *testOpts) *cobra.Command {
	t.Helper()
	cmd, err := NewCommand(viper.New(), &Program{
		Name: "mrcztest",
		Run:  func(*cobra.Command) error { return nil },
		Opts: []Opt{
			{DestP: &o.input, Flag: "input", Short: "i", Desc: "input"},
			{DestP: &o.level, Flag: "level", Short: "l", Default: -1, Desc: "level"},
			{DestP: &o.verbose, Flag: "verbose", Desc: "verbose"},
		},
	})
	require.NoError(t, err)
	return cmd
}

func TestDefaults(t *testing.T) {
	var o testOpts
	cmd := newTestCommand(t, &o)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "", o.input)
	assert.Equal(t, -1, o.level)
	assert.False(t, o.verbose)
}

func TestFlagsAndShorthand(t *testing.T) {
	var o testOpts
	cmd := newTestCommand(t, &o)
	cmd.SetArgs([]string{"-i", "in.mrc", "--level", "5", "--verbose"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "in.mrc", o.input)
	assert.Equal(t, 5, o.level)
	assert.True(t, o.verbose)
}

func TestEnvFallback(t *testing.T) {
	t.Setenv("MRCZTEST_LEVEL", "3")
	t.Setenv("MRCZTEST_INPUT", "env.mrc")

	var o testOpts
	cmd := newTestCommand(t, &o)
	cmd.SetArgs([]string{"-i", "flag.mrc"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "flag.mrc", o.input, "flag wins over env")
	assert.Equal(t, 3, o.level)
}

func TestUnknownDestination(t *testing.T) {
	var f float64
	_, err := NewCommand(viper.New(), &Program{
		Name: "bad",
		Run:  func(*cobra.Command) error { return nil },
		Opts: []Opt{{DestP: &f, Flag: "ratio"}},
	})
	assert.Error(t, err)
}
