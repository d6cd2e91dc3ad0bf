// Package cli binds command-line flags and MRCZ_* environment variables to
// program options with cobra and viper.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Opt is a single command-line option.
type Opt struct {
	DestP   interface{} // pointer to the destination
	Flag    string
	Short   string // one-letter shorthand, may be empty
	Default interface{}
	Desc    string
}

// Program parses CLI options.
type Program struct {
	// Run is invoked by cobra on execute, after every option is resolved.
	Run func(cmd *cobra.Command) error
	// Name is the name of the program in help usage and the env var prefix.
	Name  string
	Short string
	Long  string
	Opts  []Opt
}

// NewCommand creates a cobra command whose options resolve flag first,
// then environment variable, then default. Environment variables are the
// upper-cased program name followed by the flag, with "-" mapped to "_".
func NewCommand(v *viper.Viper, p *Program) (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:           p.Name,
		Short:         p.Short,
		Long:          p.Long,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	v.SetEnvPrefix(strings.ToUpper(p.Name))
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	if err := BindOptions(v, cmd, p.Opts); err != nil {
		return nil, err
	}
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		resolve(v, p.Opts)
		return p.Run(cmd)
	}
	return cmd, nil
}

// BindOptions adds opts to cmd and registers them with v.
func BindOptions(v *viper.Viper, cmd *cobra.Command, opts []Opt) error {
	flags := cmd.Flags()
	for _, o := range opts {
		switch destP := o.DestP.(type) {
		case *string:
			var d string
			if o.Default != nil {
				d = o.Default.(string)
			}
			flags.StringVarP(destP, o.Flag, o.Short, d, o.Desc)
		case *int:
			var d int
			if o.Default != nil {
				d = o.Default.(int)
			}
			flags.IntVarP(destP, o.Flag, o.Short, d, o.Desc)
		case *bool:
			var d bool
			if o.Default != nil {
				d = o.Default.(bool)
			}
			flags.BoolVarP(destP, o.Flag, o.Short, d, o.Desc)
		default:
			return fmt.Errorf("option %s: unknown destination type %T", o.Flag, o.DestP)
		}
		if err := v.BindPFlag(o.Flag, flags.Lookup(o.Flag)); err != nil {
			return fmt.Errorf("binding %s: %w", o.Flag, err)
		}
	}
	return nil
}

func resolve(v *viper.Viper, opts []Opt) {
	for _, o := range opts {
		switch destP := o.DestP.(type) {
		case *string:
			*destP = v.GetString(o.Flag)
		case *int:
			*destP = v.GetInt(o.Flag)
		case *bool:
			*destP = v.GetBool(o.Flag)
		}
	}
}
