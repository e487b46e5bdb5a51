// Command abhinaya classifies head gestures and facial expressions from the
// face-tracking engine's output stream.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "abhinaya",
		Short:         "Real-time head gesture and facial expression classifier",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (YAML)")

	cmd.AddCommand(
		newRunCmd(opts),
		newReplayCmd(opts),
		newConfigCmd(),
	)
	return cmd
}
