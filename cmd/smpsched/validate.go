package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/smpsched/scenario"
)

var validateCmd = &cobra.Command{
	Use:   "validate <scenario.yaml>...",
	Short: "Check scenario files without running them.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		failed := 0

		for _, path := range args {
			s, err := scenario.LoadFile(path)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tFAIL\n%v\n", path, err)
				failed++

				continue
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s\tOK (%d events, until %s)\n",
				path, len(s.Events), s.Until)
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d scenarios are invalid", failed, len(args))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
