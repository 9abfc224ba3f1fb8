package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"TrendScope/internal/notifier"
)

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run detection once and print the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("unsupported format %q", format)
			}
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			col, eng, release, err := pipeline(cfg)
			if err != nil {
				return err
			}
			defer release()

			series, err := col.Collect(cmd.Context())
			if err != nil {
				return err
			}
			res, err := eng.Detect(cmd.Context(), series)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				data, err := notifier.FormatJSON(res)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			}
			_, err = fmt.Fprint(out, notifier.FormatReport(res))
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text or json")
	cmd.Flags().StringVar(&opts.method, "method", "", "detection method: hough or pairwise")
	return cmd
}
