package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/hanpama/typeddoc/codegen"
	"github.com/spf13/cobra"
)

func newGenerateCmd(g *globals) *cobra.Command {
	var (
		config string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate typed documents from GraphQL operations",
		Long: `generate reads typeddoc.yml, validates every operation against the schema
and writes one Go file holding result types, variables types and typed
document values. The file is only rewritten when its content changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := codegen.LoadConfig(config)
			if err != nil {
				return err
			}
			disc, err := cfg.Discovery(ctx)
			if err != nil {
				return err
			}
			f, err := codegen.Generate(ctx, cfg, disc, codegen.WithLogger(g.logger))
			if err != nil {
				return err
			}
			if out == "-" {
				_, err := cmd.OutOrStdout().Write(f.Content)
				return err
			}
			path := cfg.OutputPath()
			if out != "" {
				path = out
			}
			changed, err := f.Write(path)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if !changed {
				fmt.Fprintf(w, "%s %s\n", color.HiBlackString("unchanged"), path)
				return nil
			}
			fmt.Fprintf(w, "%s %s (%d operations, %d fragments)\n",
				color.GreenString("wrote"), path, len(f.Operations), len(f.Fragments))
			return nil
		},
	}
	cmd.Flags().StringVarP(&config, "config", "c", codegen.ConfigFile, "generator config file")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, overriding the config; - writes to stdout")
	return cmd
}
