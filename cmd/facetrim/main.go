// Command facetrim evaluates a trim script and prints a report of
// every trim pipeline the script ran.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/facetrim/pkg/config"
	"github.com/chazu/facetrim/pkg/coverage"
	"github.com/chazu/facetrim/pkg/engine"
	"github.com/chazu/facetrim/pkg/extend"
	"github.com/chazu/facetrim/pkg/hierarchy"
	"github.com/chazu/facetrim/pkg/project"
	"github.com/chazu/facetrim/pkg/trim"
	"github.com/chazu/facetrim/pkg/trim/sdfxtrim"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.SetFlags(0)
		log.Fatalf("facetrim: %v", err)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		strict     bool
		resolution int
	)

	cmd := &cobra.Command{
		Use:           "facetrim <script.ftl>",
		Short:         "Trim parametric faces with projected curves",
		Long:          "facetrim evaluates a Lisp trim script, running each (trim-face ...) form\nthrough the coverage, extension and trim pipeline, and prints a report.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				var err error
				if cfg, err = config.Load(configPath); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("strict") {
				cfg.Trim.Strict = strict
			}
			if cmd.Flags().Changed("resolution") {
				cfg.Coverage.Resolution = resolution
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			source, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read script: %w", err)
			}

			executor, err := newExecutor(cfg)
			if err != nil {
				return err
			}
			eng := engine.NewEngine(executor)
			out, evalErrs, err := eng.Evaluate(string(source))
			if err != nil {
				return err
			}
			if len(evalErrs) > 0 {
				for _, e := range evalErrs {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", args[0], e.Error())
				}
				return fmt.Errorf("%d evaluation error(s)", len(evalErrs))
			}

			for _, res := range out.Results {
				printResult(cmd, res)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML configuration file")
	cmd.Flags().BoolVar(&strict, "strict", false, "treat extension failures as fatal")
	cmd.Flags().IntVar(&resolution, "resolution", 0, "per-curve coverage sample count")
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the facetrim version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "facetrim", version)
		},
	}
}

// newExecutor wires the pipeline from a validated configuration.
func newExecutor(cfg config.Config) (*trim.Executor, error) {
	extSpec, err := cfg.Extension.Spec()
	if err != nil {
		return nil, err
	}
	solver := project.New(cfg.SolverOptions())
	x := trim.NewExecutor(
		coverage.NewChecker(solver, nil, cfg.Coverage.Epsilon),
		extend.New(solver, 0),
		sdfxtrim.New(solver, sdfxtrim.Options{
			PolylineSamples: cfg.Trim.PolylineSamples,
			MeshCells:       cfg.Trim.MeshCells,
		}),
	)
	x.SetDefaults(cfg.Coverage.Resolution, cfg.Trim.Strict, extSpec)
	return x, nil
}

// printResult writes one trim run's report and object tree to stdout.
func printResult(cmd *cobra.Command, res *trim.Result) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s: %s\n", res.Root.Name, res.Report.Final)

	for _, c := range res.Report.Curves {
		ext := ""
		if c.Extended {
			ext = " (extended)"
		}
		fmt.Fprintf(w, "  %-20s %-13s coverage %.2f%s\n", c.Name, c.Class, c.Ratio, ext)
		for _, f := range c.Fallbacks {
			fmt.Fprintf(w, "    note: %s\n", f)
		}
	}
	for _, f := range res.Report.Fallbacks {
		fmt.Fprintf(w, "  note: %s\n", f)
	}

	hierarchy.Walk(res.Root, func(n *hierarchy.Node) {
		indent := ""
		for i := 1; i < n.Depth(); i++ {
			indent += "  "
		}
		vis := "hidden"
		if n.Visible {
			vis = "visible"
		}
		fmt.Fprintf(w, "  %s%s [%s, %s]\n", indent, n.Name, n.Role, vis)
	})

	min, max := res.Face.BoundingBox()
	fmt.Fprintf(w, "  bbox (%.3g, %.3g, %.3g) .. (%.3g, %.3g, %.3g)\n",
		min.X, min.Y, min.Z, max.X, max.Y, max.Z)
}
