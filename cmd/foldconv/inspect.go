package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/foldfile/store"
)

var showFold int

// inspectCmd prints the metadata and fold sizes of a fold file
var inspectCmd = &cobra.Command{
	Use:   "inspect <fold-file>",
	Short: "Print the metadata and fold sizes of a fold file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := store.Open(args[0])
		if err != nil {
			return err
		}
		defer r.Close()

		out := cmd.OutOrStdout()
		printMeta(out, r.Meta())

		if showFold >= 0 {
			fold, err := r.GetFold(showFold)
			if err != nil {
				return err
			}
			printFold(out, fold)
		}
		return nil
	},
}

func init() {
	inspectCmd.Flags().IntVar(&showFold, "fold", -1, "also summarize the columns of this fold")
}

func printMeta(w io.Writer, m store.Meta) {
	list := func(s []string) string {
		if len(s) == 0 {
			return "-"
		}
		return strings.Join(s, ", ")
	}
	fmt.Fprintf(w, "folds:        %d\n", m.NFolds)
	for i, n := range m.FoldSizes {
		fmt.Fprintf(w, "  fold_%d:     %d events\n", i, n)
	}
	fmt.Fprintf(w, "continuous:   %s\n", list(m.ContFeats))
	fmt.Fprintf(w, "categorical:  %s\n", list(m.CatFeats))
	fmt.Fprintf(w, "targets:      %s (%s)\n", list(m.TargFeats), m.TargType)
	if m.WgtFeat != "" {
		fmt.Fprintf(w, "weight:       %s\n", m.WgtFeat)
	}
	fmt.Fprintf(w, "misc:         %s\n", list(m.MiscFeats))
	for _, t := range m.Tensors {
		mask := ""
		if t.Mask {
			mask = ", masked"
		}
		fmt.Fprintf(w, "tensor %s:   %s[%s] x %d%s\n", t.Name, t.Collection, strings.Join(t.Attributes, ", "), t.Length, mask)
	}
	names := make([]string, 0, len(m.CatMaps))
	for name := range m.CatMaps {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "cat_map %s:  %v\n", name, m.CatMaps[name])
	}
	for _, p := range m.Preproc {
		fmt.Fprintf(w, "preproc:      %s scaler on %s\n", p.Kind, list(p.Features))
	}
}

func printFold(w io.Writer, f *store.Fold) {
	fmt.Fprintf(w, "fold_%d: %d events\n", f.Index, f.Len())
	names := make([]string, 0, len(f.Columns)+len(f.Targets))
	for name := range f.Columns {
		names = append(names, name)
	}
	for name := range f.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		col, ok := f.Columns[name]
		if !ok {
			col = f.Targets[name]
		}
		if len(col) == 0 {
			continue
		}
		fmt.Fprintf(w, "  %-20s min=%g max=%g\n", name, floats.Min(col), floats.Max(col))
	}
	tensors := make([]string, 0, len(f.Tensors))
	for name := range f.Tensors {
		tensors = append(tensors, name)
	}
	sort.Strings(tensors)
	for _, name := range tensors {
		fmt.Fprintf(w, "  %-20s shape=%v\n", name, f.Tensors[name].Shape())
	}
}
