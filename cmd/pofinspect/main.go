package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"wcs-converter/internal/diag"
	"wcs-converter/internal/logging"
	"wcs-converter/internal/pof"
	"wcs-converter/internal/scene"
)

func main() {
	showDiag := flag.Bool("diag", false, "Print every diagnostic raised while decoding")
	showPoints := flag.Bool("points", false, "Print special points")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: pofinspect [-diag] [-points] file.pof...")
		os.Exit(1)
	}

	failed := false
	for _, path := range flag.Args() {
		sink := diag.NewSink(diag.WithLogger(logging.Discard()), diag.WithVerbose(true))
		m, err := pof.DecodeFile(context.Background(), path, pof.Options{Sink: sink})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Decode error %s: %v\n", path, err)
			failed = true
			continue
		}
		fmt.Printf("\n=== %s (version %d, %s) ===\n", path, m.DeclaredVersion, m.Compatibility)
		printChunks(m)
		printForest(m)
		if *showPoints {
			printPoints(m)
		}
		if *showDiag {
			for _, d := range sink.Entries() {
				fmt.Printf("  %s\n", d)
			}
		}
		fmt.Printf("Diagnostics: %d errors, %d warnings, %d suppressed\n",
			sink.Count(diag.Error)+sink.Count(diag.Critical), sink.Count(diag.Warning), sink.Suppressed())
	}
	if failed {
		os.Exit(1)
	}
}

func printChunks(m *pof.Model) {
	fmt.Printf("--- CHUNKS (%d) ---\n", len(m.Chunks))
	for _, c := range m.Chunks {
		fmt.Printf("  %-4s offset=%-8d length=%-8d %s\n", c.Name, c.Offset, c.Length, c.Status)
	}
	if len(m.Textures) > 0 {
		fmt.Printf("Textures: %s\n", strings.Join(m.Textures, ", "))
	}
	fmt.Printf("Radius: %.2f  BBox: %v..%v  Detail levels: %d\n",
		m.Header.MaxRadius, m.Header.BBox.Min, m.Header.BBox.Max, m.Header.DetailLevelCount())
}

func printForest(m *pof.Model) {
	fmt.Println("--- SUBOBJECTS ---")
	s := scene.Build(m, scene.Options{})
	var walk func(n *scene.Node, depth int)
	walk = func(n *scene.Node, depth int) {
		if n.Kind != scene.KindSubObject {
			return
		}
		so, _ := m.SubObjectByNumber(n.Number)
		st := so.Stats
		flags := ""
		if n.Detail >= 0 {
			flags += fmt.Sprintf(" [DETAIL%d]", n.Detail)
		}
		if n.Debris {
			flags += " [DEBRIS]"
		}
		if n.Subsystem {
			flags += " [SUBSYSTEM]"
		}
		fmt.Printf("  %s%d %q offset=%v r=%.2f%s\n", strings.Repeat("  ", depth), n.Number, n.Name, n.Offset, n.Radius, flags)
		fmt.Printf("  %s   bsp: verts=%d norms=%d polys=%d leaves=%d splits=%d empty=%d depth=%d dropped=%d\n",
			strings.Repeat("  ", depth), st.VertexCount, st.NormalCount, st.PolygonCount, st.LeafCount,
			st.SplitCount, st.EmptyCount, st.MaxDepth, st.DroppedPolygons)
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	for _, c := range s.Root.Children {
		walk(c, 0)
	}
}

func printPoints(m *pof.Model) {
	fmt.Println("--- POINTS ---")
	for _, p := range m.Points() {
		fmt.Printf("  %-8s %-24q pos=%v normal=%v\n", p.Kind, p.Name, p.Position, p.Normal)
	}
	for _, p := range m.Paths {
		fmt.Printf("  path %q parent=%q nodes=%d\n", p.Name, p.Parent, len(p.Nodes))
	}
}
