package main

import (
	"context"
	"fmt"

	"github.com/loykin/groovewatch"
)

// This example runs one offline full cycle through the public facade: the
// bundled sample data flows through the history logs and lands as CSV
// tables under ./output.
func main() {
	cfg, err := groovewatch.LoadConfig("")
	if err != nil {
		panic(err)
	}
	cfg.SinkDSN = "csv://output"
	cfg.HistoryDSN = ":memory:"

	w, err := groovewatch.New(cfg, true)
	if err != nil {
		panic(err)
	}
	defer func() { _ = w.Close() }()

	if err := w.RunTest(context.Background()); err != nil {
		panic(err)
	}
	fmt.Println("full cycle complete, tables written to ./output")
}
