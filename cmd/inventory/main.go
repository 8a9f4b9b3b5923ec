// cmd/inventory/main.go

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"folderMon/internal/monitor"
)

func main() {
	// 1) Read command-line flags
	var root string
	var details bool
	flag.StringVar(&root, "root", ".", "Root directory to inventory")
	flag.BoolVar(&details, "details", true, "Print the info report for every file")
	flag.Parse()

	cfg := monitor.DefaultConfig()
	cfg.RootPath = root
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid root: %v", err)
	}

	// 2) Scan once, the same way the monitor does at startup
	registry := monitor.NewRegistry(root)
	if err := registry.Scan(); err != nil {
		log.Fatalf("Error walking directory: %v", err)
	}

	ctx := context.Background()
	perKind := make(map[monitor.Kind]int)
	errCount := 0

	// 3) Report every tracked file
	for _, rec := range registry.Records() {
		perKind[rec.Kind]++
		if !details {
			fmt.Printf("%-8s %s\n", rec.Kind, rec.Path)
			continue
		}

		report, err := monitor.RenderInfo(ctx, rec)
		if err != nil {
			log.Printf("Info error (%s): %v", rec.Path, err)
			errCount++
			continue
		}
		fmt.Fprintln(os.Stdout, report)
		fmt.Fprintln(os.Stdout)
	}

	// Print final statistics
	log.Println("=== Inventory Complete ===")
	log.Printf("Files tracked: %d", registry.Len())
	log.Printf("Text files: %d", perKind[monitor.KindText])
	log.Printf("Image files: %d", perKind[monitor.KindImage])
	log.Printf("Program files: %d", perKind[monitor.KindProgram])
	log.Printf("Other files: %d", perKind[monitor.KindGeneric])
	log.Printf("Info errors: %d", errCount)
}
