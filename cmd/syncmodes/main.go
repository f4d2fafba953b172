// Command syncmodes fetches the routing backend's capability document and
// reports which transport modes it serves compared to the known ones.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/cartoway/router-demo/internal/config"
	"github.com/cartoway/router-demo/internal/modes"
)

func main() {
	var url string
	var out string
	flag.StringVar(&url, "url", "", "Capability URL; defaults to ROUTER_API_URL/0.1/capability?api_key=ROUTER_API_KEY")
	flag.StringVar(&out, "out", "config", "Directory to write routerModes.json, availableModes.json and unknownModes.json")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var opts []modes.CapabilityOption
	if url != "" {
		opts = append(opts, modes.WithURL(url))
	}
	client := modes.NewCapabilityClient(cfg.RouterAPIURL, cfg.RouterAPIKey, 30*time.Second, opts...)

	known := cfg.EnabledModes
	if len(known) == 0 {
		known = modes.KnownIDs()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	available, err := client.Fetch(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to fetch capability: %v\n", err)
		os.Exit(1)
	}

	report := modes.Diff(client.URL(), available, known, time.Now())
	paths, err := modes.WriteReport(out, report)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write reports: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Available modes: %s\n", modes.Join(report.AvailableModes))
	fmt.Printf("Enabled (known): %s\n", modes.Join(report.EnabledKnown))
	fmt.Printf("Disabled (known): %s\n", modes.Join(report.DisabledKnown))
	fmt.Printf("Unknown: %s\n", modes.Join(report.Unknown))
	fmt.Printf("\nAdd this to your .env to enable known modes:\n%s\n", report.EnvSuggestion)
	fmt.Printf("\nReports written to %v\n", paths)
}
