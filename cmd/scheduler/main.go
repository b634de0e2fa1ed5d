package main

import (
	"context"
	"log"
	"os"

	"github.com/MuhammadSohaibRiaz/NexFLow/ai"
	"github.com/MuhammadSohaibRiaz/NexFLow/images"
	"github.com/MuhammadSohaibRiaz/NexFLow/internal/platform"
	"github.com/MuhammadSohaibRiaz/NexFLow/pipeline"
	"github.com/MuhammadSohaibRiaz/NexFLow/publisher"
	"github.com/MuhammadSohaibRiaz/NexFLow/socials"
	"github.com/MuhammadSohaibRiaz/NexFLow/store"
	"github.com/robfig/cron/v3"
)

// The scheduler is an alternative to hitting the /cron endpoints from an
// external scheduler: one instance runs the generation and publishing scans
// on a fixed cadence. Run a single instance to avoid duplicate scans.
func main() {
	// Use the shared initializers
	db := platform.NewDBConnection()
	st := store.New(db)

	providerCfg, err := ai.ConfigFromEnv()
	if err != nil {
		log.Fatalf("AI provider config: %v", err)
	}
	provider, err := ai.NewProvider(providerCfg)
	if err != nil {
		log.Fatalf("AI provider: %v", err)
	}

	runner := pipeline.NewRunner(st, provider)

	adapters := map[string]publisher.Adapter{
		"facebook": socials.NewFacebookAdapter(),
		"linkedin": socials.NewLinkedInAdapter(),
		"twitter": socials.NewTwitterAdapter(
			os.Getenv("TWITTER_CLIENT_ID"),
			os.Getenv("TWITTER_CLIENT_SECRET"),
			st,
		),
	}
	pub := publisher.New(st, adapters)

	imageDir := os.Getenv("IMAGE_DIR")
	if imageDir == "" {
		imageDir = "./data/images"
	}
	baseURL := os.Getenv("PUBLIC_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	pub.Images = ai.NewImageProviderFromEnv()
	pub.ImageStore = images.NewDiskStore(imageDir, baseURL+"/images")

	ctx := context.Background()

	c := cron.New()

	// Due-pipeline scan: generate content for pipelines whose next run has
	// arrived.
	if _, err := c.AddFunc("@every 5m", func() {
		report, err := runner.RunDuePipelines(ctx)
		if err != nil {
			log.Printf("[SCHEDULER] generation scan failed: %v", err)
			return
		}
		log.Printf("[SCHEDULER] generation scan: %d/%d pipelines processed",
			report.Processed, report.TotalActive)
	}); err != nil {
		log.Fatalf("scheduling generation scan: %v", err)
	}

	// Due-post scan: backfill images and publish posts whose time has come.
	if _, err := c.AddFunc("@every 1m", func() {
		report, err := pub.RunDuePublishing(ctx)
		if err != nil {
			log.Printf("[SCHEDULER] publish scan failed: %v", err)
			return
		}
		if report.Processed > 0 {
			log.Printf("[SCHEDULER] publish scan: %d attempted", report.Processed)
		}
	}); err != nil {
		log.Fatalf("scheduling publish scan: %v", err)
	}

	// Retry scan: re-attempt recent failures that still have retries left.
	if _, err := c.AddFunc("@every 15m", func() {
		report, err := pub.RetryFailedPosts(ctx)
		if err != nil {
			log.Printf("[SCHEDULER] retry scan failed: %v", err)
			return
		}
		if report.Processed > 0 {
			log.Printf("[SCHEDULER] retry scan: %d retried", report.Processed)
		}
	}); err != nil {
		log.Fatalf("scheduling retry scan: %v", err)
	}

	c.Start()
	defer c.Stop()

	log.Println("Scheduler started")
	// Keep the main thread alive
	select {}
}
