package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/spf13/cobra"

	"github.com/c360studio/dealflow/memo"
	"github.com/c360studio/dealflow/pipeline"
	"github.com/c360studio/dealflow/store"
)

func newBackfillCmd(configPath, logLevel *string) *cobra.Command {
	var (
		limit int
		apply bool
	)

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Re-trigger enrichment for submissions missing downstream documents",
		Long: `Backfill scans recent successful ingestions and finds submissions
without an enriched memo. By default it only reports them; --apply
publishes the enrichment trigger for each. Enrichment only fills fields
the founder left empty, so re-running it never overwrites provided data.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBackfill(cmd.Context(), *configPath, *logLevel, limit, apply)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of recent submissions to scan")
	cmd.Flags().BoolVar(&apply, "apply", false, "Publish enrichment triggers instead of reporting only")
	return cmd
}

func runBackfill(ctx context.Context, configPath, logLevel string, limit int, apply bool) error {
	logger := setupLogger(logLevel)
	cfg, err := loadConfig(configPath, logger)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	nc, err := nats.Connect(cfg.NATS.URL, nats.Name(appName))
	if err != nil {
		return fmt.Errorf("connect to NATS %s: %w", cfg.NATS.URL, err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create jetstream context: %w", err)
	}
	docs, err := store.NewKV(ctx, js)
	if err != nil {
		return fmt.Errorf("create document store: %w", err)
	}

	results, err := docs.ListIngestionResults(ctx, limit)
	if err != nil {
		return fmt.Errorf("list ingestion results: %w", err)
	}

	var pending []string
	for _, r := range results {
		if r.Status != memo.StatusSuccess {
			continue
		}
		if _, err := docs.GetEnrichedMemo(ctx, r.SubmissionID); err == nil {
			continue
		}
		pending = append(pending, r.SubmissionID)
	}

	if len(pending) == 0 {
		fmt.Println("No submissions need backfill")
		return nil
	}

	if !apply {
		for _, id := range pending {
			fmt.Printf("would backfill %s\n", id)
		}
		fmt.Printf("%d submissions pending; rerun with --apply\n", len(pending))
		return nil
	}

	publisher := pipeline.NewJetStreamPublisher(js)
	for _, id := range pending {
		data, err := json.Marshal(pipeline.EnrichMessage{SubmissionID: id})
		if err != nil {
			return fmt.Errorf("marshal trigger for %s: %w", id, err)
		}
		if err := publisher.Publish(ctx, pipeline.SubjectEnrich, data); err != nil {
			return fmt.Errorf("publish trigger for %s: %w", id, err)
		}
		fmt.Printf("backfilled %s\n", id)
	}
	fmt.Printf("Published %d enrichment triggers\n", len(pending))
	return nil
}
