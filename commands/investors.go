package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/spf13/cobra"

	"github.com/c360studio/dealflow/match"
	"github.com/c360studio/dealflow/store"
)

func newInvestorsCmd(configPath, logLevel *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "investors",
		Short: "Manage the investor catalog",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "upload <catalog.json>",
		Short: "Upsert investors from a catalog JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvestorsUpload(cmd.Context(), *configPath, *logLevel, args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List investors in the catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInvestorsList(cmd.Context(), *configPath, *logLevel)
		},
	})

	return cmd
}

// connectStore dials NATS and opens the KV document store.
func connectStore(ctx context.Context, configPath, logLevel string) (*nats.Conn, store.Documents, error) {
	logger := setupLogger(logLevel)
	cfg, err := loadConfig(configPath, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	nc, err := nats.Connect(cfg.NATS.URL, nats.Name(appName))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to NATS %s: %w", cfg.NATS.URL, err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create jetstream context: %w", err)
	}
	docs, err := store.NewKV(ctx, js)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create document store: %w", err)
	}
	return nc, docs, nil
}

func runInvestorsUpload(ctx context.Context, configPath, logLevel, path string) error {
	investors, err := match.LoadFile(path)
	if err != nil {
		return fmt.Errorf("load catalog %s: %w", path, err)
	}

	nc, docs, err := connectStore(ctx, configPath, logLevel)
	if err != nil {
		return err
	}
	defer nc.Close()

	now := time.Now().UTC()
	for _, inv := range investors {
		if inv.UploadedAt.IsZero() {
			inv.UploadedAt = now
		}
		inv.LastUpdated = now
		if err := docs.PutInvestor(ctx, inv); err != nil {
			return fmt.Errorf("store investor %s: %w", inv.ID, err)
		}
	}

	fmt.Printf("Upserted %d investors from %s\n", len(investors), path)
	return nil
}

func runInvestorsList(ctx context.Context, configPath, logLevel string) error {
	nc, docs, err := connectStore(ctx, configPath, logLevel)
	if err != nil {
		return err
	}
	defer nc.Close()

	investors, err := docs.ListInvestors(ctx)
	if err != nil {
		return fmt.Errorf("list investors: %w", err)
	}

	for _, inv := range investors {
		fmt.Printf("%-16s %-24s %s\n", inv.ID, inv.Name, inv.Firm)
	}
	fmt.Printf("%d investors\n", len(investors))
	return nil
}
