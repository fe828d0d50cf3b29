package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"furniture-erp/config"
	"furniture-erp/internal/archive"
	"furniture-erp/internal/broker"
	"furniture-erp/internal/importer"
	"furniture-erp/internal/redisclient"
	"furniture-erp/internal/service"
	"furniture-erp/internal/store"
	"furniture-erp/internal/util"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	timeout time.Duration
	dryRun  bool
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "importer",
	Short: "Load product catalogs into the furniture ERP",
	Long: `Loads catalog spreadsheets from the command line, using the same rules
as the import screen. Connection settings come from the environment (.env).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			return util.InitLogger("development", "debug")
		}
		return util.InitLogger("production", "warn")
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		util.SyncLogger()
	},
}

var catalogCmd = &cobra.Command{
	Use:   "catalog <file>",
	Short: "Import a catalog file (.xlsx, .csv or .tsv)",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalog,
}

var legacyCmd = &cobra.Command{
	Use:   "legacy <file>",
	Short: "Import the semicolon price sheet",
	Args:  cobra.ExactArgs(1),
	RunE:  runLegacy,
}

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Print the catalog import template",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprint(cmd.OutOrStdout(), importer.Template())
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	catalogCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Classify rows without writing")

	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(legacyCmd)
	rootCmd.AddCommand(templateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// deps holds the connections one import run needs
type deps struct {
	imports *service.ImportService
	closers []func() error
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			util.GetLogger().Warn("Failed to close connection", zap.Error(err))
		}
	}
}

// connect wires the import service the way the server does, so imports
// from the CLI publish the same change events
func connect(ctx context.Context) (*deps, error) {
	cfg := config.Load()
	d := &deps{}

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	d.closers = append(d.closers, db.Close)
	if err := db.Migrate(ctx); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	d.closers = append(d.closers, redisClient.Close)

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
	d.closers = append(d.closers, producer.Close)
	publisher := broker.NewEventPublisher(producer)

	var uploads archive.S3Interface
	if cfg.Storage.Enabled() {
		s3Archive, err := archive.NewS3Archive(ctx, cfg.Storage)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("failed to initialize upload archive: %w", err)
		}
		uploads = s3Archive
	}

	catalog := service.NewCatalogService(db, redisClient, publisher,
		cfg.Business.PageSize, cfg.Business.SearchLimit, cfg.Redis.CacheTTL)
	d.imports = service.NewImportService(db, db, catalog, uploads, publisher)
	return d, nil
}

func readUpload(path string) (service.Upload, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return service.Upload{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return service.Upload{Filename: path, Content: content}, nil
}

func runCatalog(cmd *cobra.Command, args []string) error {
	upload, err := readUpload(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	d, err := connect(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	out := cmd.OutOrStdout()
	if dryRun {
		preview, err := d.imports.Preview(ctx, upload)
		if err != nil {
			return err
		}
		printPreview(out, preview)
		return nil
	}

	result, err := d.imports.Execute(ctx, upload)
	if err != nil {
		return err
	}
	printResult(out, result)
	if len(result.Failed) > 0 {
		return fmt.Errorf("%d products could not be saved", len(result.Failed))
	}
	return nil
}

func runLegacy(cmd *cobra.Command, args []string) error {
	content, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	d, err := connect(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	result, err := d.imports.ImportLegacy(ctx, content)
	if err != nil {
		return err
	}
	printLegacy(cmd.OutOrStdout(), result)
	if len(result.Failed) > 0 {
		return fmt.Errorf("%d products could not be saved", len(result.Failed))
	}
	return nil
}
