package cmd

import (
	"os"

	"github.com/pkg/errors"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cube2222/remotescan/datacenter"
	"github.com/cube2222/remotescan/dynamicfilter"
	"github.com/cube2222/remotescan/logs"
	"github.com/cube2222/remotescan/outputs/batch"
	"github.com/cube2222/remotescan/outputs/formats"
	"github.com/cube2222/remotescan/pagesource"
	"github.com/cube2222/remotescan/physical"
)

var (
	address    string
	filters    []string
	orderBy    []string
	output     string
	limit      int
	live       bool
	countOnly  bool
	cpuprofile string
)

var scanCmd = &cobra.Command{
	Use:   "scan <table> [columns...]",
	Short: "Scan a remote table through a page source and print the result.",
	Example: `remotescan scan bikes
remotescan scan bikes id color --filter color=red,green --order-by id:desc
remotescan scan bikes --count --filter wheels=3`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (outErr error) {
		ctx := cmd.Context()

		if cpuprofile != "" {
			defer profile.Start(profile.CPUProfile, profile.ProfilePath(cpuprofile), profile.NoShutdownHook, profile.Quiet).Stop()
		}

		cfg, err := readConfig()
		if err != nil {
			return err
		}
		logger, err := logs.NewLogger(cfg.Logging)
		if err != nil {
			return errors.Wrap(err, "couldn't create logger")
		}
		defer logger.Sync()

		if address == "" {
			address = cfg.Server.Address
		}
		db, err := datacenter.NewDatabase(address, datacenter.WithTimeout(cfg.Scan.FetchTimeout), datacenter.WithClientLogger(logger))
		if err != nil {
			return err
		}
		defer db.Close()

		table, tableSchema, err := db.GetTable(ctx, args[0])
		if err != nil {
			return errors.Wrapf(err, "couldn't get table %s", args[0])
		}
		schema := tableSchema
		if countOnly {
			schema = physical.NewSchema(nil)
		} else if len(args) > 1 {
			if schema, err = tableSchema.Project(args[1:]); err != nil {
				return err
			}
		}

		collector := dynamicfilter.NewCollector()
		if err := publishFilters(collector, tableSchema, filters); err != nil {
			return err
		}
		keyIndices, directions, err := parseOrderBy(schema, orderBy)
		if err != nil {
			return err
		}
		newFormat, err := formats.Get(output)
		if err != nil {
			return err
		}

		cache, err := dynamicfilter.NewConversionCache(cfg.Scan.ConversionCacheBytes)
		if err != nil {
			return err
		}
		defer cache.Close()
		converter := dynamicfilter.NewConverter(
			dynamicfilter.WithFalsePositiveRate(cfg.Scan.BloomFalsePositiveRate),
			dynamicfilter.WithCache(cache),
		)

		client, err := table.Materialize(ctx, schema.Fields)
		if err != nil {
			return errors.Wrapf(err, "couldn't materialize scan of %s", args[0])
		}
		source := pagesource.New(
			client,
			schema.Fields,
			pagesource.WithFilterSupplier(collector.Supplier()),
			pagesource.WithConverter(converter),
			pagesource.WithLogger(logger),
		)
		defer func() {
			if err := source.Close(); err != nil && outErr == nil {
				outErr = err
			}
		}()

		printer := batch.NewOutputPrinter(
			source,
			schema,
			newFormat,
			batch.WithOrderBy(keyIndices, directions),
			batch.WithLimit(limit),
			batch.WithLive(live),
			batch.WithPollInterval(cfg.Scan.PollInterval),
		)
		if err := printer.Run(ctx, os.Stdout); err != nil {
			return err
		}

		logger.Info("scan finished",
			zap.String("table", args[0]),
			zap.Int64("completed_bytes", source.CompletedBytes()),
			zap.Int64("read_time_nanos", source.ReadTimeNanos()),
			zap.Strings("applied_filters", source.AppliedFilters()),
		)
		return nil
	},
}

func init() {
	scanCmd.Flags().StringVar(&address, "address", "", "Datacenter address. Defaults to the configured server address.")
	scanCmd.Flags().StringArrayVar(&filters, "filter", nil, "Dynamic filter to push down, as column=value[,value...]. May be repeated.")
	scanCmd.Flags().StringArrayVar(&orderBy, "order-by", nil, "Column to sort the output by, as column[:desc]. May be repeated.")
	scanCmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table, csv or json.")
	scanCmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of rows to print.")
	scanCmd.Flags().BoolVar(&live, "live", false, "Show transfer progress while scanning.")
	scanCmd.Flags().BoolVar(&countOnly, "count", false, "Only count the rows.")
	scanCmd.Flags().StringVar(&cpuprofile, "cpuprofile", "", "Directory to write a CPU profile to.")
	rootCmd.AddCommand(scanCmd)
}
