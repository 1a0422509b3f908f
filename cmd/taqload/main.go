// taqload - WRDS TAQ tick data loader
// Retrieves historical trade and quote records for a ticker symbol and date
// or date range from a WRDS-style Postgres source, with optional export to
// a local DuckDB database.
//
// Usage:
//
//	taqload fetch --symbol AAPL --kind trades --date 2023-09-01
//	taqload fetch --symbol AAPL --kind quotes --start 2023-09-01 --end 2023-09-05
//	taqload export --symbol AAPL --kind trades --start 2023-09-01 --end 2023-09-05 --db ticks.duckdb
//	taqload ping
//
// For detailed help on any command, use: taqload <command> --help
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/quantbench/taqload/internal/config"
	"github.com/quantbench/taqload/internal/logger"
	"github.com/quantbench/taqload/internal/metrics"
	"github.com/quantbench/taqload/internal/models"
	"github.com/quantbench/taqload/internal/storage"
	"github.com/quantbench/taqload/internal/taq"
	"github.com/quantbench/taqload/internal/wrds"
)

const (
	Version    = "1.0.0"
	AppName    = "taqload"
	ConfigFile = "taqload.json"
)

// Exit codes following standard conventions
const (
	ExitSuccess       = 0
	ExitUsageError    = 1
	ExitConfigError   = 2
	ExitConnectionErr = 3
	ExitNoData        = 4
	ExitInterrupt     = 130
)

// CLI holds the wired application components.
type CLI struct {
	config  *config.Config
	logger  *slog.Logger
	client  *wrds.Client
	fetcher *taq.Fetcher
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(ExitUsageError)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "fetch":
		os.Exit(runFetch(ctx, args, false))
	case "export":
		os.Exit(runFetch(ctx, args, true))
	case "ping":
		os.Exit(runPing(ctx, args))
	case "--version", "-v":
		fmt.Printf("%s version %s\n", AppName, Version)
	case "--help", "-h", "help":
		if len(args) > 0 {
			printCommandHelp(args[0])
		} else {
			printUsage()
		}
	default:
		fmt.Fprintf(os.Stderr, "Error: Unknown command '%s'\n\n", command)
		printUsage()
		os.Exit(ExitUsageError)
	}
}

// initialize loads configuration, builds the logger, and connects to WRDS.
func initialize(ctx context.Context, flags *fetchFlags) (*CLI, func(), error) {
	cfg, err := config.Load(flags.Config)
	if err != nil {
		return nil, nil, err
	}

	if flags.Verbosity >= 0 {
		cfg.Source.Verbosity = flags.Verbosity
	}
	if flags.Library != "" {
		cfg.Source.Library = flags.Library
	}

	// The verbosity flag widens the log level so per-query diagnostics are
	// actually visible at 2 and everything below errors is silent at 0.
	verbosityLevel := logger.VerbosityLevel(cfg.Source.Verbosity)
	if verbosityLevel < logger.ParseLevel(cfg.Logging.Level) {
		cfg.Logging.Level = strings.ToLower(verbosityLevel.String())
	} else if cfg.Source.Verbosity == taq.VerbositySilent {
		cfg.Logging.Level = "error"
	}

	log, closer, err := logger.Setup(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}

	client, err := wrds.Connect(ctx, cfg.Connection, log)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}

	fetcher := taq.New(client, taq.Config{
		Library:   cfg.Source.Library,
		Naming:    cfg.Source.Naming(),
		Window:    cfg.Source.Window(),
		Verbosity: cfg.Source.Verbosity,
		Logger:    log,
		Metrics:   metrics.NewRegistry(),
	})

	cli := &CLI{config: cfg, logger: log, client: client, fetcher: fetcher}
	cleanup := func() {
		client.Close()
		closer.Close()
	}
	return cli, cleanup, nil
}

// runFetch handles both the fetch and export commands; export additionally
// persists the result to a local DuckDB database.
func runFetch(ctx context.Context, args []string, export bool) int {
	flags, err := parseFetchFlags(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitUsageError
	}
	if flags.Help {
		if export {
			printCommandHelp("export")
		} else {
			printCommandHelp("fetch")
		}
		return ExitSuccess
	}

	if flags.Symbol == "" {
		fmt.Fprintln(os.Stderr, "Error: --symbol is required")
		return ExitUsageError
	}
	kind, err := models.ParseRecordKind(flags.Kind)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitUsageError
	}
	singleDay := flags.Date != ""
	if !singleDay && (flags.Start == "" || flags.End == "") {
		fmt.Fprintln(os.Stderr, "Error: specify either --date or both --start and --end")
		return ExitUsageError
	}

	cli, cleanup, err := initialize(ctx, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitConnectionErr
	}
	defer cleanup()

	window := taq.TimeWindow{Start: flags.WindowStart, End: flags.WindowEnd}

	var result *taq.Result
	if singleDay {
		result = cli.fetcher.FetchDay(ctx, taq.DayRequest{
			Symbol: flags.Symbol,
			Date:   flags.Date,
			Kind:   kind,
			Window: window,
		})
	} else {
		result = cli.fetcher.FetchRange(ctx, taq.RangeRequest{
			Symbol: flags.Symbol,
			Start:  flags.Start,
			End:    flags.End,
			Kind:   kind,
			Window: window,
		})
	}

	if result.Absent() {
		fmt.Printf("No data available (%s)\n", result.Absence.Reason)
		return ExitNoData
	}

	if export {
		if err := exportTable(ctx, cli, flags, result.Table); err != nil {
			cli.logger.Error("export failed", "error", err)
			return ExitNoData
		}
		fmt.Printf("Exported %d %s rows to %s\n", result.Table.Len(), kind, exportPath(cli, flags))
		return ExitSuccess
	}

	if err := output(result.Table, flags.Format, flags.Limit); err != nil {
		cli.logger.Error("output failed", "error", err)
		return ExitNoData
	}
	return ExitSuccess
}

func exportPath(cli *CLI, flags *fetchFlags) string {
	if flags.DB != "" {
		return flags.DB
	}
	return cli.config.Export.DatabasePath
}

// exportTable persists a fetched table to the DuckDB sink.
func exportTable(ctx context.Context, cli *CLI, flags *fetchFlags, table *models.Table) error {
	store, err := storage.NewTickStore(exportPath(cli, flags), cli.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Initialize(ctx); err != nil {
		return err
	}
	return store.StoreTable(ctx, table)
}

// runPing handles the ping command: verify the WRDS connection and exit.
func runPing(ctx context.Context, args []string) int {
	flags, err := parseFetchFlags(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitUsageError
	}
	if flags.Help {
		printCommandHelp("ping")
		return ExitSuccess
	}

	cli, cleanup, err := initialize(ctx, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitConnectionErr
	}
	defer cleanup()

	if err := cli.client.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: ping failed: %v\n", err)
		return ExitConnectionErr
	}
	fmt.Println("Connection OK")
	return ExitSuccess
}

// fetchFlags represents flags shared by the fetch, export, and ping commands.
type fetchFlags struct {
	Symbol      string
	Kind        string
	Date        string
	Start       string
	End         string
	WindowStart string
	WindowEnd   string
	Library     string
	Format      string
	Limit       int
	DB          string
	Config      string
	Verbosity   int
	Help        bool
}

func parseFetchFlags(args []string) (*fetchFlags, error) {
	flags := &fetchFlags{
		Kind:      "trades",
		Format:    "table",
		Limit:     50,
		Config:    ConfigFile,
		Verbosity: -1, // -1 means "use configured value"
	}

	needsValue := func(i int) error {
		if i+1 >= len(args) {
			return fmt.Errorf("%s requires a value", args[i])
		}
		return nil
	}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--symbol", "-s":
			if err := needsValue(i); err != nil {
				return nil, err
			}
			flags.Symbol = args[i+1]
			i++
		case "--kind", "-k":
			if err := needsValue(i); err != nil {
				return nil, err
			}
			flags.Kind = args[i+1]
			i++
		case "--date", "-d":
			if err := needsValue(i); err != nil {
				return nil, err
			}
			flags.Date = args[i+1]
			i++
		case "--start":
			if err := needsValue(i); err != nil {
				return nil, err
			}
			flags.Start = args[i+1]
			i++
		case "--end":
			if err := needsValue(i); err != nil {
				return nil, err
			}
			flags.End = args[i+1]
			i++
		case "--window-start":
			if err := needsValue(i); err != nil {
				return nil, err
			}
			flags.WindowStart = args[i+1]
			i++
		case "--window-end":
			if err := needsValue(i); err != nil {
				return nil, err
			}
			flags.WindowEnd = args[i+1]
			i++
		case "--library", "-l":
			if err := needsValue(i); err != nil {
				return nil, err
			}
			flags.Library = args[i+1]
			i++
		case "--format", "-f":
			if err := needsValue(i); err != nil {
				return nil, err
			}
			format := args[i+1]
			if format != "json" && format != "csv" && format != "table" {
				return nil, fmt.Errorf("invalid format, must be: json, csv, or table")
			}
			flags.Format = format
			i++
		case "--limit":
			if err := needsValue(i); err != nil {
				return nil, err
			}
			limit, err := strconv.Atoi(args[i+1])
			if err != nil {
				return nil, fmt.Errorf("invalid limit value: %w", err)
			}
			flags.Limit = limit
			i++
		case "--db":
			if err := needsValue(i); err != nil {
				return nil, err
			}
			flags.DB = args[i+1]
			i++
		case "--config", "-c":
			if err := needsValue(i); err != nil {
				return nil, err
			}
			flags.Config = args[i+1]
			i++
		case "--verbosity":
			if err := needsValue(i); err != nil {
				return nil, err
			}
			v, err := strconv.Atoi(args[i+1])
			if err != nil {
				return nil, fmt.Errorf("invalid verbosity value: %w", err)
			}
			flags.Verbosity = v
			i++
		case "--help", "-h":
			flags.Help = true
		default:
			return nil, fmt.Errorf("unknown flag: %s", args[i])
		}
	}

	return flags, nil
}

// Output formatting

func output(table *models.Table, format string, limit int) error {
	switch format {
	case "json":
		return outputJSON(table)
	case "csv":
		return outputCSV(table)
	default:
		return outputTable(table, limit)
	}
}

func outputJSON(table *models.Table) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(table)
}

func outputCSV(table *models.Table) error {
	if table.Kind == models.KindQuote {
		fmt.Println("timestamp,exchange,symbol,bid,bid_size,ask,ask_size,quote_cond")
		for _, q := range table.Quotes {
			fmt.Printf("%s,%s,%s,%s,%d,%s,%d,%s\n",
				q.Timestamp.Format("2006-01-02T15:04:05.999999999Z"),
				q.Exchange, q.Symbol, q.Bid, q.BidSize, q.Ask, q.AskSize, q.QuoteCond)
		}
		return nil
	}
	fmt.Println("timestamp,exchange,symbol,price,size,sale_cond,corr")
	for _, t := range table.Trades {
		fmt.Printf("%s,%s,%s,%s,%d,%s,%s\n",
			t.Timestamp.Format("2006-01-02T15:04:05.999999999Z"),
			t.Exchange, t.Symbol, t.Price, t.Size, t.SaleCond, t.Corr)
	}
	return nil
}

func outputTable(table *models.Table, limit int) error {
	total := table.Len()
	fmt.Printf("%d %s rows across %d day(s)\n\n", total, table.Kind, table.Days)

	shown := total
	if limit > 0 && shown > limit {
		shown = limit
	}

	if table.Kind == models.KindQuote {
		fmt.Printf("%-30s %-4s %-8s %-12s %-10s %-12s %-10s %-6s\n",
			"Timestamp", "Ex", "Symbol", "Bid", "BidSize", "Ask", "AskSize", "Cond")
		fmt.Println(strings.Repeat("-", 100))
		for _, q := range table.Quotes[:shown] {
			fmt.Printf("%-30s %-4s %-8s %-12s %-10d %-12s %-10d %-6s\n",
				q.Timestamp.Format("2006-01-02 15:04:05.000"),
				q.Exchange, q.Symbol, q.Bid, q.BidSize, q.Ask, q.AskSize, q.QuoteCond)
		}
	} else {
		fmt.Printf("%-30s %-4s %-8s %-12s %-10s %-6s %-4s\n",
			"Timestamp", "Ex", "Symbol", "Price", "Size", "Cond", "Corr")
		fmt.Println(strings.Repeat("-", 80))
		for _, t := range table.Trades[:shown] {
			fmt.Printf("%-30s %-4s %-8s %-12s %-10d %-6s %-4s\n",
				t.Timestamp.Format("2006-01-02 15:04:05.000"),
				t.Exchange, t.Symbol, t.Price, t.Size, t.SaleCond, t.Corr)
		}
	}

	if shown < total {
		fmt.Printf("\n... showing first %d of %d rows (use --limit to see more)\n", shown, total)
	}
	return nil
}

// Help and usage

func printUsage() {
	fmt.Printf(`%s - WRDS TAQ tick data loader v%s

USAGE:
    %s <command> [options]

COMMANDS:
    fetch       Fetch trade or quote records for a symbol and date/range
    export      Fetch records and store them in a local DuckDB database
    ping        Verify the WRDS connection

GLOBAL OPTIONS:
    --help, -h     Show help information
    --version, -v  Show version information

EXAMPLES:
    # Fetch AAPL trades for one day
    %s fetch --symbol AAPL --kind trades --date 2023-09-01

    # Fetch AAPL quotes for a date range as CSV
    %s fetch --symbol AAPL --kind quotes --start 2023-09-01 --end 2023-09-05 --format csv

    # Export a week of trades to DuckDB
    %s export --symbol AAPL --kind trades --start 2023-09-01 --end 2023-09-08 --db ticks.duckdb

CONFIGURATION:
    Configuration can be provided via:
    - Config file: %s (JSON format)
    - Environment variables: TAQLOAD_* and WRDS_* (e.g. WRDS_USERNAME)

For detailed help on any command, use: %s <command> --help
`, AppName, Version, AppName, AppName, AppName, AppName, ConfigFile, AppName)
}

func printCommandHelp(command string) {
	switch command {
	case "fetch", "export":
		fmt.Printf(`%s %s - retrieve TAQ records

USAGE:
    %s %s [options]

OPTIONS:
    --symbol, -s <symbol>     Ticker symbol root (required), e.g. AAPL
    --kind, -k <kind>         Record kind: trades or quotes (default: trades)
    --date, -d <date>         Single trading day (YYYY-MM-DD)
    --start <date>            Range start, inclusive (YYYY-MM-DD)
    --end <date>              Range end, inclusive (YYYY-MM-DD)
    --window-start <time>     Time-of-day lower bound (default: 09:30:00)
    --window-end <time>       Time-of-day upper bound (default: 16:00:00)
    --library, -l <name>      Source library (default: taqmsec)
    --format, -f <format>     Output format: table, json, csv (default: table)
    --limit <n>               Rows shown in table format (default: 50)
    --db <path>               DuckDB path for export (default from config)
    --config, -c <path>       Config file path (default: %s)
    --verbosity <0|1|2>       0 silent, 1 summaries, 2 per-query diagnostics
    --help, -h                Show this help message

NOTES:
    - Use either --date or both --start and --end
    - Days in a range with no data are skipped, not errors
    - A missing dated table (holiday, weekend) is reported as "no data"
`, AppName, command, AppName, command, ConfigFile)

	case "ping":
		fmt.Printf(`%s ping - verify the WRDS connection

USAGE:
    %s ping [--config <path>]

Connects using the configured credentials and reports success or failure.
`, AppName, AppName)

	default:
		fmt.Fprintf(os.Stderr, "No help available for command: %s\n", command)
		printUsage()
	}
}
