// salesctl is the operator tool for the sale ledger. It wires the same services
// as the API server and runs one reconciliation action per invocation.
//
//	salesctl pending [--limit N]
//	salesctl close <saleId> --note "refunded by phone"
//	salesctl retry
//	salesctl sync-catalog
//	salesctl sync-sales
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"seatflow/api/routes"
	"seatflow/internal/sales"
	"seatflow/internal/shared/config"
	"seatflow/internal/shared/database"
	"seatflow/pkg/logger"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

type options struct {
	configPath string
	note       string
	limit      int
	jsonOutput bool
	timeout    time.Duration
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	var opts options
	flagSet := pflag.NewFlagSet("salesctl", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.configPath, "config", "c", "", "YAML overlay with database, redis and inventory settings")
	flagSet.StringVar(&opts.note, "note", "", "note recorded when closing a sale")
	flagSet.IntVar(&opts.limit, "limit", 50, "maximum number of sales to list")
	flagSet.BoolVar(&opts.jsonOutput, "json", false, "print results as JSON")
	flagSet.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "overall deadline for the command")
	flagSet.Usage = func() { printUsage(out, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		printUsage(out, flagSet)
		return errors.New("missing command")
	}
	command, commandArgs := rest[0], rest[1:]
	if err := validateCommand(command, commandArgs, opts); err != nil {
		return err
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	seatRedis, err := database.InitSeatRedis(cfg)
	if err != nil {
		logger.GetDefault().Warn("seat Redis unavailable, using the proxy")
	}
	services := routes.BuildServices(cfg, db, routes.ServiceDeps{SeatRedis: seatRedis})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	switch command {
	case "pending":
		result, err := services.Sales.ListAllSales(ctx, sales.SaleListQuery{Outcome: sales.OutcomePending, Limit: opts.limit})
		if err != nil {
			return err
		}
		if opts.jsonOutput {
			return printJSON(out, result)
		}
		return printSales(out, result)

	case "close":
		saleID, _ := uuid.Parse(commandArgs[0])
		sale, err := services.Sales.CloseSale(ctx, saleID, opts.note)
		if err != nil {
			return err
		}
		return printJSON(out, sale.ToResponse())

	case "retry":
		report, err := services.Jobs.RetryPending(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, report)

	case "sync-catalog":
		report, err := services.Jobs.SyncCatalog(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, report)

	case "sync-sales":
		report, err := services.Jobs.SyncSales(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, report)
	}
	return nil
}

// validateCommand runs before any connection is opened
func validateCommand(command string, args []string, opts options) error {
	switch command {
	case "pending", "retry", "sync-catalog", "sync-sales":
		if len(args) != 0 {
			return fmt.Errorf("%s takes no arguments", command)
		}
	case "close":
		if len(args) != 1 {
			return errors.New("close needs exactly one sale id")
		}
		if _, err := uuid.Parse(args[0]); err != nil {
			return fmt.Errorf("invalid sale id %q", args[0])
		}
		if opts.note == "" {
			return errors.New("close needs --note")
		}
	default:
		return fmt.Errorf("unknown command %q", command)
	}
	if opts.limit < 1 || opts.limit > 100 {
		return errors.New("--limit must be between 1 and 100")
	}
	return nil
}

func loadConfig(overlayPath string) (*config.Config, error) {
	// A missing .env is normal outside development
	_ = godotenv.Load()

	cfg := config.Load()
	if overlayPath == "" {
		return cfg, nil
	}

	o, err := loadOverlay(overlayPath)
	if err != nil {
		return nil, err
	}
	o.apply(cfg)
	return cfg, nil
}

func printSales(out io.Writer, result *sales.PaginatedSales) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SALE\tEVENT\tSEATS\tTOTAL\tATTEMPTS\tCREATED\tNOTE")
	for _, s := range result.Sales {
		fmt.Fprintf(w, "%s\t%d\t%d\t%.2f\t%d\t%s\t%s\n",
			s.ID, s.ExternalEventID, len(s.Seats), s.Total, s.Attempts,
			s.CreatedAt.Format(time.RFC3339), s.Note)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "%d of %d pending\n", len(result.Sales), result.TotalCount)
	return err
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printUsage(out io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintln(out, "Usage: salesctl [flags] <pending|close <saleId>|retry|sync-catalog|sync-sales>")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Flags:")
	fmt.Fprint(out, flagSet.FlagUsages())
}
