package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/autopo-labels/internal/app"
	"github.com/andresuchdata/autopo-labels/internal/config"
	"github.com/andresuchdata/autopo-labels/internal/domain"
	"github.com/andresuchdata/autopo-labels/internal/ledger"
	"github.com/andresuchdata/autopo-labels/pkg/logger"
)

func main() {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		logger.Log.Warn().Err(err).Msg("could not load .env file")
	}

	if err := newApp().Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("labelctl failed")
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "labelctl",
		Usage: "Operate the purchase order barcode label pipeline",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "process",
				Usage: "Process one WMS email body exactly as the HTTP trigger would",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Usage:    "Path to the HTML email body",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "sender",
						Usage:   "Sender address of the email (defaults to WMS_SENDER_EMAIL)",
						EnvVars: []string{"WMS_SENDER_EMAIL"},
					},
				},
				Action: runProcess,
			},
			{
				Name:  "render",
				Usage: "Render a single label to a PNG file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "item", Usage: "Item code encoded in the barcode", Required: true},
					&cli.StringFlag{Name: "desc", Usage: "Description printed under the item code"},
					&cli.StringFlag{Name: "out", Usage: "Output PNG path", Value: "label.png"},
				},
				Action: runRender,
			},
			{
				Name:  "ledger",
				Usage: "Inspect or reconcile the processed-order ledger",
				Subcommands: []*cli.Command{
					{
						Name:      "check",
						Usage:     "Report whether a PO was processed",
						ArgsUsage: "PO_ID",
						Action:    withLedger(runLedgerCheck),
					},
					{
						Name:   "list",
						Usage:  "List every recorded PO",
						Action: withLedger(runLedgerList),
					},
					{
						Name:      "record",
						Usage:     "Record a PO as processed without sending anything",
						ArgsUsage: "PO_ID",
						Action:    withLedger(runLedgerRecord),
					},
				},
			},
		},
	}
}

func runProcess(c *cli.Context) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	body, err := os.ReadFile(c.String("file"))
	if err != nil {
		return fmt.Errorf("read email body: %w", err)
	}

	components, err := app.New(c.Context, cfg)
	if err != nil {
		return err
	}
	defer components.Close()

	outcome, procErr := components.Processor.Process(c.Context, domain.InboundEmail{
		Sender: c.String("sender"),
		Body:   string(body),
	})

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(outcome); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, outcome.Message())
	return procErr
}

func runRender(c *cli.Context) error {
	renderer, err := app.NewRenderer(config.Load())
	if err != nil {
		return err
	}

	img, err := renderer.Render(domain.Variant{
		ItemCode:    c.String("item"),
		Description: c.String("desc"),
	}, 0)
	if err != nil {
		return err
	}

	if err := os.WriteFile(c.String("out"), img.PNG, 0o644); err != nil {
		return fmt.Errorf("write label: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "wrote %s (%d bytes)\n", c.String("out"), len(img.PNG))
	return nil
}

type ledgerAction func(c *cli.Context, l *ledger.LineLedger) error

func withLedger(action ledgerAction) cli.ActionFunc {
	return func(c *cli.Context) error {
		l, closeFn, err := app.NewLedger(config.Load())
		if err != nil {
			return err
		}
		defer closeFn()
		return action(c, l)
	}
}

func poArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("expected exactly one PO id, got %d", c.NArg())
	}
	return c.Args().First(), nil
}

func runLedgerCheck(c *cli.Context, l *ledger.LineLedger) error {
	poID, err := poArg(c)
	if err != nil {
		return err
	}
	processed, err := l.Contains(c.Context, poID)
	if err != nil {
		return err
	}
	if processed {
		fmt.Fprintf(c.App.Writer, "%s: processed\n", poID)
	} else {
		fmt.Fprintf(c.App.Writer, "%s: not processed\n", poID)
	}
	return nil
}

func runLedgerList(c *cli.Context, l *ledger.LineLedger) error {
	ids, err := l.IDs(c.Context)
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Fprintln(c.App.Writer, id)
	}
	return nil
}

func runLedgerRecord(c *cli.Context, l *ledger.LineLedger) error {
	poID, err := poArg(c)
	if err != nil {
		return err
	}
	processed, err := l.Contains(c.Context, poID)
	if err != nil {
		return err
	}
	if processed {
		fmt.Fprintf(c.App.Writer, "%s already recorded\n", poID)
		return nil
	}
	if err := l.Append(c.Context, poID); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s recorded\n", poID)
	return nil
}
