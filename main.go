package main

import (
	"os"

	"expense_automation/data"
	"expense_automation/service/claimform"
	claimformInterface "expense_automation/service/claimform/interfaces"
	"expense_automation/service/export"
	"expense_automation/service/ingest"
	"expense_automation/service/reconcile"
	reconcileInterface "expense_automation/service/reconcile/interfaces"
	"expense_automation/util"
	"expense_automation/web"

	"github.com/joho/godotenv"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func main() {
	// A .env file is optional.
	_ = godotenv.Load()

	logger := util.Logger()
	defer func() {
		_ = logger.Sync()
	}()

	app := cli.NewApp()
	app.Name = "expense_automation"
	app.Usage = "reconcile receipts with external charge statements and render claim forms"
	app.Commands = []cli.Command{
		reconcileCommand(logger),
		claimFormCommand(logger),
		serveCommand(logger),
	}

	if err := app.Run(os.Args); err != nil {
		logger.Fatal("command failed", zap.Error(err))
	}
}

func reconcileCommand(logger *zap.Logger) cli.Command {
	return cli.Command{
		Name:      "reconcile",
		Usage:     "merge receipt evidence with an external statement into a claim CSV",
		ArgsUsage: "<receipts file> <external file>",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "output",
				Usage: "output CSV path",
				Value: "output/claim_form.csv",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return cli.NewExitError("usage: reconcile <receipts file> <external file>", 1)
			}
			receipts, err := ingest.LoadReceipts(c.Args().Get(0))
			if err != nil {
				return err
			}
			pool, err := ingest.LoadCharges(c.Args().Get(1))
			if err != nil {
				return err
			}

			out, err := reconcile.NewService().MatchReceipts(&reconcileInterface.MatchReceiptsIn{
				Receipts: receipts,
				Charges:  pool,
			})
			if err != nil {
				return err
			}
			if err := export.WriteMergedCSV(out.Merged, c.String("output")); err != nil {
				return err
			}

			logger.Info("claim form generated",
				zap.String("path", c.String("output")),
				zap.Int("rows", len(out.Merged)),
				zap.Int("matched", out.MatchedCount),
				zap.Int("unmatched", out.UnmatchedCount),
				zap.Int("external_only", out.ExternalOnlyCount))
			return nil
		},
	}
}

func claimFormCommand(logger *zap.Logger) cli.Command {
	return cli.Command{
		Name:      "claimform",
		Usage:     "render expense items into the paginated claim form workbook",
		ArgsUsage: "[expense CSV files...]",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "template", Usage: "blank claim form template", Value: "template.xlsx"},
			cli.StringFlag{Name: "output", Usage: "output workbook path", Value: "Final_Claim_Report.xlsx"},
			cli.StringFlag{Name: "employee", Usage: "employee name", Value: "WANG TING I"},
			cli.StringFlag{Name: "department", Usage: "department name", Value: "Sales Engineer"},
			cli.StringFlag{Name: "month", Usage: "claim month label", Value: "September"},
			cli.StringFlag{Name: "etc-statement", Usage: "toll (ETC) statement workbook to merge in"},
			cli.StringFlag{Name: "charging-statement", Usage: "EV charging statement workbook to merge in"},
			cli.IntFlag{Name: "demo-items", Usage: "generate OCR-style demo items when no sources are given", Value: 12},
		},
		Action: func(c *cli.Context) error {
			var sources [][]*data.ExpenseItem
			if c.NArg() > 0 {
				items, err := ingest.LoadExpenseSources(c.Args())
				if err != nil {
					return err
				}
				sources = append(sources, items)
			}
			if path := c.String("etc-statement"); path != "" {
				items, err := ingest.NewETCReader(path).Read()
				if err != nil {
					return err
				}
				sources = append(sources, items)
			}
			if path := c.String("charging-statement"); path != "" {
				items, err := ingest.NewChargingReader(path).Read()
				if err != nil {
					return err
				}
				sources = append(sources, items)
			}

			items := ingest.MergeExpenses(sources...)
			if len(sources) == 0 {
				items = ingest.MockOCRItems(c.Int("demo-items"))
			}

			writer := claimform.NewService(c.String("template"), c.String("output"))
			out, err := writer.WriteClaimForm(&claimformInterface.WriteClaimFormIn{
				Header: &data.ClaimHeader{
					EmployeeName: c.String("employee"),
					Department:   c.String("department"),
					MonthOfClaim: c.String("month"),
				},
				Items: items,
			})
			if err != nil {
				return err
			}

			logger.Info("claim form generated",
				zap.String("path", out.OutputPath),
				zap.Int("items", len(items)),
				zap.Int("pages", out.Pages))
			return nil
		},
	}
}

func serveCommand(logger *zap.Logger) cli.Command {
	return cli.Command{
		Name:  "serve",
		Usage: "run the upload front end",
		Action: func(c *cli.Context) error {
			addr := ":" + getEnv("APP_PORT", "5000")
			return web.NewServer(logger).Run(addr)
		},
	}
}
