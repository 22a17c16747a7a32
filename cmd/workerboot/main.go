package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/hermeznetwork/tracerr"
	"github.com/joho/godotenv"
	"github.com/leo-stone-dot/worker_boot_go/bootstrap"
	"github.com/leo-stone-dot/worker_boot_go/config"
	"github.com/leo-stone-dot/worker_boot_go/loader"
	"github.com/leo-stone-dot/worker_boot_go/log"
	"github.com/leo-stone-dot/worker_boot_go/querystring"
	"github.com/leo-stone-dot/worker_boot_go/worker"
	"github.com/urfave/cli/v2"
)

const (
	flagCfg  = "cfg"
	flagEnv  = "env"
	flagURL  = "url"
	flagEval = "eval"

	metaCfg = "cfg"
)

var version = "0.1.0"

func cmdRun(c *cli.Context) error {
	cfg := c.App.Metadata[metaCfg].(*config.Config)
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	w := worker.New(c.String(flagURL), worker.WithFetcher(loader.MuxFromConfig(cfg)))
	if err := w.Boot(ctx); err != nil {
		return tracerr.Wrap(err)
	}
	if expr := c.String(flagEval); expr != "" {
		v, err := w.Eval(ctx, "eval", expr)
		if err != nil {
			return tracerr.Wrap(err)
		}
		fmt.Fprintln(c.App.Writer, v)
	}
	return nil
}

func cmdParse(c *cli.Context) error {
	params, err := querystring.Parse(querystring.Extract(c.String(flagURL)))
	if err != nil {
		return tracerr.Wrap(err)
	}
	out, err := json.Marshal(params)
	if err != nil {
		return tracerr.Wrap(err)
	}
	fmt.Fprintln(c.App.Writer, string(out))
	return nil
}

func cmdResolve(c *cli.Context) error {
	href := c.String(flagURL)
	bootCfg, err := bootstrap.ConfigFromAddress(href)
	if err != nil {
		return tracerr.Wrap(err)
	}
	for _, addr := range bootCfg.Scripts() {
		resolved, err := loader.Resolve(href, addr)
		if err != nil {
			return tracerr.Wrap(err)
		}
		fmt.Fprintln(c.App.Writer, resolved)
	}
	return nil
}

func cmdVersion(c *cli.Context) error {
	fmt.Fprintf(c.App.Writer, "%s %s\n", c.App.Name, c.App.Version)
	return nil
}

// setup loads the optional .env file and the configuration, and
// initializes the logger.
func setup(c *cli.Context) error {
	if envPath := c.String(flagEnv); envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return tracerr.Wrap(fmt.Errorf("error loading env file: %w", err))
		}
	}
	cfg, err := config.Load(c.String(flagCfg))
	if err != nil {
		return tracerr.Wrap(err)
	}
	if err := log.Init(cfg.Log.Level, cfg.Log.ErrorsPath); err != nil {
		return tracerr.Wrap(err)
	}
	c.App.Metadata[metaCfg] = cfg
	return nil
}

func urlFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     flagURL,
		Usage:    "worker startup `URL`, with the locale and worker parameters",
		Required: true,
	}
}

func newApp(out io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "workerboot"
	app.Usage = "Boot a worker from the script addresses in its startup URL"
	app.Version = version
	app.Writer = out
	app.Metadata = map[string]interface{}{}
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  flagCfg,
			Usage: "configuration `FILE`",
		},
		&cli.StringFlag{
			Name:  flagEnv,
			Usage: "environment `FILE`, ignored when missing",
			Value: ".env",
		},
	}
	app.Before = setup
	app.Commands = []*cli.Command{
		{
			Name:   "run",
			Usage:  "Boot a worker, loading its locale and worker scripts",
			Action: cmdRun,
			Flags: []cli.Flag{
				urlFlag(),
				&cli.StringFlag{
					Name:  flagEval,
					Usage: "print the value of `EXPR` evaluated after boot",
				},
			},
		},
		{
			Name:   "parse",
			Usage:  "Print the decoded query parameters of a URL as JSON",
			Action: cmdParse,
			Flags:  []cli.Flag{urlFlag()},
		},
		{
			Name:   "resolve",
			Usage:  "Print the scripts a worker would load, in order",
			Action: cmdResolve,
			Flags:  []cli.Flag{urlFlag()},
		},
		{
			Name:   "version",
			Usage:  "Print the version",
			Action: cmdVersion,
		},
	}
	return app
}

func main() {
	app := newApp(os.Stdout)
	err := app.RunContext(context.Background(), os.Args)
	log.Sync()
	if err != nil {
		fmt.Printf("\nError: %v\n", tracerr.Sprint(err))
		os.Exit(1)
	}
}
