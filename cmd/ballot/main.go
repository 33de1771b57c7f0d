package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/bbengfort/ballot"
)

func main() {
	// Load the dotenv file if it exists before the config is built
	godotenv.Load()

	app := cli.NewApp()
	app.Name = "ballot"
	app.Version = ballot.PackageVersion
	app.Usage = "run and interact with a ballot election ledger"

	app.Commands = []*cli.Command{
		{
			Name:   "serve",
			Usage:  "run the ballot ledger server",
			Action: serve,
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "addr", Aliases: []string{"a"}, Usage: "address to bind the API on"},
				&cli.StringFlag{Name: "owner", Aliases: []string{"o"}, Usage: "identity of the owner admin"},
				&cli.StringFlag{Name: "journal", Aliases: []string{"j"}, Usage: "path to the durable event journal"},
				&cli.StringFlag{Name: "uptime", Aliases: []string{"u"}, Usage: "run for a time limit and shutdown"},
			},
		},
		{
			Name:   "token",
			Usage:  "mint a signed identity token for the API",
			Action: token,
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "identity", Aliases: []string{"i"}, Usage: "identity to mint the token for", Required: true},
				&cli.DurationFlag{Name: "duration", Aliases: []string{"d"}, Usage: "validity period of the token", Value: 24 * time.Hour},
			},
		},
		{
			Name:   "status",
			Usage:  "fetch the status of a running ballot server",
			Action: status,
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "endpoint", Aliases: []string{"e"}, Usage: "endpoint of the ballot server", Value: "http://localhost:4157"},
			},
		},
		{
			Name:   "bench",
			Usage:  "run a vote throughput benchmark against a running server",
			Action: bench,
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "endpoint", Aliases: []string{"e"}, Usage: "endpoint of the ballot server", Value: "http://localhost:4157"},
				&cli.BoolFlag{Name: "blast", Aliases: []string{"b"}, Usage: "cast all ballots simultaneously"},
				&cli.UintFlag{Name: "operations", Aliases: []string{"n"}, Usage: "number of ballots to cast (per worker in simple mode)", Value: 100},
				&cli.UintFlag{Name: "concurrency", Aliases: []string{"c"}, Usage: "number of workers in simple mode", Value: 4},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

//===========================================================================
// Commands
//===========================================================================

func serve(c *cli.Context) error {
	options := &ballot.Config{
		BindAddr: c.String("addr"),
		Owner:    c.String("owner"),
		Journal:  c.String("journal"),
		Uptime:   c.String("uptime"),
	}

	service, err := ballot.New(options)
	if err != nil {
		return cli.Exit(err, 1)
	}

	server, err := ballot.NewServer(service)
	if err != nil {
		return cli.Exit(err, 1)
	}

	if err := server.Serve(); err != nil {
		return cli.Exit(err, 1)
	}
	return nil
}

func token(c *cli.Context) error {
	config := new(ballot.Config)
	if err := config.Load(); err != nil {
		return cli.Exit(err, 1)
	}

	token, err := ballot.MintToken(config.Secret, c.String("identity"), c.Duration("duration"))
	if err != nil {
		return cli.Exit(err, 1)
	}

	fmt.Println(token)
	return nil
}

func status(c *cli.Context) error {
	client, err := ballot.NewClient(c.String("endpoint"), "")
	if err != nil {
		return cli.Exit(err, 1)
	}

	info, err := client.Status()
	if err != nil {
		return cli.Exit(err, 1)
	}

	for key, val := range info {
		fmt.Printf("%s: %v\n", key, val)
	}
	return nil
}

func bench(c *cli.Context) error {
	benchmark, err := ballot.NewBenchmark(
		nil, c.String("endpoint"), c.Bool("blast"), c.Uint("operations"), c.Uint("concurrency"),
	)
	if err != nil {
		return cli.Exit(err, 1)
	}

	results, err := benchmark.CSV(true)
	if err != nil {
		return cli.Exit(err, 1)
	}

	fmt.Println(results)
	return nil
}
