package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v2"
)

// Usage example on the command line:
// > go run main.go --url=http://localhost:8080/healthz --timeout=2m
func main() {
	app := &cli.App{
		Name:  "wait-until-available",
		Usage: "poll the health endpoint of the service until it answers with OK",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080/healthz", Usage: "the health endpoint to poll"},
			&cli.DurationFlag{Name: "timeout", Value: 5 * time.Minute, Usage: "give up after this long"},
			&cli.DurationFlag{Name: "interval", Value: 5 * time.Second, Usage: "time between attempts"},
		},
		Action: wait,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func wait(ctx *cli.Context) error {
	deadline := time.Now().Add(ctx.Duration("timeout"))
	var totalWaitTime time.Duration
	for {
		res, err := http.Get(ctx.String("url"))
		if err == nil {
			res.Body.Close()
			fmt.Println(res.Status)
			if res.StatusCode == http.StatusOK {
				return nil
			}
		} else {
			fmt.Println(err)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("service did not become available within %s", ctx.Duration("timeout"))
		}
		totalWaitTime += ctx.Duration("interval")
		fmt.Printf("Waiting %s\n", totalWaitTime)
		time.Sleep(ctx.Duration("interval"))
	}
}
