package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"gitlab.com/dirk.krummacker/contact-keeper/internal/auth"
)

// Usage example on the command line:
// > JWT_SECRET=changeme go run main.go --user=u1
func main() {
	app := &cli.App{
		Name:  "token",
		Usage: "issue an access token for a user, e.g. for testing the API with curl",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "user",
				Aliases:  []string{"u"},
				Usage:    "the user id that becomes the owner of created contacts",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "secret",
				EnvVars:  []string{"JWT_SECRET"},
				Usage:    "the secret shared with the service",
				Required: true,
			},
			&cli.DurationFlag{
				Name:  "ttl",
				Value: 24 * time.Hour,
				Usage: "how long the token stays valid",
			},
		},
		Action: func(ctx *cli.Context) error {
			token, err := auth.NewIssuer(ctx.String("secret"), ctx.Duration("ttl")).Issue(ctx.String("user"))
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
