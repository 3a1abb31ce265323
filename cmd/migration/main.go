package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"gitlab.com/dirk.krummacker/contact-keeper/internal/config"
	"gitlab.com/dirk.krummacker/contact-keeper/internal/store"
)

// Usage example on the command line:
// > DBHOST=localhost:3306 DBUSER=dirk DBPWD=bullo92 go run main.go --file=../../scripts/database.sql
func main() {
	app := &cli.App{
		Name:  "migration",
		Usage: "execute a SQL file against the contacts database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Value:   "database.sql",
				Usage:   "the sql file to execute",
			},
		},
		Action: migrate,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func migrate(ctx *cli.Context) error {
	conf, err := config.ParseMySQL()
	if err != nil {
		return err
	}
	sqlDB, err := store.OpenMySQL(*conf)
	if err != nil {
		return err
	}
	db := sqlx.NewDb(sqlDB, "mysql")
	defer db.Close()

	readFile, err := os.Open(ctx.String("file")) // nosemgrep
	if err != nil {
		return errors.WithStack(err)
	}
	defer readFile.Close()

	statements := 0
	fileScanner := bufio.NewScanner(readFile)
	fileScanner.Split(bufio.ScanLines)
	builder := strings.Builder{}
	for fileScanner.Scan() {
		line := fileScanner.Text()
		builder.WriteString(line)
		builder.WriteString(" ")
		if strings.Contains(line, ";") {
			if _, err := db.ExecContext(ctx.Context, builder.String()); err != nil {
				return errors.Wrapf(err, "statement %d failed", statements+1)
			}
			statements++
			builder = strings.Builder{}
		}
	}
	if err := fileScanner.Err(); err != nil {
		return errors.WithStack(err)
	}
	fmt.Printf("executed %d statements\n", statements)
	return nil
}
