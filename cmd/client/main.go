package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"gitlab.com/dirk.krummacker/contact-keeper/internal/auth"
	"gitlab.com/dirk.krummacker/contact-keeper/pkg/model"
)

// client sends authenticated requests to the contacts API and measures their duration.
type client struct {
	baseURL string
	token   string
}

// Usage example on the command line:
// > JWT_SECRET=changeme go run main.go --url=http://localhost:8080
func main() {
	app := &cli.App{
		Name:  "client",
		Usage: "measure the average duration of contacts API calls",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "the base URL of the service"},
			&cli.StringFlag{Name: "secret", EnvVars: []string{"JWT_SECRET"}, Required: true, Usage: "the secret shared with the service"},
			&cli.StringFlag{Name: "user", Value: "load-test", Usage: "the user to act as"},
			&cli.IntSliceFlag{Name: "sizes", Value: cli.NewIntSlice(1000, 5000, 10000), Usage: "numbers of contacts per round"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	token, err := auth.NewIssuer(ctx.String("secret"), time.Hour).Issue(ctx.String("user"))
	if err != nil {
		return err
	}
	c := &client{baseURL: ctx.String("url"), token: token}
	jsonBody := []byte(`{
		"name": "Marcus Antonius",
		"email": "marcus@example.com",
		"phone": "+39 999 777 555",
		"type": "professional"
	}`)

	fmt.Println()
	fmt.Println("  Elements      POST       PUT       GET    DELETE ")
	fmt.Println("---------------------------------------------------")
	for _, loops := range ctx.IntSlice("sizes") {
		fmt.Printf("%10d", loops)
		ids := make([]string, 0, loops)
		var duration int64
		for i := 0; i < loops; i++ {
			contact, d, err := c.create(bytes.NewReader(jsonBody))
			if err != nil {
				return err
			}
			ids = append(ids, contact.Id)
			duration += d
		}
		fmt.Printf("%10d", duration/int64(loops*1000))

		rand.Shuffle(len(ids), func(i, j int) {
			ids[i], ids[j] = ids[j], ids[i]
		})
		if err := c.callInLoop(ids, http.MethodPut, jsonBody); err != nil {
			return err
		}
		// The API only lists all contacts of a user, so GET is measured once per contact.
		if err := c.repeat(loops, func() (int64, error) {
			_, d, err := c.send(http.MethodGet, c.baseURL+"/api/contacts", nil)
			return d, err
		}); err != nil {
			return err
		}
		if err := c.callInLoop(ids, http.MethodDelete, nil); err != nil {
			return err
		}
		fmt.Println()
	}
	return nil
}

func (c *client) callInLoop(ids []string, method string, body []byte) error {
	i := 0
	return c.repeat(len(ids), func() (int64, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		_, d, err := c.send(method, c.baseURL+"/api/contacts/"+ids[i], reader)
		i++
		return d, err
	})
}

func (c *client) repeat(loops int, f func() (int64, error)) error {
	var duration int64
	for i := 0; i < loops; i++ {
		d, err := f()
		if err != nil {
			return err
		}
		duration += d
	}
	fmt.Printf("%10d", duration/int64(loops*1000))
	return nil
}

func (c *client) create(body io.Reader) (model.Contact, int64, error) {
	resBody, duration, err := c.send(http.MethodPost, c.baseURL+"/api/contacts", body)
	if err != nil {
		return model.Contact{}, 0, err
	}
	var contact model.Contact
	if err := json.Unmarshal(resBody, &contact); err != nil {
		return model.Contact{}, 0, errors.Wrap(err, "could not unmarshal JSON")
	}
	return contact, duration, nil
}

// send returns the response body and the duration of the call in nanoseconds.
func (c *client) send(method string, requestURL string, body io.Reader) ([]byte, int64, error) {
	req, err := http.NewRequest(method, requestURL, body)
	if err != nil {
		return nil, 0, errors.Wrap(err, "could not create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	before := time.Now().UnixNano()
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, 0, errors.Wrap(err, "error making http request")
	}
	defer res.Body.Close()
	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, 0, errors.Wrap(err, "could not read response body")
	}
	after := time.Now().UnixNano()
	if res.StatusCode != http.StatusOK {
		var msg model.Message
		json.Unmarshal(resBody, &msg)
		return nil, 0, errors.Errorf("%s %s answered %d: %s", method, requestURL, res.StatusCode, msg.Msg)
	}
	return resBody, after - before, nil
}
