package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/david-macharia/isc-radius/pkg/client"
	"github.com/david-macharia/isc-radius/pkg/log"
	"github.com/david-macharia/isc-radius/pkg/packet"
)

var (
	serverAddr string
	secret     string
	retry      int
	delay      time.Duration
	logLevel   string
	extraAttrs []string
)

func main() {
	root := &cobra.Command{
		Use:          "radclient",
		Short:        "RADIUS test client",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&serverAddr, "server", "s", "127.0.0.1", "server address")
	root.PersistentFlags().StringVar(&secret, "secret", "", "shared secret")
	root.PersistentFlags().IntVar(&retry, "retry", client.DefaultRetry, "passes over the server list")
	root.PersistentFlags().DurationVar(&delay, "delay", client.DefaultDelay, "per-attempt response wait")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level")
	root.PersistentFlags().StringArrayVarP(&extraAttrs, "attribute", "a", nil, "extra attribute as Name=Value")

	authCmd := &cobra.Command{
		Use:   "auth <username> <password>",
		Short: "send an Access-Request",
		Args:  cobra.ExactArgs(2),
		RunE:  runAuth,
	}

	acctCmd := &cobra.Command{
		Use:   "acct",
		Short: "send an Accounting-Request",
		RunE:  runAcct,
	}

	root.AddCommand(authCmd, acctCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newClient() (*client.Client, error) {
	if secret == "" {
		return nil, errors.New("a shared secret is required")
	}
	return client.New(&client.Config{
		Servers: []client.ServerEndpoint{{Addr: serverAddr, Secret: secret}},
		Retry:   retry,
		Delay:   delay,
		Logger:  log.NewWithLevel(logLevel),
	})
}

func parsePairs() ([]client.Pair, error) {
	var pairs []client.Pair
	for _, raw := range extraAttrs {
		name, value, ok := strings.Cut(raw, "=")
		if !ok {
			return nil, fmt.Errorf("bad attribute %q, want Name=Value", raw)
		}
		pairs = append(pairs, client.Pair{Ref: name, Value: value})
	}
	return pairs, nil
}

func runAuth(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	pairs, err := parsePairs()
	if err != nil {
		return err
	}
	pairs = append([]client.Pair{
		{Ref: "User-Name", Value: args[0]},
		{Ref: "User-Password", Value: args[1]},
	}, pairs...)

	resp, err := c.Exchange(context.Background(), packet.CodeAccessRequest, pairs)
	if err != nil {
		var reject *client.RejectError
		if errors.As(err, &reject) {
			printResponse(reject.Response)
		}
		return err
	}
	printResponse(resp)
	return nil
}

func runAcct(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	pairs, err := parsePairs()
	if err != nil {
		return err
	}

	resp, err := c.Account(context.Background(), pairs)
	if err != nil {
		return err
	}
	printResponse(resp)
	return nil
}

func printResponse(resp *packet.Packet) {
	fmt.Printf("%s id=%d\n", resp.Code(), resp.Identifier())
	for _, attr := range resp.Attributes().Attributes() {
		fmt.Printf("  %s\n", attr)
	}
}
