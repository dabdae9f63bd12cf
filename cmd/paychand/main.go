package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/taurusgroup/pedersen-channel/internal/api"
	"github.com/taurusgroup/pedersen-channel/pkg/bench"
	"github.com/taurusgroup/pedersen-channel/pkg/pedersen"
)

func main() {
	root := &cobra.Command{
		Use:   "paychand",
		Short: "Two-party Pedersen payment channel daemon",
	}
	root.AddCommand(serveCmd(), benchCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the channel and settlement API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager := api.NewManager(pedersen.DefaultParameters())
			server := &http.Server{
				Addr:              addr,
				Handler:           api.NewHandler(manager),
				ReadHeaderTimeout: 5 * time.Second,
			}
			fmt.Printf("listening on %s\n", addr)
			return server.ListenAndServe()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}

func benchCmd() *cobra.Command {
	var (
		iterations int
		runs       int
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark the public channel operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			group := pedersen.DefaultParameters()

			if runs == 1 {
				result, err := bench.Run(iterations, group)
				if err != nil {
					return err
				}
				return printJSON(result)
			}

			results, err := bench.RunParallel(context.Background(), runs, iterations, group)
			if err != nil {
				return err
			}
			return printJSON(results)
		},
	}
	cmd.Flags().IntVar(&iterations, "iterations", 100, "payment rounds per run")
	cmd.Flags().IntVar(&runs, "runs", 1, "independent channels to benchmark in parallel")
	return cmd
}

func printJSON(value interface{}) error {
	out, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
