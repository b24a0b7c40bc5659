// Command landserver demonstrates wiring the engine behind an HTTP+WebSocket
// transport. It is not part of the core library: the core stays
// transport-agnostic and this binary exists only to exercise it end to end.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/landkeeper/landsync"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var addrFlag string

func main() {
	root := &cobra.Command{
		Use:   "landserver",
		Short: "Reference demo server and admin CLI for the landsync engine",
	}

	root.AddCommand(newServeCommand())
	root.AddCommand(newLandCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the demo lobby server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logrus.NewEntry(logrus.StandardLogger())

	var metric *landsync.Metrics
	mux := http.NewServeMux()
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		metric = landsync.NewMetrics(reg)
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	gw := newGateway(cfg, logger, metric)
	defer gw.manager.Shutdown(context.Background())

	mux.HandleFunc("/lands", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			gw.handleListLands(w, r)
			return
		}
		gw.handleCreateLand(w, r)
	})
	mux.HandleFunc("/ws", gw.handleWebSocket)

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.ListenAddr).Info("landserver listening")
		errCh <- srv.ListenAndServe()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
	return nil
}

func newLandCommand() *cobra.Command {
	land := &cobra.Command{
		Use:   "land",
		Short: "Administer lands on a running landserver",
	}
	land.PersistentFlags().StringVar(&addrFlag, "addr", "http://localhost:8080", "landserver base address")

	land.AddCommand(&cobra.Command{
		Use:   "create [id]",
		Short: "Create a land on the running server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return createLand(args[0])
		},
	})
	land.AddCommand(&cobra.Command{
		Use:   "ls",
		Short: "List lands on the running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listLands()
		},
	})
	return land
}

func createLand(id string) error {
	body, err := json.Marshal(map[string]string{"id": id})
	if err != nil {
		return err
	}
	resp, err := http.Post(addrFlag+"/lands", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create land: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("create land: server returned %s", resp.Status)
	}
	fmt.Printf("created land %q\n", id)
	return nil
}

func listLands() error {
	resp, err := http.Get(addrFlag + "/lands")
	if err != nil {
		return fmt.Errorf("list lands: %w", err)
	}
	defer resp.Body.Close()
	var ids []string
	if err := json.NewDecoder(resp.Body).Decode(&ids); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}
