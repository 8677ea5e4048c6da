// Command rfsd is the remote file system server. It listens for the
// wire protocol on the configured address, serves requests against a
// filesystem root, and optionally exposes an admin control socket and
// a Prometheus metrics endpoint.
package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kestrel-systems/rfsd/internal/rfsadmin"
	"github.com/kestrel-systems/rfsd/internal/rfsconfig"
	"github.com/kestrel-systems/rfsd/internal/rfslog"
	"github.com/kestrel-systems/rfsd/internal/rfsmetrics"
	"github.com/kestrel-systems/rfsd/internal/rfsserver"
)

var banner = `rfsd: remote file system server`

var (
	f_config      = flag.String("config", "", "path to YAML configuration file")
	f_addr        = flag.String("addr", "", "listen address (overrides config)")
	f_root        = flag.String("root", "", "filesystem root (overrides config)")
	f_level       = flag.String("level", "", "log level: debug, info, warn, error, fatal (overrides config)")
	f_logfile     = flag.String("logfile", "", "also log to this file (overrides config)")
	f_admin       = flag.String("admin", "", "admin socket path (overrides config)")
	f_metricsAddr = flag.String("metrics-addr", "", "address to serve /metrics on; empty disables metrics")
)

func usage() {
	fmt.Println(banner)
	fmt.Println("usage: rfsd [flags]")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	cfg, err := rfsconfig.Load(*f_config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rfsd: loading config: %v\n", err)
		os.Exit(1)
	}

	flagSet := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { flagSet[f.Name] = true })
	cfg = rfsconfig.Override(cfg, *f_addr, *f_root, *f_level, *f_logfile, *f_admin, *f_metricsAddr, flagSet)

	logSetup(cfg)
	rfslog.Infof("%s", banner)
	rfslog.Infof("root=%s addr=%s", cfg.Root, cfg.Addr)

	var metrics *rfsmetrics.Metrics
	if cfg.MetricsAddr != "" {
		registry := prometheus.NewRegistry()
		metrics = rfsmetrics.New(registry)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				rfslog.Errorf("rfsd: metrics server: %v", err)
			}
		}()
		rfslog.Infof("metrics listening on %s", cfg.MetricsAddr)
	}

	srv := rfsserver.New(cfg.Root, metrics)

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		rfslog.Fatalf("rfsd: listen: %v", err)
	}

	adminLn, err := rfsadmin.Serve(cfg.AdminSocket, rfsadmin.BuiltinHandler(func() rfsadmin.Status {
		return rfsadmin.Status{
			Connections: srv.ActiveConnections(),
			Root:        cfg.Root,
			Addr:        cfg.Addr,
		}
	}))
	if err != nil {
		rfslog.Fatalf("rfsd: admin socket: %v", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		rfslog.Infof("caught signal, shutting down")
		adminLn.Close()
		os.Remove(cfg.AdminSocket)
		srv.Close()
	}()

	if err := srv.Serve(ln); err != nil {
		rfslog.Fatalf("rfsd: serve: %v", err)
	}
}

func logSetup(cfg rfsconfig.Config) {
	level, err := rfslog.ParseLevel(cfg.Level)
	if err != nil {
		level = rfslog.INFO
	}
	rfslog.AddLogger("stdio", os.Stderr, level)

	if cfg.LogFile != "" {
		fw, err := rfslog.NewFileWriter(cfg.LogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "rfsd: opening logfile: %v\n", err)
			return
		}
		rfslog.AddLogger("file", fw, level)
	}
}
