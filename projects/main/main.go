package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/open-control-systems/dnssd-bridge/components/core"
	"github.com/open-control-systems/dnssd-bridge/components/dnssd/dnsbridge"
	"github.com/open-control-systems/dnssd-bridge/components/dnssd/dnscore"
	"github.com/open-control-systems/dnssd-bridge/components/dnssd/dnsinflux"
	"github.com/open-control-systems/dnssd-bridge/components/dnssd/dnsstore"
	"github.com/open-control-systems/dnssd-bridge/components/dnssd/dnszeroconf"
	"github.com/open-control-systems/dnssd-bridge/components/storage/stcore"
	"github.com/open-control-systems/dnssd-bridge/components/system/sysnet"
)

type appOptions struct {
	domain        string
	lookupTimeout time.Duration
	dbPath        string

	serviceType string
	proto       string
	instance    string
	hostName    string
	port        uint16
	txtRecords  []string
}

func main() {
	if path := os.Getenv("DNSSD_BRIDGE_LOG_PATH"); path != "" {
		if err := core.SetLogFile(path); err != nil {
			fmt.Fprintln(os.Stderr, "Failed to setup log file: ", err)
		}
	}

	opts := &appOptions{}

	rootCmd := &cobra.Command{
		Use:           "dnssd-bridge",
		Short:         "Asynchronous DNS-SD bridge over a zeroconf discovery engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.domain, "domain", "local.", "mDNS domain")
	rootCmd.PersistentFlags().DurationVar(&opts.lookupTimeout, "timeout",
		time.Second*5, "single lookup window duration")
	rootCmd.PersistentFlags().StringVar(&opts.dbPath, "db", "",
		"bbolt database path for the publish store, in-memory if unset")
	rootCmd.PersistentFlags().StringVar(&opts.serviceType, "type", "_http",
		"base service type, without the protocol suffix")
	rootCmd.PersistentFlags().StringVar(&opts.proto, "proto", "tcp",
		"transport protocol: tcp or udp")

	browseCmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse for service instances until interrupted",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runBrowse(opts)
		},
	}

	resolveCmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a single service instance",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runResolve(opts)
		},
	}
	resolveCmd.Flags().StringVar(&opts.instance, "instance", "", "service instance name")
	if err := resolveCmd.MarkFlagRequired("instance"); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to setup resolve command: ", err)
		os.Exit(1)
	}

	publishCmd := &cobra.Command{
		Use:   "publish",
		Short: "Advertise a service instance until interrupted",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runPublish(opts)
		},
	}
	publishCmd.Flags().StringVar(&opts.instance, "instance", "", "service instance name")
	publishCmd.Flags().StringVar(&opts.hostName, "host", "", "host DNS name")
	publishCmd.Flags().Uint16Var(&opts.port, "port", 0, "service port")
	publishCmd.Flags().StringArrayVar(&opts.txtRecords, "txt", nil,
		"TXT record, key=value or bare key, repeatable")
	for _, flag := range []string{"instance", "port"} {
		if err := publishCmd.MarkFlagRequired(flag); err != nil {
			fmt.Fprintln(os.Stderr, "Failed to setup publish command: ", err)
			os.Exit(1)
		}
	}

	rootCmd.AddCommand(browseCmd, resolveCmd, publishCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error: ", err)
		os.Exit(1)
	}
}

type app struct {
	bridge *dnsbridge.Bridge
	engine *dnszeroconf.Engine
	closer *core.FanoutCloser
}

func newApp(ctx context.Context, opts *appOptions) (*app, error) {
	closer := &core.FanoutCloser{}

	var db stcore.DB = &stcore.NoopDB{}

	if opts.dbPath != "" {
		boltDB, err := stcore.NewBboltDB(opts.dbPath, nil)
		if err != nil {
			return nil, err
		}

		closer.Add("bbolt-db", core.FuncCloser(boltDB.Close))

		db = stcore.NewBboltDBBucket(boltDB, "published_services")
	}

	events := &dnsbridge.FanoutEventHandler{}
	events.Add(&dnsbridge.LogEventHandler{})

	if url := os.Getenv("INFLUXDB_URL"); url != "" {
		handler := dnsinflux.NewEventHandler(ctx, dnsinflux.DBParams{
			URL:    url,
			Org:    os.Getenv("INFLUXDB_ORG"),
			Bucket: os.Getenv("INFLUXDB_BUCKET"),
			Token:  os.Getenv("INFLUXDB_API_TOKEN"),
		})
		events.Add(handler)
		closer.Add("influx-event-handler", handler)
	}

	fallback := &sysnet.PionMdnsResolver{}
	closer.Add("pion-mdns-resolver", fallback)

	engine := dnszeroconf.NewEngine(ctx, fallback, dnszeroconf.EngineParams{
		Domain:        opts.domain,
		LookupTimeout: opts.lookupTimeout,
	})
	closer.Add("zeroconf-engine", engine)

	bridge := dnsbridge.NewBridge(dnsbridge.Config{
		Engine: engine,
		Store:  dnsstore.NewPublishStore(db),
		Events: events,
	})

	engine.SetSink(bridge)

	onReady := func(_ any, _ error) {
		core.LogInf.Printf("main: bridge ready\n")
	}
	onError := func(_ any, err error) {
		core.LogErr.Printf("main: bridge failed: %v\n", err)
	}

	if err := bridge.Init(onReady, onError, nil); err != nil {
		_ = closer.Close()

		return nil, err
	}

	return &app{bridge: bridge, engine: engine, closer: closer}, nil
}

func (a *app) close() {
	_ = a.closer.Close()
}

func parseProto(text string) (dnscore.Protocol, error) {
	switch strings.ToLower(text) {
	case "tcp":
		return dnscore.ProtocolTCP, nil
	case "udp":
		return dnscore.ProtocolUDP, nil
	default:
		return dnscore.ProtocolUnknown, fmt.Errorf("unknown protocol: %s", text)
	}
}

func parseTxtRecords(records []string) []dnscore.TextEntry {
	entries := make([]dnscore.TextEntry, 0, len(records))

	for _, record := range records {
		key, value, found := strings.Cut(record, "=")

		entry := dnscore.TextEntry{Key: key}
		if found {
			entry.Data = []byte(value)
			entry.HasData = true
		}

		entries = append(entries, entry)
	}

	return entries
}

func appContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(),
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)
}

func runBrowse(opts *appOptions) error {
	ctx, cancel := appContext()
	defer cancel()

	proto, err := parseProto(opts.proto)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.close()

	callback := func(_ any, services []dnscore.ServiceRecord, final bool, err error) {
		if err != nil {
			core.LogErr.Printf("main: browse failed: %v\n", err)

			return
		}

		for _, service := range services {
			fmt.Printf("%s %s.%s final=%v\n",
				service.Name, service.Type, service.Protocol, final)
		}
	}

	handle, err := a.bridge.BrowseServices(opts.serviceType, proto,
		dnscore.AddressFamilyAny, dnscore.InterfaceAny, callback, nil)
	if err != nil {
		return err
	}

	<-ctx.Done()

	return a.bridge.StopBrowse(handle)
}

func runResolve(opts *appOptions) error {
	ctx, cancel := appContext()
	defer cancel()

	proto, err := parseProto(opts.proto)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.close()

	doneCh := make(chan error, 1)

	callback := func(_ any, service *dnscore.ServiceRecord,
		addr *dnscore.DiscoveryAddress, err error) {
		if err != nil {
			doneCh <- err

			return
		}

		fmt.Printf("%s %s.%s host=%s addr=%s port=%d\n",
			service.Name, service.Type, service.Protocol,
			service.HostName, addr.IP, service.Port)

		for _, entry := range service.TextEntries {
			if entry.HasData {
				fmt.Printf("  txt: %s=%s\n", entry.Key, entry.Data)
			} else {
				fmt.Printf("  txt: %s\n", entry.Key)
			}
		}

		doneCh <- nil
	}

	record := &dnscore.ServiceRecord{
		Name:     opts.instance,
		Type:     opts.serviceType,
		Protocol: proto,
	}

	if err := a.bridge.ResolveService(record, dnscore.InterfaceAny, callback, nil); err != nil {
		return err
	}

	select {
	case err := <-doneCh:
		return err

	case <-ctx.Done():
		return ctx.Err()
	}
}

func runPublish(opts *appOptions) error {
	ctx, cancel := appContext()
	defer cancel()

	proto, err := parseProto(opts.proto)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.close()

	record := &dnscore.ServiceRecord{
		Name:        opts.instance,
		HostName:    opts.hostName,
		Type:        opts.serviceType,
		Protocol:    proto,
		Port:        opts.port,
		TextEntries: parseTxtRecords(opts.txtRecords),
	}

	if err := a.bridge.PublishService(record); err != nil {
		return err
	}

	<-ctx.Done()

	return a.bridge.RemoveServices()
}
