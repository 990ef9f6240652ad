package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

func main() {
	cfg := parseFlags()
	if err := (&cfg).Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	if !cfg.Verbose {
		log.SetOutput(io.Discard)
	}

	site := DefaultSite()
	if cfg.SiteFile != "" {
		data, err := os.ReadFile(cfg.SiteFile)
		if err != nil {
			log.Fatalf("site file: %v", err)
		}
		if site, err = LoadSite(data); err != nil {
			log.Fatalf("site file: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli, err := newMQTTClient(cfg.Broker, fmt.Sprintf("prefetch-sim-%d", os.Getpid()))
	if err != nil {
		log.Fatalf("mqtt: %v", err)
	}
	defer cli.Disconnect(250)

	if err := RegisterResources(cli, cfg.TopicPrefix, site); err != nil {
		log.Fatalf("register resources: %v", err)
	}
	runUsers(ctx, cfg, site, cli)
}

func parseFlags() Config {
	var cfg Config
	flag.StringVar(&cfg.Broker, "broker", "tcp://localhost:1883", "MQTT broker URL")
	flag.IntVar(&cfg.Users, "users", 1, "number of simulated users")
	flag.IntVar(&cfg.Steps, "steps", 20, "page views per user, 0 for unlimited")
	flag.DurationVar(&cfg.Interval, "interval", time.Second, "delay between page views")
	flag.StringVar(&cfg.SiteFile, "site-file", "", "JSON site graph")
	flag.StringVar(&cfg.TopicPrefix, "topic-prefix", "prefetch", "MQTT topic prefix")
	flag.Int64Var(&cfg.Seed, "seed", 0, "random seed, 0 for time based")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "enable verbose logging")
	flag.Parse()
	return cfg
}

func runUsers(ctx context.Context, cfg Config, site Site, pub publisher) {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	var wg sync.WaitGroup
	for i := 0; i < cfg.Users; i++ {
		u := &SimulatedUser{
			ID:          fmt.Sprintf("user%04d", i+1),
			Site:        site,
			TopicPrefix: cfg.TopicPrefix,
			Interval:    cfg.Interval,
			Steps:       cfg.Steps,
			Pub:         pub,
			Rng:         rand.New(rand.NewSource(seed + int64(i))),
		}
		wg.Add(1)
		go func(u *SimulatedUser) {
			defer wg.Done()
			if err := u.Run(ctx); err != nil {
				log.Printf("%s: %v", u.ID, err)
			}
		}(u)
	}
	wg.Wait()
}
