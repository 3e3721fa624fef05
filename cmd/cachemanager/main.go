package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/adamryczkowski/cachemanager/internal/cachekey"
	"github.com/adamryczkowski/cachemanager/internal/cachemetrics"
	"github.com/adamryczkowski/cachemanager/internal/coordinator"
	"github.com/adamryczkowski/cachemanager/internal/logging"
	"github.com/adamryczkowski/cachemanager/internal/metastore"
	"github.com/adamryczkowski/cachemanager/internal/objstore"
	"github.com/adamryczkowski/cachemanager/internal/producer"
	"github.com/adamryczkowski/cachemanager/pkg/config"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfgPath := os.Getenv("CACHEMANAGER_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/cachemanager.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.InitializeFromConfig(cfg.Node.ID, logging.LogConfig{
		Level:         cfg.Logging.Level,
		EnableConsole: cfg.Logging.EnableConsole,
		EnableFile:    cfg.Logging.EnableFile,
		LogFile:       cfg.Logging.LogFile,
		BufferSize:    cfg.Logging.BufferSize,
		LogDir:        cfg.Logging.LogDir,
		MaxFileSize:   cfg.Logging.MaxFileSize,
		MaxFiles:      cfg.Logging.MaxFiles,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	ctx := logging.WithCorrelationID(context.Background(), logging.NewCorrelationID())

	coord, err := buildCoordinator(cfg)
	if err != nil {
		logging.Fatal(ctx, logging.ComponentMain, logging.ActionStart, "failed to build coordinator", err)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "get":
		cmdGet(ctx, coord, os.Args[2:])
	case "info":
		cmdInfo(ctx, coord, os.Args[2:])
	case "prune":
		cmdPrune(ctx, coord, os.Args[2:])
	case "forget":
		cmdForget(ctx, coord, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: cachemanager <command> [args]

commands:
  get <label> -- <shell command...>   get-or-compute the output of a shell command, cached under a key derived from the label
  info <label>                        print the metadata record for label, if any
  prune [--remove-history] [--verbose]  run the pruning engine once
  forget <label>                      delete a cached item entirely`)
}

func buildCoordinator(cfg *config.Config) (*coordinator.Coordinator, error) {
	if err := os.MkdirAll(cfg.Node.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	var meta metastore.Store
	var err error
	switch cfg.MetaStore.Backend {
	case "memory":
		meta = metastore.NewMemStore()
	default:
		var file *metastore.FileStore
		file, err = metastore.NewFileStore(cfg.MetaStore.Dir)
		if err == nil {
			meta = file
			if cfg.MetaStore.CacheCapacity > 0 {
				meta, err = metastore.NewCachedStore(file, cfg.MetaStore.CacheCapacity)
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open metastore: %w", err)
	}

	cacheCfg, err := cfg.Cache.ToCacheItemConfig()
	if err != nil {
		return nil, fmt.Errorf("parse cache config: %w", err)
	}
	if err := meta.StoreConfig(cacheCfg); err != nil {
		return nil, fmt.Errorf("seed cache config: %w", err)
	}

	objects, err := objstore.NewLocalStore(cfg.ObjStore.Dir)
	if err != nil {
		return nil, fmt.Errorf("open objstore: %w", err)
	}

	keygen := cachekey.NewPrefixKeyGen(cfg.ObjStore.StorageKeyPrefix, cfg.ObjStore.StorageKeyExt)

	var metrics *cachemetrics.Collector
	if cfg.Metrics.Enabled {
		metrics = cachemetrics.NewCollector(cfg.Metrics.Namespace)
	}

	return coordinator.New(meta, objects, keygen, metrics)
}

// shellProducer is the reference CLI producer: its item key is derived
// from a human label, its computation shells out to an argv and caches
// raw stdout bytes, letting an operator poke the cache by hand from a
// shell without writing any Go code.
type shellProducer struct {
	label string
	argv  []string
}

var _ producer.Producer = (*shellProducer)(nil)

func (p *shellProducer) ItemKey() cachekey.ItemKey {
	return cachekey.Hash([]byte(p.label))
}

func (p *shellProducer) Compute() (any, error) {
	cmd := exec.Command(p.argv[0], p.argv[1:]...)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("command %q failed: %w", strings.Join(p.argv, " "), err)
	}
	return out, nil
}

func (p *shellProducer) Serialize(obj any) ([]byte, error) {
	return obj.([]byte), nil
}

func (p *shellProducer) Deserialize(data []byte) (any, error) {
	return data, nil
}

func (p *shellProducer) ProposeStorageKey() (cachekey.StorageKey, bool) {
	return "", false
}

func (p *shellProducer) Describe() string {
	return fmt.Sprintf("%s (%s)", p.label, strings.Join(p.argv, " "))
}

func cmdGet(ctx context.Context, coord *coordinator.Coordinator, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: cachemanager get <label> -- <shell command...>")
		os.Exit(2)
	}
	label := args[0]
	rest := args[1:]
	if len(rest) > 0 && rest[0] == "--" {
		rest = rest[1:]
	}
	if len(rest) == 0 {
		fmt.Fprintln(os.Stderr, "get requires a shell command after --")
		os.Exit(2)
	}

	obj, err := coord.GetObject(&shellProducer{label: label, argv: rest})
	if err != nil {
		logging.Error(ctx, logging.ComponentMain, logging.ActionGet, "get_object failed", err, map[string]interface{}{"label": label})
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	os.Stdout.Write(obj.([]byte))
}

func cmdInfo(ctx context.Context, coord *coordinator.Coordinator, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: cachemanager info <label>")
		os.Exit(2)
	}
	key := cachekey.Hash([]byte(args[0]))
	item, ok, err := coord.GetObjectInfo(key)
	if err != nil {
		logging.Error(ctx, logging.ComponentMain, logging.ActionGet, "get_object_info failed", err, nil)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if !ok {
		fmt.Println("no record for this key")
		return
	}
	fmt.Printf("item_key:     %s\n", item.ItemKey)
	fmt.Printf("resident:     %v\n", item.Resident())
	fmt.Printf("storage_key:  %s\n", item.StorageKey)
	fmt.Printf("size_bytes:   %d\n", item.SizeBytes)
	fmt.Printf("compute_cost: %s\n", item.ComputeCost)
	fmt.Printf("created_at:   %s\n", item.CreatedAt)
	fmt.Printf("accesses:     %d\n", len(item.AccessLog))
	fmt.Printf("pretty:       %s\n", item.Pretty)
}

func cmdPrune(ctx context.Context, coord *coordinator.Coordinator, args []string) {
	removeHistory, verbose := false, false
	for _, a := range args {
		switch a {
		case "--remove-history":
			removeHistory = true
		case "--verbose":
			verbose = true
		}
	}

	res, err := coord.PruneCache(removeHistory, verbose)
	if err != nil {
		logging.Error(ctx, logging.ComponentMain, logging.ActionPrune, "prune_cache failed", err, nil)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("repaired=%d orphaned=%d evicted=%d errors=%d\n", res.Repaired, res.Orphaned, res.Evicted, len(res.Errors))
}

func cmdForget(ctx context.Context, coord *coordinator.Coordinator, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: cachemanager forget <label>")
		os.Exit(2)
	}
	key := cachekey.Hash([]byte(args[0]))
	if err := coord.Forget(key); err != nil {
		logging.Error(ctx, logging.ComponentMain, logging.ActionForget, "forget failed", err, map[string]interface{}{"label": args[0]})
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("forgotten")
}
