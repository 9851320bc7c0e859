package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/majdjadalhaq/MovieValut/internal/config"
	"github.com/majdjadalhaq/MovieValut/internal/kvstore"
	"github.com/majdjadalhaq/MovieValut/internal/logger"
	"github.com/majdjadalhaq/MovieValut/internal/ttlcache"
)

func main() {
	keysCmd := flag.NewFlagSet("keys", flag.ExitOnError)
	getCmd := flag.NewFlagSet("get", flag.ExitOnError)
	rmCmd := flag.NewFlagSet("rm", flag.ExitOnError)
	pruneCmd := flag.NewFlagSet("prune", flag.ExitOnError)
	clearCmd := flag.NewFlagSet("clear", flag.ExitOnError)
	statsCmd := flag.NewFlagSet("stats", flag.ExitOnError)

	keysPrefix := keysCmd.String("prefix", "", "Only list keys starting with this namespace")
	getRaw := getCmd.Bool("raw", false, "Print the stored entry without checking expiry")
	pruneDryRun := pruneCmd.Bool("dry-run", false, "List expired entries without removing them")
	clearYes := clearCmd.Bool("yes", false, "Confirm removal of every cache entry")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	_ = godotenv.Load()
	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := kvstore.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.StoreDriver, err)
	}
	defer store.Close()
	if !store.Available() {
		log.Fatalf("Store %s is unavailable", store.Backend())
	}
	cache := ttlcache.New(store, ttlcache.OptionsFromConfig(cfg))

	switch os.Args[1] {
	case "keys":
		keysCmd.Parse(os.Args[2:])
		runKeys(ctx, cache, *keysPrefix)
	case "get":
		getCmd.Parse(os.Args[2:])
		runGet(ctx, cache, requireKey(getCmd), *getRaw)
	case "rm":
		rmCmd.Parse(os.Args[2:])
		runRemove(ctx, cache, requireKey(rmCmd))
	case "prune":
		pruneCmd.Parse(os.Args[2:])
		runPrune(ctx, cache, *pruneDryRun)
	case "clear":
		clearCmd.Parse(os.Args[2:])
		if !*clearYes {
			log.Fatal("Refusing to clear the cache without -yes")
		}
		fmt.Printf("Removed %d entries\n", cache.ClearAll(ctx))
	case "stats":
		statsCmd.Parse(os.Args[2:])
		runStats(ctx, cache)
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("MovieVault - Cache Maintenance Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  cachectl keys [-prefix ns]     - List indexed cache keys")
	fmt.Println("  cachectl get [-raw] <key>      - Print a cached payload")
	fmt.Println("  cachectl rm <key>              - Remove one entry")
	fmt.Println("  cachectl prune [-dry-run]      - Remove expired and unreadable entries")
	fmt.Println("  cachectl clear -yes            - Remove every cache entry")
	fmt.Println("  cachectl stats                 - Show store and index statistics")
	fmt.Println()
	fmt.Println("The store is selected with STORE_DRIVER (memory, sqlite, postgres, redis).")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  cachectl keys -prefix popular")
	fmt.Println("  cachectl get 'genres::language:en-US'")
	fmt.Println("  cachectl prune -dry-run")
}

func requireKey(fs *flag.FlagSet) string {
	if fs.NArg() != 1 || fs.Arg(0) == "" {
		log.Fatalf("%s: exactly one cache key is required", fs.Name())
	}
	return fs.Arg(0)
}

func runKeys(ctx context.Context, cache *ttlcache.Cache, prefix string) {
	now := time.Now()
	fmt.Printf("%-60s %20s %10s\n", "Key", "Expires", "State")
	fmt.Println(strings.Repeat("-", 92))
	for _, key := range cache.Keys(ctx) {
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			continue
		}
		expires, state := "-", "corrupt"
		if e, ok := cache.Peek(ctx, key); ok {
			expires = e.ExpiresAt().Format("2006-01-02 15:04:05")
			state = "fresh"
			if e.Expired(now) {
				state = "expired"
			}
		}
		fmt.Printf("%-60s %20s %10s\n", key, expires, state)
	}
}

func runGet(ctx context.Context, cache *ttlcache.Cache, key string, raw bool) {
	if raw {
		e, ok := cache.Peek(ctx, key)
		if !ok {
			log.Fatalf("No entry for %q", key)
		}
		out, _ := json.MarshalIndent(e, "", "  ")
		fmt.Println(string(out))
		return
	}
	data, ok := cache.Get(ctx, key)
	if !ok {
		log.Fatalf("No fresh entry for %q", key)
	}
	var pretty any
	if err := json.Unmarshal(data, &pretty); err != nil {
		fmt.Println(string(data))
		return
	}
	out, _ := json.MarshalIndent(pretty, "", "  ")
	fmt.Println(string(out))
}

func runRemove(ctx context.Context, cache *ttlcache.Cache, key string) {
	cache.Remove(ctx, key)
	fmt.Printf("Removed %s\n", key)
}

// runPrune removes index slots whose entry is expired, unreadable or gone.
func runPrune(ctx context.Context, cache *ttlcache.Cache, dryRun bool) {
	now := time.Now()
	removed := 0
	for _, key := range cache.Keys(ctx) {
		e, ok := cache.Peek(ctx, key)
		if ok && !e.Expired(now) {
			continue
		}
		if dryRun {
			fmt.Printf("would remove %s\n", key)
			removed++
			continue
		}
		cache.Remove(ctx, key)
		removed++
	}
	if dryRun {
		fmt.Printf("\n%d entries would be removed\n", removed)
		return
	}
	fmt.Printf("Removed %d entries\n", removed)
}

func runStats(ctx context.Context, cache *ttlcache.Cache) {
	stats, err := cache.CollectStats(ctx)
	if err != nil {
		log.Fatalf("Failed to collect stats: %v", err)
	}
	fmt.Println()
	fmt.Println("=== Cache Statistics ===")
	fmt.Println()
	fmt.Printf("%-20s %s\n", "Backend:", stats.StoreBackend)
	fmt.Printf("%-20s %t\n", "Available:", stats.StoreAvailable)
	fmt.Printf("%-20s %d\n", "Indexed entries:", stats.IndexedEntries)
	fmt.Printf("%-20s %s\n", "Default TTL:", cache.DefaultTTL())
	fmt.Printf("%-20s %s\n", "Key prefix:", cache.Prefix())
}
