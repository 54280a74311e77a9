package main

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/metrolist/listing-sync/internal/model"
	"github.com/metrolist/listing-sync/internal/store"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Run an enrichment cascade",
}

var enrichGeocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Backfill missing listing coordinates",
	Long:  "Scans the raw store for listings without valid coordinates, builds a postal address, and geocodes it cache-first, merging the result into the public payload.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("geocode"); err != nil {
			return err
		}
		pool, err := listingPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		geoCache, _, closeCaches, err := caches(ctx, pool)
		if err != nil {
			return err
		}
		defer closeCaches()

		g := geocoder(store.NewPostgresListingStore(pool), geoCache)
		res, err := g.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "enrich geocode")
		}
		fmt.Printf("geocode: scanned=%d attempted=%d updated=%d misses=%d\n",
			res.Scanned, res.Attempted, res.Updated, res.Misses)
		return nil
	},
}

var enrichPlacesCmd = &cobra.Command{
	Use:   "places <lat> <lng>",
	Short: "Look up nearby schools and transit for a coordinate",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("places"); err != nil {
			return err
		}

		lat, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return eris.Wrapf(err, "enrich places: parse latitude %q", args[0])
		}
		lng, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return eris.Wrapf(err, "enrich places: parse longitude %q", args[1])
		}
		kindFlag, _ := cmd.Flags().GetString("kind")
		limit, _ := cmd.Flags().GetInt("limit")

		kind := model.PlaceKind(kindFlag)
		if kind != model.KindSchool && kind != model.KindTransit {
			return eris.Errorf("enrich places: unknown kind %q (want school or transit)", kindFlag)
		}

		pool, closeCaches, placeCache, err := placesDeps(ctx)
		if err != nil {
			return err
		}
		if pool != nil {
			defer pool.Close()
		}
		defer closeCaches()

		e := placesEnricher(placeCache)
		found, err := e.Nearby(ctx, lat, lng, kind, limit)
		if err != nil {
			return eris.Wrap(err, "enrich places")
		}
		e.Wait()

		for _, p := range found {
			fmt.Printf("%-40s %-12s %5.1fkm  %s\n", p.Name, p.Category, p.DistanceKM, p.Address)
		}
		fmt.Printf("%d places\n", len(found))
		return nil
	},
}

var enrichPrewarmCmd = &cobra.Command{
	Use:   "prewarm",
	Short: "Pre-warm the place cache for every serviced metro",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("places"); err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")

		pool, closeCaches, placeCache, err := placesDeps(ctx)
		if err != nil {
			return err
		}
		if pool != nil {
			defer pool.Close()
		}
		defer closeCaches()

		e := placesEnricher(placeCache)
		delay := time.Duration(cfg.Places.PrewarmDelayMs) * time.Millisecond
		res, err := e.Prewarm(ctx, delay, limit)
		if err != nil {
			return eris.Wrap(err, "enrich prewarm")
		}
		fmt.Printf("prewarm: metros=%d queries=%d cached=%d errors=%d\n",
			res.Metros, res.Queries, res.Cached, res.Errors)
		return nil
	},
}

// placesDeps resolves the place cache, opening a Postgres pool only when the
// cache lives there.
func placesDeps(ctx context.Context) (*pgxpool.Pool, func(), store.PlaceCache, error) {
	var pool *pgxpool.Pool
	if cfg.Store.CacheDriver != "sqlite" {
		p, err := listingPool(ctx)
		if err != nil {
			return nil, nil, nil, err
		}
		pool = p
	}
	_, placeCache, closeCaches, err := caches(ctx, pool)
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, nil, nil, err
	}
	return pool, closeCaches, placeCache, nil
}

func init() {
	enrichPlacesCmd.Flags().String("kind", "transit", "Place kind: school or transit")
	enrichPlacesCmd.Flags().Int("limit", 10, "Maximum places to return")
	enrichPrewarmCmd.Flags().Int("limit", 20, "Places cached per metro and kind")

	enrichCmd.AddCommand(enrichGeocodeCmd)
	enrichCmd.AddCommand(enrichPlacesCmd)
	enrichCmd.AddCommand(enrichPrewarmCmd)
	rootCmd.AddCommand(enrichCmd)
}
