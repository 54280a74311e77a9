package enrich

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/metrolist/listing-sync/internal/model"
)

// MetroCenters covers every serviced metro area; the prewarm job seeds the
// place cache around each so first listing queries in a region hit cache.
var MetroCenters = []model.MetroCenter{
	{Name: "Toronto", Latitude: 43.6532, Longitude: -79.3832},
	{Name: "Montreal", Latitude: 45.5019, Longitude: -73.5674},
	{Name: "Vancouver", Latitude: 49.2827, Longitude: -123.1207},
	{Name: "Calgary", Latitude: 51.0447, Longitude: -114.0719},
	{Name: "Edmonton", Latitude: 53.5461, Longitude: -113.4937},
	{Name: "Ottawa", Latitude: 45.4215, Longitude: -75.6972},
	{Name: "Winnipeg", Latitude: 49.8954, Longitude: -97.1385},
	{Name: "Quebec City", Latitude: 46.8131, Longitude: -71.2075},
	{Name: "Hamilton", Latitude: 43.2557, Longitude: -79.8711},
	{Name: "Kitchener", Latitude: 43.4516, Longitude: -80.4925},
	{Name: "London", Latitude: 42.9849, Longitude: -81.2453},
	{Name: "Halifax", Latitude: 44.6488, Longitude: -63.5752},
	{Name: "Victoria", Latitude: 48.4284, Longitude: -123.3656},
	{Name: "Saskatoon", Latitude: 52.1332, Longitude: -106.6700},
	{Name: "Regina", Latitude: 50.4452, Longitude: -104.6189},
	{Name: "St. John's", Latitude: 47.5615, Longitude: -52.7126},
}

// PrewarmResult summarizes one prewarm run.
type PrewarmResult struct {
	Metros  int
	Queries int
	Cached  int
	Errors  int
}

// Prewarm walks the metro table and runs a nearby query per kind at each
// center, populating the cache as a side effect. Individual query failures
// are logged and counted but don't stop the walk.
func (e *PlacesEnricher) Prewarm(ctx context.Context, delay time.Duration, limit int) (*PrewarmResult, error) {
	log := zap.L().With(zap.String("component", "enrich.prewarm"))
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}
	if limit <= 0 {
		limit = 20
	}

	res := &PrewarmResult{Metros: len(MetroCenters)}
	kinds := []model.PlaceKind{model.KindSchool, model.KindTransit}

	for _, metro := range MetroCenters {
		for _, kind := range kinds {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			default:
			}

			found, err := e.Nearby(ctx, metro.Latitude, metro.Longitude, kind, limit)
			res.Queries++
			if err != nil {
				res.Errors++
				log.Warn("prewarm query failed",
					zap.String("metro", metro.Name),
					zap.String("kind", string(kind)),
					zap.Error(err),
				)
			} else {
				res.Cached += len(found)
			}

			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	// Let the write-backs land before reporting.
	e.Wait()
	log.Info("prewarm complete",
		zap.Int("metros", res.Metros),
		zap.Int("queries", res.Queries),
		zap.Int("cached", res.Cached),
		zap.Int("errors", res.Errors),
	)
	return res, nil
}
