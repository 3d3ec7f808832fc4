package statistics

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/seekersapp2013/ambrosia/app/repository"
	"github.com/seekersapp2013/ambrosia/internal/pkg/cache"
)

const (
	CacheKeyStreams = "statistics:streams:aggregate"
	CacheExpiration = 30 * time.Minute
)

// StatisticsData enthaelt die aggregierten Stream-Kennzahlen
type StatisticsData struct {
	TotalStreams       int64 `json:"total_streams"`
	LiveStreams        int64 `json:"live_streams"`
	EndedStreams       int64 `json:"ended_streams"`
	TotalDurationMS    int64 `json:"total_duration_ms"`
	PeakViewers        int   `json:"peak_viewers"`
	UniqueBroadcasters int64 `json:"unique_broadcasters"`
}

// Variablen fuer die Cache-Aktualisierungslogik
var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// ShouldUpdateCache prueft, ob der Cache aktualisiert werden sollte
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	return time.Since(lastCacheUpdate) > cacheUpdateInterval
}

// UpdateCacheIfNeeded aktualisiert den Cache, wenn noetig
func UpdateCacheIfNeeded() {
	if ShouldUpdateCache() {
		cacheUpdateMutex.Lock()
		defer cacheUpdateMutex.Unlock()

		log.Println("Aktualisiere Statistik-Cache...")
		if err := UpdateStatisticsCache(); err != nil {
			log.Printf("Fehler beim Aktualisieren des Statistik-Caches: %v", err)
		} else {
			log.Println("Statistik-Cache erfolgreich aktualisiert")
			lastCacheUpdate = time.Now()
		}
	}
}

// ResetCacheUpdateTimer setzt den Timer fuer die Cache-Aktualisierung zurueck
func ResetCacheUpdateTimer() {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	lastCacheUpdate = time.Time{}
}

// UpdateStatisticsCache recomputes the aggregates in SQL and caches them
func UpdateStatisticsCache() error {
	agg, err := repository.GetGlobalFactory().GetStreamRepository().AggregateMetrics()
	if err != nil {
		log.Printf("Error aggregating stream metrics: %v", err)
		return err
	}

	data := StatisticsData{
		TotalStreams:       agg.TotalStreams,
		LiveStreams:        agg.LiveStreams,
		EndedStreams:       agg.EndedStreams,
		TotalDurationMS:    agg.TotalDurationMS,
		PeakViewers:        agg.PeakViewers,
		UniqueBroadcasters: agg.UniqueBroadcasters,
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if err := cache.Set(CacheKeyStreams, string(payload), CacheExpiration); err != nil {
		log.Printf("Error caching stream statistics: %v", err)
		return err
	}

	log.Printf("Statistics updated in cache: Total: %d, Live: %d, Peak viewers: %d",
		data.TotalStreams, data.LiveStreams, data.PeakViewers)

	return nil
}

// GetStatisticsData returns the aggregates from cache, falling back to the database
func GetStatisticsData() StatisticsData {
	UpdateCacheIfNeeded()

	val, err := cache.Get(CacheKeyStreams)
	if err == nil {
		var data StatisticsData
		if jerr := json.Unmarshal([]byte(val), &data); jerr == nil {
			return data
		}
	}

	agg, err := repository.GetGlobalFactory().GetStreamRepository().AggregateMetrics()
	if err != nil {
		log.Printf("Error aggregating stream metrics: %v", err)
		return StatisticsData{}
	}
	return StatisticsData{
		TotalStreams:       agg.TotalStreams,
		LiveStreams:        agg.LiveStreams,
		EndedStreams:       agg.EndedStreams,
		TotalDurationMS:    agg.TotalDurationMS,
		PeakViewers:        agg.PeakViewers,
		UniqueBroadcasters: agg.UniqueBroadcasters,
	}
}
