// Package geo resolves client IPs to a country, city and coordinates using a local
// MaxMind City database, with results cached in Redis.
package geo

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/netip"

	"github.com/oschwald/geoip2-golang"

	"github.com/axellelanca/clickstream/internal/cache"
	"github.com/axellelanca/clickstream/internal/metrics"
	"github.com/axellelanca/clickstream/internal/models"
)

// ErrNotFound is returned when the geo database has no record for an address.
var ErrNotFound = errors.New("address not found in geo database")

// ErrUnavailable is returned by Unavailable for every lookup.
var ErrUnavailable = errors.New("geo database unavailable")

// Database is the read-only geolocation database. *geoip2.Reader satisfies it.
type Database interface {
	City(ip net.IP) (*geoip2.City, error)
}

// Unavailable stands in for a geo database that could not be opened.
type Unavailable struct{}

// City always fails with ErrUnavailable.
func (Unavailable) City(net.IP) (*geoip2.City, error) {
	return nil, ErrUnavailable
}

// Open opens the MaxMind database at path.
func Open(path string) (*geoip2.Reader, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geo database %s: %w", path, err)
	}
	return reader, nil
}

// Locator is the cache-aside geo lookup used by the click consumer.
type Locator struct {
	db    Database
	cache *cache.GeoCache
}

// NewLocator creates a Locator over db and cache.
func NewLocator(db Database, cache *cache.GeoCache) *Locator {
	return &Locator{db: db, cache: cache}
}

// Lookup returns the geolocation of addr. It never fails: any database error or
// an address absent from the database yields an empty GeoInfo, and nothing is
// cached in that case so a later lookup can try again.
func (l *Locator) Lookup(ctx context.Context, addr netip.Addr) models.GeoInfo {
	key := addr.String()

	cached, err := l.cache.Get(ctx, key)
	if err != nil {
		// Redis trouble only costs us the fast path.
		log.Printf("[GEO] cache read failed for %s: %v", key, err)
	}
	if cached.Hit {
		metrics.GeoLookups.WithLabelValues("hit").Inc()
		return cached.Value
	}

	info, err := l.query(addr)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.GeoLookups.WithLabelValues("not_found").Inc()
		} else {
			metrics.GeoLookups.WithLabelValues("error").Inc()
			log.Printf("[GEO] lookup failed for %s: %v", key, err)
		}
		return models.GeoInfo{}
	}
	metrics.GeoLookups.WithLabelValues("miss").Inc()

	if err := l.cache.Set(ctx, key, info); err != nil {
		log.Printf("[GEO] cache write failed for %s: %v", key, err)
	}
	return info
}

func (l *Locator) query(addr netip.Addr) (models.GeoInfo, error) {
	record, err := l.db.City(net.IP(addr.AsSlice()))
	if err != nil {
		return models.GeoInfo{}, err
	}
	info := fromRecord(record)
	if info.IsEmpty() {
		return models.GeoInfo{}, ErrNotFound
	}
	return info, nil
}

// fromRecord keeps only the fields the database actually filled in.
func fromRecord(record *geoip2.City) models.GeoInfo {
	var info models.GeoInfo
	if record == nil {
		return info
	}
	if code := record.Country.IsoCode; code != "" {
		info.Country = &code
	}
	if name := record.City.Names["en"]; name != "" {
		info.City = &name
	}
	if record.Location.Latitude != 0 || record.Location.Longitude != 0 {
		lat, lon := record.Location.Latitude, record.Location.Longitude
		info.Latitude = &lat
		info.Longitude = &lon
	}
	return info
}
