package geo

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/oschwald/geoip2-golang"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axellelanca/clickstream/internal/cache"
)

type fakeDatabase struct {
	record *geoip2.City
	err    error
	calls  int
}

func (f *fakeDatabase) City(net.IP) (*geoip2.City, error) {
	f.calls++
	return f.record, f.err
}

func parisRecord() *geoip2.City {
	record := &geoip2.City{}
	record.Country.IsoCode = "FR"
	record.City.Names = map[string]string{"en": "Paris"}
	record.Location.Latitude = 48.8566
	record.Location.Longitude = 2.3522
	return record
}

func newLocator(t *testing.T, db Database) (*Locator, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLocator(db, cache.NewGeoCache(client, 0, time.Second)), mr
}

func TestLookup_MissThenHit(t *testing.T) {
	db := &fakeDatabase{record: parisRecord()}
	locator, mr := newLocator(t, db)
	addr := netip.MustParseAddr("203.0.113.5")

	info := locator.Lookup(context.Background(), addr)
	require.NotNil(t, info.Country)
	assert.Equal(t, "FR", *info.Country)
	assert.Equal(t, "Paris", *info.City)
	assert.True(t, mr.Exists("geo:203.0.113.5"))
	assert.Equal(t, 24*time.Hour, mr.TTL("geo:203.0.113.5"))

	again := locator.Lookup(context.Background(), addr)
	assert.Equal(t, "Paris", *again.City)
	assert.Equal(t, 1, db.calls, "second lookup must be served from the cache")
}

func TestLookup_DatabaseErrorYieldsEmptyAndNoCache(t *testing.T) {
	db := &fakeDatabase{err: errors.New("mmdb corrupted")}
	locator, mr := newLocator(t, db)

	info := locator.Lookup(context.Background(), netip.MustParseAddr("203.0.113.5"))
	assert.True(t, info.IsEmpty())
	assert.False(t, mr.Exists("geo:203.0.113.5"))

	locator.Lookup(context.Background(), netip.MustParseAddr("203.0.113.5"))
	assert.Equal(t, 2, db.calls, "failures are not cached")
}

func TestLookup_NotInDatabase(t *testing.T) {
	db := &fakeDatabase{record: &geoip2.City{}}
	locator, mr := newLocator(t, db)

	info := locator.Lookup(context.Background(), netip.MustParseAddr("10.0.0.1"))
	assert.True(t, info.IsEmpty())
	assert.False(t, mr.Exists("geo:10.0.0.1"))
}

func TestLookup_CacheDownStillQueriesDatabase(t *testing.T) {
	db := &fakeDatabase{record: parisRecord()}
	locator, mr := newLocator(t, db)
	mr.Close()

	info := locator.Lookup(context.Background(), netip.MustParseAddr("2001:db8::1"))
	require.NotNil(t, info.Country)
	assert.Equal(t, "FR", *info.Country)
	assert.Equal(t, 1, db.calls)
}

func TestUnavailable(t *testing.T) {
	locator, _ := newLocator(t, Unavailable{})
	info := locator.Lookup(context.Background(), netip.MustParseAddr("203.0.113.5"))
	assert.True(t, info.IsEmpty())
}
