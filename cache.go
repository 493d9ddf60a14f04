package regdns

import (
	"context"
	"encoding/json"
	"strconv"
	"time"
)

// SnapshotTTL is how long a cached record set is used before it is fetched again.
const SnapshotTTL = 10 * time.Minute

// Store is the persistent string-keyed map the Cache is built on.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

const (
	keyAccessToken  = "auth.access_token"
	keyTokenType    = "auth.token_type"
	keyExpiresIn    = "auth.expires_in"
	keyScope        = "auth.scope"
	keyRefreshToken = "auth.refresh_token"
	keyIssued       = "auth.issued"
	keyExpires      = "auth.expires"
)

func recordsKey(domain string) string   { return "dns." + domain }
func timestampKey(domain string) string { return "dns." + domain + ".timestamp" }

// Cache keeps the auth token and per-domain record snapshots between runs.
//
// Validity is decided by the auth.expires and dns.<domain>.timestamp entries alone;
// Invalidate removes only those, which is enough to force a refetch.
type Cache struct {
	store Store
}

func NewCache(store Store) *Cache {
	return &Cache{store: store}
}

// Token returns the cached token if it is still valid at now.
func (c *Cache) Token(ctx context.Context, now time.Time) (AuthToken, bool, error) {
	expires, ok, err := c.unix(ctx, keyExpires)
	if err != nil || !ok || !now.Before(expires) {
		return AuthToken{}, false, err
	}
	vals := map[string]string{}
	for _, k := range []string{keyAccessToken, keyTokenType, keyExpiresIn, keyScope, keyRefreshToken} {
		v, _, err := c.get(ctx, k)
		if err != nil {
			return AuthToken{}, false, err
		}
		vals[k] = v
	}
	issued, _, err := c.unix(ctx, keyIssued)
	if err != nil {
		return AuthToken{}, false, err
	}
	expiresIn, _ := strconv.Atoi(vals[keyExpiresIn])
	t := AuthToken{
		AccessToken:  vals[keyAccessToken],
		TokenType:    vals[keyTokenType],
		ExpiresIn:    expiresIn,
		Scope:        vals[keyScope],
		RefreshToken: vals[keyRefreshToken],
		IssuedAt:     issued,
	}
	if !t.Valid(now) {
		return AuthToken{}, false, nil
	}
	return t, true, nil
}

// StoreToken saves t. The expiry entry is written last so a partial write is never mistaken for a valid token.
func (c *Cache) StoreToken(ctx context.Context, t AuthToken) error {
	entries := []struct{ k, v string }{
		{keyAccessToken, t.AccessToken},
		{keyTokenType, t.TokenType},
		{keyExpiresIn, strconv.Itoa(t.ExpiresIn)},
		{keyScope, t.Scope},
		{keyRefreshToken, t.RefreshToken},
		{keyIssued, strconv.FormatInt(t.IssuedAt.Unix(), 10)},
		{keyExpires, strconv.FormatInt(t.ExpiresAt().Unix(), 10)},
	}
	for _, e := range entries {
		if err := c.set(ctx, e.k, e.v); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot returns the cached record set of domain if it was fetched less than SnapshotTTL before now.
func (c *Cache) Snapshot(ctx context.Context, domain string, now time.Time) ([]Record, bool, error) {
	fetched, ok, err := c.unix(ctx, timestampKey(domain))
	if err != nil || !ok || !now.Before(fetched.Add(SnapshotTTL)) {
		return nil, false, err
	}
	data, ok, err := c.get(ctx, recordsKey(domain))
	if err != nil || !ok {
		return nil, false, err
	}
	var records []Record
	if err := json.Unmarshal([]byte(data), &records); err != nil {
		return nil, false, &CacheError{Op: "decode " + recordsKey(domain), Err: err}
	}
	return records, true, nil
}

// StoreSnapshot saves records as the record set of domain fetched at fetchedAt.
func (c *Cache) StoreSnapshot(ctx context.Context, domain string, records []Record, fetchedAt time.Time) error {
	if records == nil {
		records = []Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return &CacheError{Op: "encode " + recordsKey(domain), Err: err}
	}
	if err := c.set(ctx, recordsKey(domain), string(data)); err != nil {
		return err
	}
	return c.set(ctx, timestampKey(domain), strconv.FormatInt(fetchedAt.Unix(), 10))
}

// Invalidate forces the token and the record set of domain to be fetched again.
func (c *Cache) Invalidate(ctx context.Context, domain string) error {
	for _, k := range []string{keyExpires, timestampKey(domain)} {
		if err := c.store.Delete(ctx, k); err != nil {
			return &CacheError{Op: "delete " + k, Err: err}
		}
	}
	return nil
}

func (c *Cache) get(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return "", false, &CacheError{Op: "get " + key, Err: err}
	}
	return v, ok, nil
}

func (c *Cache) set(ctx context.Context, key, value string) error {
	if err := c.store.Set(ctx, key, value); err != nil {
		return &CacheError{Op: "set " + key, Err: err}
	}
	return nil
}

func (c *Cache) unix(ctx context.Context, key string) (time.Time, bool, error) {
	v, ok, err := c.get(ctx, key)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		// unreadable timestamps count as expired
		return time.Time{}, false, nil
	}
	return time.Unix(n, 0), true, nil
}
