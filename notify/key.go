package notify

import (
	"crypto/md5"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ChannelKey addresses the subscribers of one (owner, folder) pair.
// It is the hex encoded 128-bit MD5 digest of "owner:folder".
type ChannelKey string

// DeriveChannelKey computes the channel key for a folder of owner.
// Same inputs always produce the same key, across processes as well.
func DeriveChannelKey(owner, folderID string) ChannelKey {
	sum := md5.Sum([]byte(owner + ":" + folderID))
	return ChannelKey(hex.EncodeToString(sum[:]))
}

type keyCacheKey struct {
	owner  string
	folder string
}

// KeyCache memoizes DeriveChannelKey for hot (owner, folder) pairs
type KeyCache struct {
	cache *lru.Cache[keyCacheKey, ChannelKey]
}

// NewKeyCache creates a cache holding at most size keys
func NewKeyCache(size int) (*KeyCache, error) {
	cache, err := lru.New[keyCacheKey, ChannelKey](size)
	if err != nil {
		return nil, err
	}
	return &KeyCache{cache: cache}, nil
}

// Key returns the channel key for (owner, folderID), deriving it on a miss
func (c *KeyCache) Key(owner, folderID string) ChannelKey {
	k := keyCacheKey{owner: owner, folder: folderID}
	if key, ok := c.cache.Get(k); ok {
		return key
	}

	key := DeriveChannelKey(owner, folderID)
	c.cache.Add(k, key)
	return key
}

// Len returns the number of cached keys
func (c *KeyCache) Len() int {
	return c.cache.Len()
}
