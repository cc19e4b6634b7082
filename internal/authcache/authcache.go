package authcache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/starscout/starscout/internal/model"
)

// Cache maps bearer tokens to resolved GitHub identities so each request does
// not cost a platform round trip. Bounded by size and TTL; entries for
// revoked tokens age out rather than living for the process lifetime.
type Cache struct {
	lru *expirable.LRU[string, model.GithubUser]
}

func New(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = 10000
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		lru: expirable.NewLRU[string, model.GithubUser](size, nil, ttl),
	}
}

func (c *Cache) Get(token string) (model.GithubUser, bool) {
	return c.lru.Get(token)
}

func (c *Cache) Add(token string, user model.GithubUser) {
	c.lru.Add(token, user)
}

func (c *Cache) Len() int {
	return c.lru.Len()
}
