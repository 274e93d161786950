package bridge

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// cachedReply is a reply already published for one request
type cachedReply struct {
	Payload   []byte
	Timestamp time.Time
}

// ReplyCache remembers recent replies by response topic and correlation data
// so a redelivered request is answered without running its handler again.
type ReplyCache struct {
	cache      *lru.Cache[string, cachedReply]
	expiration time.Duration
	now        func() time.Time
}

// NewReplyCache creates a cache holding up to maxSize replies for expiration
func NewReplyCache(maxSize int, expiration time.Duration) *ReplyCache {
	if maxSize <= 0 {
		maxSize = 128
	}
	if expiration <= 0 {
		expiration = 10 * time.Minute
	}

	cache, _ := lru.New[string, cachedReply](maxSize)
	return &ReplyCache{
		cache:      cache,
		expiration: expiration,
		now:        time.Now,
	}
}

func replyKey(responseTopic string, correlationData []byte) string {
	return responseTopic + "\x00" + string(correlationData)
}

// Lookup returns the reply stored for the request, if still fresh
func (rc *ReplyCache) Lookup(responseTopic string, correlationData []byte) ([]byte, bool) {
	if len(correlationData) == 0 {
		return nil, false
	}

	key := replyKey(responseTopic, correlationData)
	reply, found := rc.cache.Get(key)
	if !found {
		return nil, false
	}
	if rc.now().Sub(reply.Timestamp) > rc.expiration {
		rc.cache.Remove(key)
		return nil, false
	}
	return reply.Payload, true
}

// Store records the reply published for a request. Requests without
// correlation data cannot be matched and are not stored.
func (rc *ReplyCache) Store(responseTopic string, correlationData []byte, payload []byte) {
	if len(correlationData) == 0 {
		return
	}
	rc.cache.Add(replyKey(responseTopic, correlationData), cachedReply{
		Payload:   payload,
		Timestamp: rc.now(),
	})
}

// Len returns the number of cached replies
func (rc *ReplyCache) Len() int {
	return rc.cache.Len()
}
