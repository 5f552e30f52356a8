// Package relay carries room and lobby broadcasts between server instances over
// Redis pub/sub. Every instance, including the publisher, delivers what it reads
// back from Redis into its local hub.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/metrics"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/types"
)

const (
	publishTimeout = 2 * time.Second
	backTimeout    = 5 * time.Second
	connsTTL       = 24 * time.Hour
)

// Local is the in-process fan-out the relay feeds.
type Local interface {
	PublishToRoomExcept(roomID, exceptID string, msg types.ServerMessage)
	PublishToLobby(msg types.ServerMessage)
	Expel(roomID, userID string)
	Retire(roomID string)
}

type envelope struct {
	Node   string              `json:"node,omitempty"`
	Except string              `json:"except,omitempty"`
	User   string              `json:"user,omitempty"`
	Msg    types.ServerMessage `json:"msg"`
}

type Relay struct {
	client *redis.Client
	prefix string
	node   string
	send   func(ctx context.Context, channel string, payload []byte) error
	local  Local
	onBack func(ctx context.Context, userID string)
	log    *zap.Logger
}

// Dial connects to Redis and checks the connection.
func Dial(ctx context.Context, redisURL, prefix string, local Local, log *zap.Logger) (*Relay, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("relay: parse url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("relay: ping: %w", err)
	}

	return newRelay(client, prefix, local, log), nil
}

func newRelay(client *redis.Client, prefix string, local Local, log *zap.Logger) *Relay {
	node := uuid.NewString()
	return &Relay{
		client: client,
		prefix: prefix,
		node:   node,
		send: func(ctx context.Context, channel string, payload []byte) error {
			return client.Publish(ctx, channel, payload).Err()
		},
		local: local,
		log:   log.With(zap.String("component", "relay"), zap.String("node", node)),
	}
}

// OnBack registers what runs when a user comes back through another instance.
// It must be set before Run.
func (r *Relay) OnBack(f func(ctx context.Context, userID string)) {
	r.onBack = f
}

func (r *Relay) Close() error {
	return r.client.Close()
}

func (r *Relay) roomKey(roomID string) string   { return r.prefix + "room:" + roomID }
func (r *Relay) retireKey(roomID string) string { return r.prefix + "retire:" + roomID }
func (r *Relay) expelKey(roomID string) string  { return r.prefix + "expel:" + roomID }
func (r *Relay) backKey(userID string) string   { return r.prefix + "back:" + userID }
func (r *Relay) connsKey(userID string) string  { return r.prefix + "conns:" + userID }
func (r *Relay) lobbyKey() string               { return r.prefix + "lobby" }

func (r *Relay) PublishToRoom(roomID string, msg types.ServerMessage) {
	r.PublishToRoomExcept(roomID, "", msg)
}

func (r *Relay) PublishToRoomExcept(roomID, exceptID string, msg types.ServerMessage) {
	if err := r.publish(r.roomKey(roomID), envelope{Except: exceptID, Msg: msg}); err != nil {
		r.log.Warn("publish failed, delivering locally", zap.String("room_id", roomID), zap.Error(err))
		r.local.PublishToRoomExcept(roomID, exceptID, msg)
	}
}

func (r *Relay) PublishToLobby(msg types.ServerMessage) {
	if err := r.publish(r.lobbyKey(), envelope{Msg: msg}); err != nil {
		r.log.Warn("publish failed, delivering locally", zap.Error(err))
		r.local.PublishToLobby(msg)
	}
}

func (r *Relay) Expel(roomID, userID string) {
	if err := r.publish(r.expelKey(roomID), envelope{User: userID}); err != nil {
		r.log.Warn("expel failed, expelling locally", zap.String("room_id", roomID), zap.Error(err))
		r.local.Expel(roomID, userID)
	}
}

func (r *Relay) Retire(roomID string) {
	if err := r.publish(r.retireKey(roomID), envelope{}); err != nil {
		r.log.Warn("retire failed, retiring locally", zap.String("room_id", roomID), zap.Error(err))
		r.local.Retire(roomID)
	}
}

// Back tells every other instance that userID has returned, so whichever one
// holds their grace timer cancels it.
func (r *Relay) Back(userID string) {
	if err := r.publish(r.backKey(userID), envelope{Node: r.node}); err != nil {
		r.log.Warn("back signal failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// Add moves userID's connection count across all instances by delta and
// returns the new total.
func (r *Relay) Add(ctx context.Context, userID string, delta int64) (int64, error) {
	key := r.connsKey(userID)
	pipe := r.client.TxPipeline()
	n := pipe.IncrBy(ctx, key, delta)
	pipe.Expire(ctx, key, connsTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("relay: conns: %w", err)
	}
	if n.Val() <= 0 {
		r.client.Del(ctx, key)
	}
	return n.Val(), nil
}

func (r *Relay) publish(key string, env envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := r.send(ctx, key, data); err != nil {
		return err
	}
	metrics.RelayMessages.WithLabelValues("out").Inc()
	return nil
}

// Run delivers relayed messages into the local hub until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.PSubscribe(ctx, r.prefix+"*")
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("relay: subscribe: %w", err)
	}
	r.log.Info("relay subscribed", zap.String("pattern", r.prefix+"*"))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			r.deliver(m.Channel, m.Payload)
		}
	}
}

func (r *Relay) deliver(key, payload string) {
	kind, id, ok := parseKey(r.prefix, key)
	if !ok {
		return
	}
	metrics.RelayMessages.WithLabelValues("in").Inc()

	if kind == kindRetire {
		r.local.Retire(id)
		return
	}

	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		r.log.Warn("dropping malformed relay message", zap.String("channel", key), zap.Error(err))
		return
	}
	switch kind {
	case kindRoom:
		r.local.PublishToRoomExcept(id, env.Except, env.Msg)
	case kindLobby:
		r.local.PublishToLobby(env.Msg)
	case kindExpel:
		r.local.Expel(id, env.User)
	case kindBack:
		if env.Node == r.node || r.onBack == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), backTimeout)
		defer cancel()
		r.onBack(ctx, id)
	}
}

const (
	kindRoom   = "room"
	kindLobby  = "lobby"
	kindRetire = "retire"
	kindExpel  = "expel"
	kindBack   = "back"
)

func parseKey(prefix, key string) (kind, id string, ok bool) {
	rest, found := strings.CutPrefix(key, prefix)
	if !found {
		return "", "", false
	}
	if rest == kindLobby {
		return kindLobby, "", true
	}
	kind, id, found = strings.Cut(rest, ":")
	if !found || id == "" || !knownKind(kind) {
		return "", "", false
	}
	return kind, id, true
}

func knownKind(kind string) bool {
	switch kind {
	case kindRoom, kindRetire, kindExpel, kindBack:
		return true
	}
	return false
}
