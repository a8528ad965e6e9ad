// Copyright 2025 Nhat-Nguyen Nguyen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package kv keeps message groups in Redis. Each connection is a hash
// holding its group and username; each group is a hash of connection id to
// username. Both expire unless the connection joins again.
package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"datingapp/core/messages/domain"

	"github.com/redis/rueidis"
)

var _ domain.GroupTracker = (*RedisGroups)(nil)

const DefaultConnectionTTL = 10 * time.Minute

type RedisGroups struct {
	client rueidis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisGroups scopes keys under prefix. ttl <= 0 uses DefaultConnectionTTL.
func NewRedisGroups(client rueidis.Client, prefix string, ttl time.Duration) *RedisGroups {
	prefix = strings.TrimSpace(prefix)
	if prefix != "" && !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	if ttl <= 0 {
		ttl = DefaultConnectionTTL
	}
	return &RedisGroups{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisGroups) groupKey(group string) string { return r.prefix + "group:" + group }
func (r *RedisGroups) connKey(id string) string     { return r.prefix + "conn:" + id }

func (r *RedisGroups) AddConnection(ctx context.Context, conn domain.Connection) error {
	secs := max(int64(r.ttl/time.Second), 1)
	gk, ck := r.groupKey(conn.Group), r.connKey(conn.ID)
	cmds := rueidis.Commands{
		r.client.B().Hset().Key(ck).FieldValue().FieldValue("group", conn.Group).FieldValue("username", conn.Username).Build(),
		r.client.B().Expire().Key(ck).Seconds(secs).Build(),
		r.client.B().Hset().Key(gk).FieldValue().FieldValue(conn.ID, conn.Username).Build(),
		r.client.B().Expire().Key(gk).Seconds(secs).Build(),
	}
	return r.doAll(ctx, "add connection", cmds)
}

func (r *RedisGroups) GetConnection(ctx context.Context, id string) (*domain.Connection, error) {
	fields, err := r.client.Do(ctx, r.client.B().Hgetall().Key(r.connKey(id)).Build()).AsStrMap()
	if err != nil {
		return nil, fmt.Errorf("redis groups: get connection: %w", err)
	}
	return connectionFromHash(id, fields)
}

func (r *RedisGroups) RemoveConnection(ctx context.Context, conn domain.Connection) error {
	cmds := rueidis.Commands{
		r.client.B().Hdel().Key(r.groupKey(conn.Group)).Field(conn.ID).Build(),
		r.client.B().Del().Key(r.connKey(conn.ID)).Build(),
	}
	return r.doAll(ctx, "remove connection", cmds)
}

// GetGroup drops members whose connection expired without leaving.
func (r *RedisGroups) GetGroup(ctx context.Context, group string) ([]domain.Connection, error) {
	gk := r.groupKey(group)
	members, err := r.client.Do(ctx, r.client.B().Hgetall().Key(gk).Build()).AsStrMap()
	if err != nil {
		return nil, fmt.Errorf("redis groups: get group: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(members))
	cmds := make(rueidis.Commands, 0, len(members))
	for id := range members {
		ids = append(ids, id)
		cmds = append(cmds, r.client.B().Exists().Key(r.connKey(id)).Build())
	}

	var (
		out   []domain.Connection
		stale []string
	)
	for i, res := range r.client.DoMulti(ctx, cmds...) {
		n, err := res.AsInt64()
		if err != nil {
			return nil, fmt.Errorf("redis groups: check connection: %w", err)
		}
		if n == 0 {
			stale = append(stale, ids[i])
			continue
		}
		out = append(out, domain.Connection{ID: ids[i], Username: members[ids[i]], Group: group})
	}
	if len(stale) > 0 {
		if err := r.client.Do(ctx, r.client.B().Hdel().Key(gk).Field(stale...).Build()).Error(); err != nil {
			return out, fmt.Errorf("redis groups: prune group: %w", err)
		}
	}
	return out, nil
}

func (r *RedisGroups) doAll(ctx context.Context, op string, cmds rueidis.Commands) error {
	var errs []error
	for _, res := range r.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("redis groups: %s: %w", op, err)
	}
	return nil
}

func connectionFromHash(id string, fields map[string]string) (*domain.Connection, error) {
	group, username := fields["group"], fields["username"]
	if group == "" || username == "" {
		return nil, domain.ErrConnectionGone
	}
	return &domain.Connection{ID: id, Username: username, Group: group}, nil
}
