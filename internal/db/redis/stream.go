package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/rueidis"

	"github.com/querydocs/querydocs/internal/db"
)

// XAdd appends an entry to a stream and returns its generated id.
func (s *Store) XAdd(ctx context.Context, stream string, fields map[string]string) (string, error) {
	cmd := s.b().Xadd().Key(stream).Id("*").FieldValue()
	for k, v := range fields {
		cmd = cmd.FieldValue(k, v)
	}
	id, err := s.do(ctx, cmd.Build()).ToString()
	if err != nil {
		return "", &db.Error{Op: db.OpXAdd, Err: err}
	}
	return id, nil
}

// GroupCreate creates a consumer group starting from the beginning of
// the stream, creating the stream if missing. An existing group is not
// an error.
func (s *Store) GroupCreate(ctx context.Context, stream, group string) error {
	cmd := s.b().XgroupCreate().Key(stream).Group(group).Id("0").Mkstream().Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "BUSYGROUP") {
			return nil
		}
		return &db.Error{Op: db.OpXGroup, Err: err}
	}
	return nil
}

// ReadGroup reads up to count new entries for a consumer, blocking up
// to block. Returns an empty slice when the block times out.
func (s *Store) ReadGroup(
	ctx context.Context, stream, group, consumer string,
	count int, block time.Duration,
) ([]db.StreamEntry, error) {
	b := s.b().Xreadgroup().Group(group, consumer).Count(int64(count))

	var cmd rueidis.Completed
	if block > 0 {
		cmd = b.Block(block.Milliseconds()).Streams().Key(stream).Id(">").Build()
	} else {
		cmd = b.Streams().Key(stream).Id(">").Build()
	}

	res, err := s.do(ctx, cmd).AsXRead()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, nil
		}
		return nil, &db.Error{Op: db.OpXReadGroup, Err: err}
	}

	return toStreamEntries(res[stream]), nil
}

// Ack acknowledges delivered entries.
func (s *Store) Ack(ctx context.Context, stream, group string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	cmd := s.b().Xack().Key(stream).Group(group).Id(ids...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpXAck, Err: err}
	}
	return nil
}

// AutoClaim transfers ownership of entries pending longer than minIdle
// to the given consumer, so jobs from a crashed consumer get redelivered.
func (s *Store) AutoClaim(
	ctx context.Context, stream, group, consumer string,
	minIdle time.Duration, count int,
) ([]db.StreamEntry, error) {
	cmd := s.b().Arbitrary("XAUTOCLAIM").Args(
		stream, group, consumer,
		strconv.FormatInt(minIdle.Milliseconds(), 10),
		"0-0",
		"COUNT", strconv.Itoa(count),
	).Build()

	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpXAutoClaim, Err: err}
	}

	// Reply: [next-cursor, [[id, [field, value, ...]], ...], [deleted-ids]]
	if len(raw) < 2 {
		return nil, nil
	}
	items, err := raw[1].ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpXAutoClaim, Err: err}
	}

	entries := make([]db.StreamEntry, 0, len(items))
	for _, item := range items {
		pair, err := item.ToArray()
		if err != nil || len(pair) < 2 {
			continue
		}
		id, err := pair[0].ToString()
		if err != nil {
			continue
		}
		fields, err := pair[1].ToArray()
		if err != nil {
			continue
		}
		entries = append(entries, db.StreamEntry{ID: id, Fields: parseFieldPairs(fields)})
	}
	return entries, nil
}

// StreamLen returns the number of entries in a stream.
func (s *Store) StreamLen(ctx context.Context, stream string) (int64, error) {
	cmd := s.b().Xlen().Key(stream).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpXLen, Err: err}
	}
	return n, nil
}

func toStreamEntries(items []rueidis.XRangeEntry) []db.StreamEntry {
	entries := make([]db.StreamEntry, 0, len(items))
	for _, it := range items {
		entries = append(entries, db.StreamEntry{ID: it.ID, Fields: it.FieldValues})
	}
	return entries
}
