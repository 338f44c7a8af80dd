package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/querydocs/querydocs/internal/db"
)

// --- client.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

// --- hash.go tests ---

func TestHSet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "HSET" && cmd[1] == "mykey"
		})).
		Return(mock.Result(mock.RedisInt64(1)))

	s := NewStoreForTest(c)
	err := s.HSet(context.Background(), "mykey", map[string]string{"f1": "v1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHGetAll_MissingKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "missing")).
		Return(mock.Result(mock.RedisArray()))

	s := NewStoreForTest(c)
	_, err := s.HGetAll(context.Background(), "missing")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestHGetAll_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "job:1")).
		Return(mock.Result(mock.RedisArray(
			mock.RedisString("status"), mock.RedisString("queued"),
		)))

	s := NewStoreForTest(c)
	m, err := s.HGetAll(context.Background(), "job:1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m["status"] != "queued" {
		t.Errorf("unexpected fields: %v", m)
	}
}

// --- kv.go tests ---

func TestGet_MissingKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "missing")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c)
	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

// --- stream.go tests ---

func TestXAdd_ReturnsID(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "XADD" && cmd[1] == "mystream" && cmd[2] == "*"
		})).
		Return(mock.Result(mock.RedisString("1-0")))

	s := NewStoreForTest(c)
	id, err := s.XAdd(context.Background(), "mystream", map[string]string{"job": "{}"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "1-0" {
		t.Errorf("expected entry id 1-0, got %q", id)
	}
}

func TestGroupCreate_ExistingGroupTolerated(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "XGROUP" && cmd[1] == "CREATE"
		})).
		Return(mock.Result(mock.RedisError("BUSYGROUP Consumer Group name already exists")))

	s := NewStoreForTest(c)
	if err := s.GroupCreate(context.Background(), "mystream", "workers"); err != nil {
		t.Fatalf("existing group must not be an error: %v", err)
	}
}

func TestReadGroup_NilMeansEmpty(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "XREADGROUP"
		})).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c)
	entries, err := s.ReadGroup(context.Background(), "mystream", "workers", "c0", 1, 0)
	if err != nil {
		t.Fatalf("block timeout must not be an error: %v", err)
	}
	if entries != nil {
		t.Errorf("expected no entries, got %v", entries)
	}
}

func TestStreamLen(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("XLEN", "mystream")).
		Return(mock.Result(mock.RedisInt64(7)))

	s := NewStoreForTest(c)
	n, err := s.StreamLen(context.Background(), "mystream")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 7 {
		t.Errorf("expected 7, got %d", n)
	}
}

// --- index.go tests ---

func TestCreateIndex_AlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.CREATE"
		})).
		Return(mock.Result(mock.RedisError("Index already exists")))

	s := NewStoreForTest(c)
	err := s.CreateIndex(context.Background(), &db.IndexDefinition{
		Name:     "idx",
		Prefixes: []string{"doc:"},
		Fields:   []db.IndexField{{Name: "content", Type: db.IndexFieldText}},
	})
	if !errors.Is(err, db.ErrIndexExists) {
		t.Fatalf("expected ErrIndexExists, got %v", err)
	}
}

func TestIndexExists_UnknownIndex(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.INFO", "idx")).
		Return(mock.Result(mock.RedisError("Unknown index name")))

	s := NewStoreForTest(c)
	exists, err := s.IndexExists(context.Background(), "idx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Error("expected index to be absent")
	}
}

func TestBuildCreateArgs_VectorField(t *testing.T) {
	args := buildCreateArgs(&db.IndexDefinition{
		Name:     "idx",
		Prefixes: []string{"doc:"},
		Fields: []db.IndexField{
			{Name: "content", Type: db.IndexFieldText},
			{
				Name:              "vector",
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         4,
				VectorDistance:    db.DistanceCosine,
				VectorM:           16,
				VectorEFConstruct: 200,
			},
		},
	})

	want := []string{
		"idx", "ON", "HASH",
		"PREFIX", "1", "doc:",
		"SCHEMA",
		"content", "TEXT",
		"vector", "VECTOR", "HNSW", "10",
		"TYPE", "FLOAT32",
		"DIM", "4",
		"DISTANCE_METRIC", "COSINE",
		"M", "16",
		"EF_CONSTRUCTION", "200",
	}
	if len(args) != len(want) {
		t.Fatalf("expected %d args, got %d: %v", len(want), len(args), args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("arg %d: expected %q, got %q", i, want[i], args[i])
		}
	}
}

// --- search.go tests ---

func TestSearchKNN_ParsesReply(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH" && cmd[1] == "idx" &&
				cmd[2] == "*=>[KNN 2 @vector $BLOB AS __vector_score]"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(1),
			mock.RedisString("doc:r1"),
			mock.RedisArray(
				mock.RedisString("__vector_score"), mock.RedisString("0.25"),
				mock.RedisString("content"), mock.RedisString("hello"),
			),
		)))

	s := NewStoreForTest(c)
	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName:    "idx",
		Vector:       []float32{1, 2, 3, 4},
		K:            2,
		ReturnFields: []string{"content"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 1 || len(res.Entries) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	entry := res.Entries[0]
	if entry.Key != "doc:r1" {
		t.Errorf("expected key doc:r1, got %q", entry.Key)
	}
	if entry.Score != 0.75 {
		t.Errorf("expected similarity 0.75 for distance 0.25, got %v", entry.Score)
	}
	if entry.Fields["content"] != "hello" {
		t.Errorf("unexpected fields: %v", entry.Fields)
	}
	if _, ok := entry.Fields["__vector_score"]; ok {
		t.Error("internal score field must be stripped")
	}
}

func TestSearchKNN_Validation(t *testing.T) {
	s := NewStoreForTest(nil)

	if _, err := s.SearchKNN(context.Background(), &db.KNNQuery{Vector: []float32{1}, K: 1}); err == nil {
		t.Error("expected error for missing index name")
	}
	if _, err := s.SearchKNN(context.Background(), &db.KNNQuery{IndexName: "idx", K: 1}); err == nil {
		t.Error("expected error for missing vector")
	}
	if _, err := s.SearchKNN(context.Background(), &db.KNNQuery{IndexName: "idx", Vector: []float32{1}}); err == nil {
		t.Error("expected error for non-positive k")
	}
}
