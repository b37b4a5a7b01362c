package kv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"
)

func TestPing(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	if err := newStoreWithClient(c).Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGet(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "hit")).
		Return(mock.Result(mock.RedisString("\x01\x02")))
	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "miss")).
		Return(mock.Result(mock.RedisNil()))
	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "down")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := newStoreWithClient(c)

	data, err := s.Get(context.Background(), "hit")
	if err != nil || len(data) != 2 || data[1] != 0x02 {
		t.Fatalf("unexpected hit result: %v %v", data, err)
	}

	if _, err := s.Get(context.Background(), "miss"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}

	if _, err := s.Get(context.Background(), "down"); err == nil || errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestSetWithTTL(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return len(cmd) == 5 && cmd[0] == "SET" && cmd[1] == "k" && cmd[3] == "EX" && cmd[4] == "60"
		})).
		Return(mock.Result(mock.RedisString("OK")))
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return len(cmd) == 3 && cmd[0] == "SET" && cmd[1] == "forever"
		})).
		Return(mock.Result(mock.RedisString("OK")))

	s := newStoreWithClient(c)

	if err := s.SetWithTTL(context.Background(), "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.SetWithTTL(context.Background(), "forever", []byte("v"), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewStoreRequiresAddrs(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error without addrs")
	}
}
