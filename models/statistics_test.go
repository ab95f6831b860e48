package models

import (
	"testing"
	"time"
)

func TestNewStatsZeroAndUTC(t *testing.T) {
	msk := time.FixedZone("MSK", 3*3600)
	now := time.Date(2024, 5, 1, 15, 0, 0, 0, msk)
	s := NewStats(now)

	if !s.CapturedAt.Equal(now) || s.CapturedAt.Location() != time.UTC {
		t.Fatalf("время снимка должно совпадать с now и быть в UTC: %v", s.CapturedAt)
	}
	for _, f := range StatsFields {
		if v := f.Value(s); v != 0 {
			t.Fatalf("%s: новый снимок должен быть нулевым, получено %d", f.Name, v)
		}
	}
}

func TestFieldsContainsEveryCounter(t *testing.T) {
	s := NewStats(time.Now())
	s.VerifiedUsers = 60
	s.UnverifiedUsers = 40
	s.LocalDownvotes = 3

	fields := s.Fields()
	if len(fields) != len(StatsFields) {
		t.Fatalf("ожидалось %d полей, получено %d", len(StatsFields), len(fields))
	}
	if fields["verified_users"] != int64(60) || fields["unverified_users"] != int64(40) {
		t.Fatalf("неверные значения пользователей: %v", fields)
	}
	if fields["local_downvotes"] != int64(3) || fields["local_upvotes"] != int64(0) {
		t.Fatalf("знак голосов не должен меняться: %v", fields)
	}
}
