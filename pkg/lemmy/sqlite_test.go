package lemmy

import (
	"context"
	"testing"

	"lemmy_stats/models"
	"lemmy_stats/pkg/storage"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// lemmySchema — минимальная часть схемы Lemmy, которую читают запросы сбора.
const lemmySchema = `
CREATE TABLE local_user (
	id INTEGER PRIMARY KEY,
	person_id INTEGER NOT NULL,
	email_verified BOOLEAN NOT NULL DEFAULT 0,
	accepted_application BOOLEAN NOT NULL DEFAULT 0
);
CREATE TABLE registration_application (
	id INTEGER PRIMARY KEY,
	local_user_id INTEGER NOT NULL,
	admin_id INTEGER,
	deny_reason TEXT
);
CREATE TABLE community (id INTEGER PRIMARY KEY, name TEXT);
CREATE TABLE instance (id INTEGER PRIMARY KEY, domain TEXT);
CREATE TABLE comment (id INTEGER PRIMARY KEY, creator_id INTEGER NOT NULL);
CREATE TABLE post (id INTEGER PRIMARY KEY, creator_id INTEGER NOT NULL);
CREATE TABLE comment_like (
	id INTEGER PRIMARY KEY,
	person_id INTEGER NOT NULL,
	comment_id INTEGER NOT NULL,
	score INTEGER NOT NULL
);
`

func openLemmyDB(t *testing.T) *storage.DB {
	t.Helper()
	conn, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("не удалось открыть SQLite: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })
	conn.MustExec(lemmySchema)
	return storage.NewDB(conn)
}

func mustExec(t *testing.T, db *storage.DB, query string, args ...interface{}) {
	t.Helper()
	if _, err := db.Conn.Exec(query, args...); err != nil {
		t.Fatalf("не удалось выполнить %q: %v", query, err)
	}
}

// seedInstance наполняет базу: 100 локальных пользователей (60 подтвердили email,
// 70 приняты), заявки, сообщества, комментарии, посты и голоса.
func seedInstance(t *testing.T, db *storage.DB) {
	t.Helper()
	const localPerson = 1000
	for i := 0; i < 100; i++ {
		mustExec(t, db,
			"INSERT INTO local_user (person_id, email_verified, accepted_application) VALUES (?, ?, ?)",
			localPerson+i, i < 60, i < 70)
	}

	for i := 0; i < 5; i++ {
		mustExec(t, db, "INSERT INTO registration_application (local_user_id) VALUES (?)", i)
	}
	for i := 0; i < 3; i++ {
		mustExec(t, db, "INSERT INTO registration_application (local_user_id, admin_id, deny_reason) VALUES (?, 1, 'spam')", 10+i)
	}
	for i := 0; i < 2; i++ {
		mustExec(t, db, "INSERT INTO registration_application (local_user_id, admin_id) VALUES (?, 1)", 20+i)
	}

	for i := 0; i < 4; i++ {
		mustExec(t, db, "INSERT INTO community (name) VALUES (?)", "c")
	}
	for i := 0; i < 3; i++ {
		mustExec(t, db, "INSERT INTO instance (domain) VALUES (?)", "lemmy.example")
	}

	for i := 0; i < 10; i++ {
		mustExec(t, db, "INSERT INTO comment (creator_id) VALUES (?)", localPerson+i)
	}
	for i := 0; i < 5; i++ {
		mustExec(t, db, "INSERT INTO comment (creator_id) VALUES (?)", 1+i) // удалённые авторы
	}
	for i := 0; i < 6; i++ {
		mustExec(t, db, "INSERT INTO post (creator_id) VALUES (?)", localPerson+i)
	}
	for i := 0; i < 2; i++ {
		mustExec(t, db, "INSERT INTO post (creator_id) VALUES (?)", 1+i)
	}

	for i := 0; i < 8; i++ {
		mustExec(t, db, "INSERT INTO comment_like (person_id, comment_id, score) VALUES (?, 1, 1)", localPerson+i)
	}
	for i := 0; i < 3; i++ {
		mustExec(t, db, "INSERT INTO comment_like (person_id, comment_id, score) VALUES (?, 1, -1)", localPerson+i)
	}
	for i := 0; i < 4; i++ {
		mustExec(t, db, "INSERT INTO comment_like (person_id, comment_id, score) VALUES (?, 1, 1)", 1+i)
	}
}

func TestCollectSQLiteEmptyDatabase(t *testing.T) {
	db := openLemmyDB(t)
	stats, err := newTestCollector().Collect(context.Background(), db)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	for _, f := range models.StatsFields {
		if v := f.Value(stats); v != 0 {
			t.Fatalf("%s: в пустой базе ожидался 0, получено %d", f.Name, v)
		}
	}
	if stats.CapturedAt.IsZero() {
		t.Fatalf("время снимка должно быть задано")
	}
}

func TestCollectSQLitePopulated(t *testing.T) {
	db := openLemmyDB(t)
	seedInstance(t, db)

	stats, err := newTestCollector().Collect(context.Background(), db)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	want := models.Stats{
		CapturedAt:          stats.CapturedAt,
		RegisteredUsers:     100,
		VerifiedUsers:       60,
		UnverifiedUsers:     40,
		ApprovedUsers:       70,
		UnapprovedUsers:     30,
		PendingApplications: 5, // отклонённые и одобренные заявки имеют admin_id
		DeniedApplications:  3,
		KnownCommunities:    4,
		KnownInstances:      3,
		KnownComments:       15,
		KnownPosts:          8,
		LocalComments:       10,
		LocalPosts:          6,
		LocalUpvotes:        8,
		LocalDownvotes:      3,
	}
	if *stats != want {
		t.Fatalf("снимок не совпадает:\nполучено  %+v\nожидалось %+v", *stats, want)
	}
}

func TestCollectSQLiteMissingTable(t *testing.T) {
	db := openLemmyDB(t)
	seedInstance(t, db)
	mustExec(t, db, "DROP TABLE comment_like")

	stats, err := newTestCollector().Collect(context.Background(), db)
	failed := Failed(err)
	if len(failed) != 2 || failed[0] != "local_upvotes" || failed[1] != "local_downvotes" {
		t.Fatalf("ожидались ошибки голосов, получено %v", failed)
	}
	if stats.LocalUpvotes != 0 || stats.LocalDownvotes != 0 {
		t.Fatalf("поля голосов должны остаться нулями")
	}
	if stats.RegisteredUsers != 100 || stats.LocalPosts != 6 {
		t.Fatalf("остальные поля должны быть собраны: %+v", *stats)
	}
}
