package models

import "time"

// Stats отражает один снимок агрегированных показателей инстанса Lemmy.
// Все счётчики по умолчанию равны нулю, CapturedAt задаётся один раз при создании.
type Stats struct {
	CapturedAt          time.Time `json:"captured_at"`          // Момент начала сбора (UTC)
	RegisteredUsers     int64     `json:"registered_users"`     // Всего локальных пользователей
	VerifiedUsers       int64     `json:"verified_users"`       // Подтвердили email
	UnverifiedUsers     int64     `json:"unverified_users"`     // Не подтвердили email
	ApprovedUsers       int64     `json:"approved_users"`       // Заявка на регистрацию принята
	UnapprovedUsers     int64     `json:"unapproved_users"`     // Заявка на регистрацию не принята
	PendingApplications int64     `json:"pending_applications"` // Заявки без решения администратора
	DeniedApplications  int64     `json:"denied_applications"`  // Заявки с причиной отказа
	KnownCommunities    int64     `json:"known_communities"`
	KnownInstances      int64     `json:"known_instances"`
	KnownComments       int64     `json:"known_comments"`
	KnownPosts          int64     `json:"known_posts"`
	LocalComments       int64     `json:"local_comments"`  // Комментарии локальных пользователей
	LocalPosts          int64     `json:"local_posts"`     // Посты локальных пользователей
	LocalUpvotes        int64     `json:"local_upvotes"`   // Голоса +1 от локальных пользователей
	LocalDownvotes      int64     `json:"local_downvotes"` // Голоса -1 от локальных пользователей
}

// NewStats создаёт пустой снимок с зафиксированным временем сбора.
func NewStats(now time.Time) *Stats {
	return &Stats{CapturedAt: now.UTC()}
}

// StatsField связывает имя поля измерения со значением снимка.
type StatsField struct {
	Name  string
	Value func(*Stats) int64
}

// StatsFields перечисляет все счётчики снимка в фиксированном порядке.
var StatsFields = []StatsField{
	{"registered_users", func(s *Stats) int64 { return s.RegisteredUsers }},
	{"verified_users", func(s *Stats) int64 { return s.VerifiedUsers }},
	{"unverified_users", func(s *Stats) int64 { return s.UnverifiedUsers }},
	{"approved_users", func(s *Stats) int64 { return s.ApprovedUsers }},
	{"unapproved_users", func(s *Stats) int64 { return s.UnapprovedUsers }},
	{"pending_applications", func(s *Stats) int64 { return s.PendingApplications }},
	{"denied_applications", func(s *Stats) int64 { return s.DeniedApplications }},
	{"known_communities", func(s *Stats) int64 { return s.KnownCommunities }},
	{"known_instances", func(s *Stats) int64 { return s.KnownInstances }},
	{"known_comments", func(s *Stats) int64 { return s.KnownComments }},
	{"known_posts", func(s *Stats) int64 { return s.KnownPosts }},
	{"local_comments", func(s *Stats) int64 { return s.LocalComments }},
	{"local_posts", func(s *Stats) int64 { return s.LocalPosts }},
	{"local_upvotes", func(s *Stats) int64 { return s.LocalUpvotes }},
	{"local_downvotes", func(s *Stats) int64 { return s.LocalDownvotes }},
}

// Fields возвращает счётчики снимка в виде карты имя -> значение.
func (s *Stats) Fields() map[string]interface{} {
	fields := make(map[string]interface{}, len(StatsFields))
	for _, f := range StatsFields {
		fields[f.Name] = f.Value(s)
	}
	return fields
}
