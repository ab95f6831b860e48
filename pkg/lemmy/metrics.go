package lemmy

import (
	"lemmy_stats/models"
	"lemmy_stats/pkg/storage"
)

// Metric описывает один агрегирующий запрос и поле снимка, которое он заполняет.
type Metric struct {
	Name  string
	Query string
	Set   func(*models.Stats, int64)
}

const (
	localCommentsQuery = `SELECT count(1)
		FROM comment
		INNER JOIN local_user ON creator_id = local_user.person_id`

	localPostsQuery = `SELECT count(1)
		FROM post
		INNER JOIN local_user ON creator_id = local_user.person_id`

	localVotesQuery = `SELECT count(1)
		FROM comment_like
		INNER JOIN local_user ON comment_like.person_id = local_user.person_id
		WHERE score = `
)

// Metrics — фиксированный порядок запросов одного прогона сбора.
var Metrics = []Metric{
	{
		Name:  "registered_users",
		Query: storage.CountQuery("local_user"),
		Set:   func(s *models.Stats, v int64) { s.RegisteredUsers = v },
	},
	{
		Name:  "verified_users",
		Query: storage.CountWhereQuery("local_user", "email_verified = true"),
		Set:   func(s *models.Stats, v int64) { s.VerifiedUsers = v },
	},
	{
		Name:  "unverified_users",
		Query: storage.CountWhereQuery("local_user", "email_verified = false"),
		Set:   func(s *models.Stats, v int64) { s.UnverifiedUsers = v },
	},
	{
		Name:  "approved_users",
		Query: storage.CountWhereQuery("local_user", "accepted_application = true"),
		Set:   func(s *models.Stats, v int64) { s.ApprovedUsers = v },
	},
	{
		Name:  "unapproved_users",
		Query: storage.CountWhereQuery("local_user", "accepted_application = false"),
		Set:   func(s *models.Stats, v int64) { s.UnapprovedUsers = v },
	},
	{
		// Сравнение "= null" никогда не выполняется, поэтому только IS NULL.
		Name:  "pending_applications",
		Query: storage.CountWhereQuery("registration_application", "admin_id IS NULL"),
		Set:   func(s *models.Stats, v int64) { s.PendingApplications = v },
	},
	{
		Name:  "denied_applications",
		Query: storage.CountWhereQuery("registration_application", "deny_reason IS NOT NULL"),
		Set:   func(s *models.Stats, v int64) { s.DeniedApplications = v },
	},
	{
		Name:  "known_communities",
		Query: storage.CountQuery("community"),
		Set:   func(s *models.Stats, v int64) { s.KnownCommunities = v },
	},
	{
		Name:  "known_instances",
		Query: storage.CountQuery("instance"),
		Set:   func(s *models.Stats, v int64) { s.KnownInstances = v },
	},
	{
		Name:  "known_comments",
		Query: storage.CountQuery("comment"),
		Set:   func(s *models.Stats, v int64) { s.KnownComments = v },
	},
	{
		Name:  "known_posts",
		Query: storage.CountQuery("post"),
		Set:   func(s *models.Stats, v int64) { s.KnownPosts = v },
	},
	{
		Name:  "local_comments",
		Query: localCommentsQuery,
		Set:   func(s *models.Stats, v int64) { s.LocalComments = v },
	},
	{
		Name:  "local_posts",
		Query: localPostsQuery,
		Set:   func(s *models.Stats, v int64) { s.LocalPosts = v },
	},
	{
		Name:  "local_upvotes",
		Query: localVotesQuery + "1",
		Set:   func(s *models.Stats, v int64) { s.LocalUpvotes = v },
	},
	{
		Name:  "local_downvotes",
		Query: localVotesQuery + "-1",
		Set:   func(s *models.Stats, v int64) { s.LocalDownvotes = v },
	},
}
