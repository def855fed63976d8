package domain

// Two-axis taxonomy: every item gets one Topic and one Sentiment.

type Topic string

const (
	TopicContentReaction Topic = "content_reaction"
	TopicInvestmentTalk  Topic = "investment_talk"
	TopicServiceIssue    Topic = "service_issue"
	TopicCommunityChat   Topic = "community_chat"
)

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

var Topics = []Topic{
	TopicContentReaction,
	TopicInvestmentTalk,
	TopicServiceIssue,
	TopicCommunityChat,
}

var Sentiments = []Sentiment{
	SentimentPositive,
	SentimentNegative,
	SentimentNeutral,
}

func ValidTopic(s string) bool {
	for _, t := range Topics {
		if string(t) == s {
			return true
		}
	}
	return false
}

func ValidSentiment(s string) bool {
	for _, v := range Sentiments {
		if string(v) == s {
			return true
		}
	}
	return false
}

// CategoryTags is the controlled vocabulary: a closed, topic-scoped set of 28
// category tags (8 service, 8 investment, 6 content, 6 community). The detail
// tag extractor may only attach tags from the subset of the item's topic.
var CategoryTags = map[Topic][]string{
	TopicServiceIssue: {
		"payment_refund_subscription",
		"app_feature_bug",
		"board_community_ops",
		"onboarding_accessibility",
		"delivery_schedule",
		"pricing_promotion_policy",
		"content_access_problem",
		"other_service",
	},
	TopicInvestmentTalk: {
		"portfolio_strategy",
		"single_stock_analysis",
		"market_outlook_macro",
		"profit_loss_share",
		"trade_timing",
		"sector_theme_analysis",
		"investment_learning_question",
		"other_investment",
	},
	TopicContentReaction: {
		"content_quality_depth",
		"creator_communication_attitude",
		"lecture_class_feedback",
		"report_briefing_feedback",
		"content_topic_request",
		"other_content",
	},
	TopicCommunityChat: {
		"greeting_thanks",
		"investment_experience_share",
		"creator_support_cheer",
		"community_mood",
		"daily_life_share",
		"other_chat",
	},
}

var allCategoryTags = buildAllCategoryTags()

func buildAllCategoryTags() map[string]bool {
	all := make(map[string]bool)
	for _, tags := range CategoryTags {
		for _, tag := range tags {
			all[tag] = true
		}
	}
	return all
}

// ValidCategoryTag reports whether tag belongs to the full 28-value vocabulary.
func ValidCategoryTag(tag string) bool {
	return allCategoryTags[tag]
}

// ValidCategoryTagForTopic reports whether tag belongs to the topic's subset.
func ValidCategoryTagForTopic(topic Topic, tag string) bool {
	for _, t := range CategoryTags[topic] {
		if t == tag {
			return true
		}
	}
	return false
}

// VocabularySize is the size of the full controlled vocabulary.
func VocabularySize() int {
	return len(allCategoryTags)
}
