package models

// Sentiment is a naive keyword-count sentiment tag for a single comment.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Comment is one viewer comment as returned by a comment API.
type Comment struct {
	Text      string
	Author    string
	LikeCount int64
}

// CommentOrder selects the ordering for a comment listing request.
type CommentOrder string

const (
	// OrderRelevance lists the most relevant comments first.
	OrderRelevance CommentOrder = "relevance"
	// OrderRecent lists the newest comments first.
	OrderRecent CommentOrder = "recent"
)

// CommentPage is one page of a comment listing.
type CommentPage struct {
	Comments      []Comment
	NextPageToken string
}

// SampledComment is a deduplicated comment with its sentiment tag attached.
type SampledComment struct {
	Text      string
	Sentiment Sentiment
}

// CommentSample is the transient, deduplicated comment set built for one
// rating pass. It is discarded after scoring.
type CommentSample struct {
	Comments     []SampledComment
	TargetCount  int
	FetchedCount int
}

// Texts returns the distinct comment texts in sample order.
func (s CommentSample) Texts() []string {
	texts := make([]string, 0, len(s.Comments))
	for _, c := range s.Comments {
		texts = append(texts, c.Text)
	}
	return texts
}

// SentimentCounts tallies sentiment tags across the sample.
func (s CommentSample) SentimentCounts() (positive, negative, neutral int) {
	for _, c := range s.Comments {
		switch c.Sentiment {
		case SentimentPositive:
			positive++
		case SentimentNegative:
			negative++
		default:
			neutral++
		}
	}
	return positive, negative, neutral
}
