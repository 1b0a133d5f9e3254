package scoring

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/clipscout/clipscout/internal/models"
)

var timestampPattern = regexp.MustCompile(`\b(\d{1,2}):(\d{2})(?::(\d{2}))?\b`)

// ExtractMoments pulls timestamp references out of the comment sample and
// ranks them by how strongly the surrounding comment matches the category
// keywords. Duplicate timestamps keep the highest-relevance mention.
func ExtractMoments(candidate models.VideoCandidate, sample models.CommentSample, limit int) []models.Moment {
	rules := RulesFor(candidate.Category)
	best := make(map[int]models.Moment)
	seconds := make(map[string]int)

	for _, c := range sample.Comments {
		matches := timestampPattern.FindAllStringSubmatch(c.Text, -1)
		if len(matches) == 0 {
			continue
		}

		hits := KeywordHits(c.Text, rules.ValidationKeywords) +
			KeywordHits(c.Text, rules.EmotionalKeywords)
		relevance := clamp01(0.25 + 0.25*float64(hits))

		for _, m := range matches {
			sec, ok := timestampSeconds(m)
			if !ok {
				continue
			}
			if cur, exists := best[sec]; exists && cur.RelevanceScore >= relevance {
				continue
			}
			moment := models.Moment{
				VideoID:         candidate.VideoID,
				URL:             candidate.URL,
				Comment:         c.Text,
				Timestamp:       m[0],
				CategoryMatches: hits,
				RelevanceScore:  relevance,
				Sentiment:       c.Sentiment,
			}
			best[sec] = moment
			seconds[moment.Timestamp] = sec
		}
	}

	moments := make([]models.Moment, 0, len(best))
	for _, m := range best {
		moments = append(moments, m)
	}
	sort.Slice(moments, func(i, j int) bool {
		if moments[i].RelevanceScore != moments[j].RelevanceScore {
			return moments[i].RelevanceScore > moments[j].RelevanceScore
		}
		return seconds[moments[i].Timestamp] < seconds[moments[j].Timestamp]
	})

	if limit > 0 && len(moments) > limit {
		moments = moments[:limit]
	}
	return moments
}

func timestampSeconds(match []string) (int, bool) {
	first, _ := strconv.Atoi(match[1])
	second, _ := strconv.Atoi(match[2])
	if match[3] == "" {
		if second > 59 {
			return 0, false
		}
		return first*60 + second, true
	}
	third, _ := strconv.Atoi(match[3])
	if second > 59 || third > 59 {
		return 0, false
	}
	return first*3600 + second*60 + third, true
}
