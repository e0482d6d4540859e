package model

// TickerSource records which extraction strategy produced a ticker.
type TickerSource int

const (
	TickerNone TickerSource = iota
	TickerParentheses
	TickerUppercase
)

func (s TickerSource) String() string {
	switch s {
	case TickerParentheses:
		return "parentheses"
	case TickerUppercase:
		return "uppercase"
	default:
		return "none"
	}
}

// DefaultWindowDays applies when the text has no timespan phrase.
const DefaultWindowDays = 30

// DefaultArticleCount applies to news lookups without an explicit count.
const DefaultArticleCount = 5

// Entities are the parameters extracted from a question.
type Entities struct {
	Ticker       string       `json:"ticker,omitempty"` // "" when absent
	TickerSource TickerSource `json:"-"`
	WindowDays   int          `json:"window_days"`
	ArticleCount *int         `json:"article_count,omitempty"`
}

// Articles returns the requested article count or the default.
func (e Entities) Articles() int {
	if e.ArticleCount == nil || *e.ArticleCount <= 0 {
		return DefaultArticleCount
	}
	return *e.ArticleCount
}
