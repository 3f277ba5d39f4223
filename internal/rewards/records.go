package rewards

import (
	"rewardfeed/internal/components/assert"
	"rewardfeed/internal/components/chrono"
	"rewardfeed/pkg/htmlutil"

	"github.com/google/uuid"
)

// Builder turns classified, dated candidates into records.
type Builder struct {
	time  chrono.TimeAPI
	newID func() string
}

func NewBuilder(time chrono.TimeAPI) Builder {
	assert.NotNil(time)
	return Builder{
		time:  time,
		newID: uuid.NewString,
	}
}

func (b Builder) Build(c Candidate, t RewardType, date string) Record {
	title := htmlutil.CleanText(c.Text)
	if title == "" {
		title = FallbackTitle
	}
	return Record{
		ID:        b.newID(),
		URL:       c.URL,
		Title:     title,
		Type:      t,
		Date:      date,
		ScrapedAt: b.time.Now().UnixMilli(),
	}
}
