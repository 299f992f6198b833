package notifier

import (
	"github.com/amishk599/bountybot/internal/model"
)

const (
	maxDescriptionRunes = 500
	maxSkills           = 5
	ellipsis            = "..."
)

// Render converts a listing into the message every sink receives. The
// description is cut to at most 500 runes and only the first five skills are
// kept.
func Render(l model.Listing) model.Message {
	skills := l.Skills
	if len(skills) > maxSkills {
		skills = skills[:maxSkills]
	}
	return model.Message{
		ListingID:   l.ID,
		Title:       l.Title,
		Description: truncate(l.Description, maxDescriptionRunes),
		URL:         l.URL,
		Location:    l.Location,
		Reward:      l.Reward,
		Deadline:    l.Deadline,
		Skills:      append([]string(nil), skills...),
	}
}

// truncate shortens s to at most limit runes, replacing the tail with "...".
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-len(ellipsis)]) + ellipsis
}
