package extract

import (
	"regexp"
	"strings"

	"github.com/bytedance/sonic"

	"kanban-api/domain"
)

// fenceRe strips the markdown code fences some models wrap JSON in even
// when told not to.
var fenceRe = regexp.MustCompile("```json\n?|```")

// rawDraft is the loose shape a provider is asked to emit. Every field
// but the title is optional.
type rawDraft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Tag         string `json:"tag"`
}

// Normalize turns a provider's raw response text into validated card
// drafts. Surrounding code-fence markup is stripped before parsing; the
// payload must then be a JSON array of task objects. Objects without a
// title are dropped; description defaults to empty, priority to Medium
// and tag to Feature when absent or outside the closed enumerations.
//
// A payload that fails to parse signals KindParse; a payload that parses
// but yields zero drafts signals KindEmpty. Neither produces a silent
// empty result.
func Normalize(raw string) ([]domain.Draft, error) {
	cleaned := strings.TrimSpace(fenceRe.ReplaceAllString(raw, ""))

	var items []rawDraft
	if err := sonic.Unmarshal([]byte(cleaned), &items); err != nil {
		return nil, &Error{
			Kind:    KindParse,
			Message: "failed to parse the model response; it may be busy or returned invalid JSON",
			Cause:   err,
		}
	}

	drafts := make([]domain.Draft, 0, len(items))
	for _, it := range items {
		title := strings.TrimSpace(it.Title)
		if title == "" {
			continue
		}
		drafts = append(drafts, domain.Draft{
			Title:       title,
			Description: it.Description,
			Priority:    domain.CoercePriority(domain.Priority(it.Priority)),
			Tag:         domain.CoerceTag(domain.Tag(it.Tag)),
		})
	}

	if len(drafts) == 0 {
		return nil, &Error{
			Kind:    KindEmpty,
			Message: "could not extract any tasks; try being more specific",
		}
	}
	return drafts, nil
}
