package bugs

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gi8lino/lptriage/internal/launchpad"
)

// ErrMissingField is wrapped by Map when a required source field is absent.
var ErrMissingField = errors.New("missing field")

// Map converts a bug task into a Record.
//
// Assignee and reporter are the only guarded fields; any other missing
// required value fails the mapping. An empty title is written as is.
func Map(task launchpad.BugTask) (Record, error) {
	bug := task.Bug
	if bug == nil {
		return Record{}, missing("bug", task.BugLink)
	}
	ref := task.WebLink
	if ref == "" {
		ref = task.BugLink
	}
	switch {
	case bug.ID == 0:
		return Record{}, missing("bug.id", ref)
	case task.Importance == "":
		return Record{}, missing("importance", ref)
	case task.Status == "":
		return Record{}, missing("status", ref)
	case task.WebLink == "":
		return Record{}, missing("web_link", ref)
	case task.Owner == nil:
		return Record{}, missing("owner", ref)
	}

	assignee := normalize(task.Assignee.Name())
	if assignee == "" {
		assignee = NotAssigned
	}

	title := normalize(bug.Title)
	rec := Record{
		ID:              bug.ID,
		Title:           &title,
		Importance:      normalize(task.Importance),
		Status:          normalize(task.Status),
		Assignee:        assignee,
		Reporter:        normalize(task.Owner.Name()),
		Tags:            normalize(strings.Join(bug.Tags, tagSeparator)),
		WebLink:         normalize(task.WebLink),
		DuplicateOfLink: bug.DuplicateOfLink,
		Private:         bug.Private,
		SecurityRelated: bug.SecurityRelated,
		CreatedTime:     FormatTime(task.DateCreated),
		LastUpdatedTime: FormatTime(bug.DateLastUpdated),
		DateTriaged:     FormatTime(task.DateTriaged),
		Severity:        SeverityTBD,
		Reproducible:    ReproducibleTBD,
		ReproduceRate:   ReproduceRateTBD,
		Workaround:      WorkaroundTBD,
		Comments:        CommentsPlaceholder,
	}

	if rec.Private && rec.SecurityRelated {
		rec.Title = nil
	}
	return rec, nil
}

// FormatTime renders t in UTC to minute precision, e.g. "2019-03-01 12:34 UTC".
// A nil time yields nil.
func FormatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(timeLayout)
	return &s
}

// normalize replaces invalid UTF-8 sequences so every cell is valid text.
func normalize(s string) string {
	return strings.ToValidUTF8(s, "�")
}

func missing(field, ref string) error {
	if ref == "" {
		return fmt.Errorf("%w %q", ErrMissingField, field)
	}
	return fmt.Errorf("%w %q in %s", ErrMissingField, field, ref)
}
