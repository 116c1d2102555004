package launchpad

import "time"

// Project is the subset of a Launchpad project resource we read.
type Project struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Title       string `json:"title"`
	SelfLink    string `json:"self_link"`
	WebLink     string `json:"web_link"`
}

// collection is one page of a Launchpad collection resource.
type collection[T any] struct {
	TotalSize          int    `json:"total_size"`
	Start              int    `json:"start"`
	Entries            []T    `json:"entries"`
	NextCollectionLink string `json:"next_collection_link"`
}

// BugTask is a bug as targeted to a project, carrying status and importance.
type BugTask struct {
	Title       string     `json:"title"`
	Importance  string     `json:"importance"`
	Status      string     `json:"status"`
	WebLink     string     `json:"web_link"`
	SelfLink    string     `json:"self_link"`
	BugLink     string     `json:"bug_link"`
	Assignee    *Identity  `json:"assignee_link"` // nullable
	Owner       *Identity  `json:"owner_link"`
	DateCreated *time.Time `json:"date_created"`
	DateTriaged *time.Time `json:"date_triaged"` // nullable

	// Bug is filled by SearchTasks from BugLink.
	Bug *Bug `json:"-"`
}

// Bug holds the task-independent fields of a bug.
type Bug struct {
	ID              int        `json:"id"`
	Title           string     `json:"title"`
	Tags            []string   `json:"tags"`
	WebLink         string     `json:"web_link"`
	DuplicateOfLink *string    `json:"duplicate_of_link"` // nullable
	Private         bool       `json:"private"`
	SecurityRelated bool       `json:"security_related"`
	DateLastUpdated *time.Time `json:"date_last_updated"`
}

// HasTag reports whether the bug carries tag.
func (b *Bug) HasTag(tag string) bool {
	if b == nil {
		return false
	}
	for _, t := range b.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// SearchOptions narrows a searchTasks call.
type SearchOptions struct {
	Statuses          []string
	IncludeDuplicates bool
}
