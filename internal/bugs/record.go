package bugs

// Fixed cell values. The TBD columns are filled in during manual triage.
const (
	NotAssigned         = "Not Assigned"
	SeverityTBD         = "TBD"
	ReproducibleTBD     = "TBD (Yes or No)"
	ReproduceRateTBD    = "TBD (%)"
	WorkaroundTBD       = "TBD (Yes or No)"
	CommentsPlaceholder = "Other Comments"
)

const (
	timeLayout   = "2006-01-02 15:04 UTC"
	tagSeparator = ", "
)

// header holds the column labels in row order.
var header = []string{
	"Bug ID Number",
	"Title",
	"Importance",
	"Status",
	"Assignee",
	"Reporter",
	"Tags",
	"Web Link",
	"Link to Duplicates of bug",
	"Private",
	"Security Related",
	"Created Time",
	"Last Updated Time",
	"Date Triaged",
	"Severity",
	"Reproducible",
	"Repro Rate",
	"Workaround",
	"Comments",
}

// Header returns the column labels in the order of Record.Values.
func Header() []string {
	out := make([]string, len(header))
	copy(out, header)
	return out
}

// Record is one spreadsheet row describing a bug task.
type Record struct {
	ID              int
	Title           *string // nil when redacted
	Importance      string
	Status          string
	Assignee        string
	Reporter        string
	Tags            string
	WebLink         string
	DuplicateOfLink *string
	Private         bool
	SecurityRelated bool
	CreatedTime     *string
	LastUpdatedTime *string
	DateTriaged     *string
	Severity        string
	Reproducible    string
	ReproduceRate   string
	Workaround      string
	Comments        string
}

// Values returns the cells in header order. Nil pointers become nil cells.
func (r Record) Values() []any {
	return []any{
		r.ID,
		deref(r.Title),
		r.Importance,
		r.Status,
		r.Assignee,
		r.Reporter,
		r.Tags,
		r.WebLink,
		deref(r.DuplicateOfLink),
		r.Private,
		r.SecurityRelated,
		deref(r.CreatedTime),
		deref(r.LastUpdatedTime),
		deref(r.DateTriaged),
		r.Severity,
		r.Reproducible,
		r.ReproduceRate,
		r.Workaround,
		r.Comments,
	}
}

func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
