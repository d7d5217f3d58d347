package template

// ListOptions provides filtering options for listing templates.
type ListOptions struct {
	ProjectType string
	Query       string
	ActiveOnly  bool
	// LatestOnly collapses each project type to its newest version.
	LatestOnly bool
	Limit      int
	Offset     int
}
