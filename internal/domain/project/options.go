package project

// ListOptions filters project listings.
type ListOptions struct {
	ProjectType string
	Status      Status
	Limit       int
	Offset      int
}
