package interfaces

// ReportRenderer turns a session report into a downloadable document
type ReportRenderer interface {
	// Render converts the markdown report to PDF bytes; title becomes the document title
	Render(markdown, title string) ([]byte, error)
}
