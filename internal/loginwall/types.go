package loginwall

// Metadata is the subset of extracted page metadata the detector consumes.
// Empty strings mean the field was absent.
type Metadata struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	URL         string `json:"url,omitempty"`
	Author      string `json:"author,omitempty"`
	Publisher   string `json:"publisher,omitempty"`
	Logo        string `json:"logo,omitempty"`
}

// Result is the verdict for a single page. SiteName and Reason are only
// populated when IsLoginRedirect is true.
type Result struct {
	IsLoginRedirect bool   `json:"isLoginRedirect"`
	SiteName        string `json:"siteName,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

// Outcome records how one signal evaluated. Outcomes only live for the
// duration of an evaluation.
type Outcome struct {
	SignalID string
	Matched  bool
	Weight   int
}
