package models

// RemoteFile is one logical file to mirror into the content host.
type RemoteFile struct {
	Path    string
	Content []byte
}

// PublishJob is an immutable snapshot of everything one publish writes:
// the rendered page plus its static assets. It has no identity beyond its
// own execution and is discarded once every file has a recorded outcome.
type PublishJob struct {
	AccountKey string
	RepoName   string
	Branch     string
	Files      []RemoteFile
}

// FileOutcome records the terminal state of one remote write.
type FileOutcome struct {
	Path   string `json:"path"`
	Status string `json:"status"` // "written" or "failed"
	URL    string `json:"url,omitempty"`
	Error  string `json:"error,omitempty"`
}

// PublishResult is the structured, best-effort outcome of a PublishJob.
// A partial publish is an accepted terminal state, not an error: there is no
// cross-file transaction and already-written files are never rolled back.
type PublishResult struct {
	Total   int           `json:"total"`
	Written int           `json:"written"`
	Failed  int           `json:"failed"`
	Files   []FileOutcome `json:"files"`
}

// Status maps the result onto the wizard's {ok|partial|error} surface.
func (r *PublishResult) Status() string {
	switch {
	case r.Failed == 0:
		return "ok"
	case r.Written > 0:
		return "partial"
	default:
		return "error"
	}
}
