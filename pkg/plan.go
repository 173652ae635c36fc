package rema

// Plan is everything decided before a release starts. It is built once and
// passed by value; nothing downstream mutates it.
type Plan struct {
	Package       string
	Current       ReleaseRecord
	Request       BumpRequest
	Target        ReleaseRecord
	Title         string
	Notes         string
	GenerateNotes bool
}

// NewPlan computes the target release of pkg. An empty title defaults to
// the target's tag name.
func NewPlan(pkg string, req BumpRequest, latest map[string]ReleaseRecord, history History, title, notes string, generateNotes bool) (Plan, error) {
	target, err := NextRelease(pkg, req, latest, history)
	if err != nil {
		return Plan{}, err
	}
	if title == "" {
		title = target.TagName()
	}
	return Plan{
		Package:       pkg,
		Current:       latest[pkg],
		Request:       req,
		Target:        target,
		Title:         title,
		Notes:         notes,
		GenerateNotes: generateNotes,
	}, nil
}

// TransactionRequest converts the plan into a coordinator request.
func (p Plan) TransactionRequest() Request {
	return Request{
		Target:        p.Target,
		Title:         p.Title,
		Notes:         p.Notes,
		GenerateNotes: p.GenerateNotes,
	}
}
